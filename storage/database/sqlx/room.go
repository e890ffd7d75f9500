package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/cursohub/cursohub/core/room"
)

const pqUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	pqErr, ok := errors.Cause(err).(*pq.Error)
	return ok && pqErr.Code == pqUniqueViolation
}

type roomRow struct {
	ID          string    `db:"id"`
	OwnerID     string    `db:"owner_id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	InviteCode  string    `db:"invite_code"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (row roomRow) toCore() room.Room {
	return room.Room{
		ID:          row.ID,
		OwnerID:     row.OwnerID,
		Name:        row.Name,
		Description: row.Description,
		InviteCode:  row.InviteCode,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

type playlistRow struct {
	ID        string    `db:"id"`
	RoomID    string    `db:"room_id"`
	Name      string    `db:"name"`
	Position  int       `db:"position"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (row playlistRow) toCore() room.Playlist {
	return room.Playlist(row)
}

type videoRow struct {
	ID          string    `db:"id"`
	PlaylistID  string    `db:"playlist_id"`
	RoomID      string    `db:"room_id"`
	Title       string    `db:"title"`
	SourceURL   string    `db:"source_url"`
	Description string    `db:"description"`
	Position    int       `db:"position"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (row videoRow) toCore() room.Video {
	return room.Video(row)
}

type roomRepository struct {
	db *sqlx.DB
}

var _ room.Repository = (*roomRepository)(nil) // interface compliance check

func NewRoomRepository(db *sqlx.DB) room.Repository {
	return &roomRepository{db: db}
}

func (repo *roomRepository) CreateRoom(ctx context.Context, rm room.Room) (room.Room, error) {
	const query = `
		INSERT INTO room (id, owner_id, name, description, invite_code, created_at, updated_at)
		VALUES (:id, :owner_id, :name, :description, :invite_code, :created_at, :updated_at)`

	row := roomRow{
		ID:          rm.ID,
		OwnerID:     rm.OwnerID,
		Name:        rm.Name,
		Description: rm.Description,
		InviteCode:  rm.InviteCode,
		CreatedAt:   rm.CreatedAt,
		UpdatedAt:   rm.UpdatedAt,
	}
	if _, err := repo.db.NamedExecContext(ctx, query, row); err != nil {
		if isUniqueViolation(err) {
			return room.Room{}, room.ErrInviteCodeExists
		}
		return room.Room{}, errors.Wrap(err, "inserting room")
	}
	return rm, nil
}

func (repo *roomRepository) GetRoomByID(ctx context.Context, id string) (room.Room, error) {
	var row roomRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM room WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return room.Room{}, room.ErrNotFound
		}
		return room.Room{}, errors.Wrap(err, "getting room")
	}
	return row.toCore(), nil
}

func (repo *roomRepository) GetRoomByInviteCode(ctx context.Context, code string) (room.Room, error) {
	var row roomRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM room WHERE invite_code = $1`, code); err != nil {
		if err == sql.ErrNoRows {
			return room.Room{}, room.ErrNotFound
		}
		return room.Room{}, errors.Wrap(err, "getting room by invite code")
	}
	return row.toCore(), nil
}

func (repo *roomRepository) QueryAllRooms(ctx context.Context) ([]room.Room, error) {
	var rows []roomRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM room ORDER BY created_at`); err != nil {
		return nil, errors.Wrap(err, "querying rooms")
	}
	return toRooms(rows), nil
}

func (repo *roomRepository) QueryRoomsByOwner(ctx context.Context, ownerID string) ([]room.Room, error) {
	var rows []roomRow
	err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM room WHERE owner_id = $1 ORDER BY created_at`, ownerID)
	if err != nil {
		return nil, errors.Wrap(err, "querying rooms by owner")
	}
	return toRooms(rows), nil
}

func (repo *roomRepository) UpdateRoom(ctx context.Context, id string, ch room.RoomChanges) (room.Room, error) {
	// only save set fields
	sets := []string{"updated_at = :updated_at"}
	row := map[string]interface{}{"id": id, "updated_at": ch.UpdatedAt}
	if ch.Name != "" {
		sets = append(sets, "name = :name")
		row["name"] = ch.Name
	}
	if ch.Description.Valid {
		sets = append(sets, "description = :description")
		row["description"] = ch.Description.String
	}
	if ch.InviteCode != "" {
		sets = append(sets, "invite_code = :invite_code")
		row["invite_code"] = ch.InviteCode
	}

	query := `UPDATE room SET ` + strings.Join(sets, ", ") + ` WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, query, row)
	if err != nil {
		if isUniqueViolation(err) {
			return room.Room{}, room.ErrInviteCodeExists
		}
		return room.Room{}, errors.Wrap(err, "updating room")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return room.Room{}, room.ErrNotFound
	}
	return repo.GetRoomByID(ctx, id)
}

func (repo *roomRepository) DeleteRoomsByID(ctx context.Context, ids ...string) error {
	return repo.deleteByID(ctx, "room", ids)
}

func (repo *roomRepository) CreatePlaylist(ctx context.Context, pl room.Playlist) (room.Playlist, error) {
	const query = `
		INSERT INTO playlist (id, room_id, name, position, created_at, updated_at)
		VALUES (:id, :room_id, :name, :position, :created_at, :updated_at)`

	if _, err := repo.db.NamedExecContext(ctx, query, playlistRow(pl)); err != nil {
		return room.Playlist{}, errors.Wrap(err, "inserting playlist")
	}
	return pl, nil
}

func (repo *roomRepository) GetPlaylistByID(ctx context.Context, id string) (room.Playlist, error) {
	var row playlistRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM playlist WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return room.Playlist{}, room.ErrPlaylistNotFound
		}
		return room.Playlist{}, errors.Wrap(err, "getting playlist")
	}
	return row.toCore(), nil
}

func (repo *roomRepository) QueryPlaylistsByRoom(ctx context.Context, roomID string) ([]room.Playlist, error) {
	var rows []playlistRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT * FROM playlist WHERE room_id = $1 ORDER BY position, created_at`, roomID)
	if err != nil {
		return nil, errors.Wrap(err, "querying playlists")
	}
	playlists := make([]room.Playlist, 0, len(rows))
	for _, row := range rows {
		playlists = append(playlists, row.toCore())
	}
	return playlists, nil
}

func (repo *roomRepository) UpdatePlaylist(ctx context.Context, pl room.Playlist) (room.Playlist, error) {
	// only save set fields
	sets := []string{"updated_at = :updated_at"}
	row := map[string]interface{}{"id": pl.ID, "updated_at": pl.UpdatedAt}
	if pl.Name != "" {
		sets = append(sets, "name = :name")
		row["name"] = pl.Name
	}
	if pl.Position >= 0 {
		sets = append(sets, "position = :position")
		row["position"] = pl.Position
	}

	query := `UPDATE playlist SET ` + strings.Join(sets, ", ") + ` WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, query, row)
	if err != nil {
		return room.Playlist{}, errors.Wrap(err, "updating playlist")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return room.Playlist{}, room.ErrPlaylistNotFound
	}
	return repo.GetPlaylistByID(ctx, pl.ID)
}

func (repo *roomRepository) DeletePlaylistsByID(ctx context.Context, ids ...string) error {
	return repo.deleteByID(ctx, "playlist", ids)
}

func (repo *roomRepository) CreateVideo(ctx context.Context, vid room.Video) (room.Video, error) {
	const query = `
		INSERT INTO video (id, playlist_id, room_id, title, source_url, description, position, created_at, updated_at)
		VALUES (:id, :playlist_id, :room_id, :title, :source_url, :description, :position, :created_at, :updated_at)`

	if _, err := repo.db.NamedExecContext(ctx, query, videoRow(vid)); err != nil {
		return room.Video{}, errors.Wrap(err, "inserting video")
	}
	return vid, nil
}

func (repo *roomRepository) GetVideoByID(ctx context.Context, id string) (room.Video, error) {
	var row videoRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM video WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return room.Video{}, room.ErrVideoNotFound
		}
		return room.Video{}, errors.Wrap(err, "getting video")
	}
	return row.toCore(), nil
}

func (repo *roomRepository) QueryVideosByPlaylist(ctx context.Context, playlistID string) ([]room.Video, error) {
	return repo.queryVideos(ctx,
		`SELECT * FROM video WHERE playlist_id = $1 ORDER BY position, created_at`, playlistID)
}

func (repo *roomRepository) QueryVideosByRoom(ctx context.Context, roomID string) ([]room.Video, error) {
	return repo.queryVideos(ctx,
		`SELECT * FROM video WHERE room_id = $1 ORDER BY playlist_id, position, created_at`, roomID)
}

func (repo *roomRepository) queryVideos(ctx context.Context, query string, args ...interface{}) ([]room.Video, error) {
	var rows []videoRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying videos")
	}
	videos := make([]room.Video, 0, len(rows))
	for _, row := range rows {
		videos = append(videos, row.toCore())
	}
	return videos, nil
}

func (repo *roomRepository) UpdateVideo(ctx context.Context, vid room.Video) (room.Video, error) {
	// only save set fields
	sets := []string{"updated_at = :updated_at"}
	row := map[string]interface{}{"id": vid.ID, "updated_at": vid.UpdatedAt}
	if vid.Title != "" {
		sets = append(sets, "title = :title")
		row["title"] = vid.Title
	}
	if vid.SourceURL != "" {
		sets = append(sets, "source_url = :source_url")
		row["source_url"] = vid.SourceURL
	}
	if vid.Description != "" {
		sets = append(sets, "description = :description")
		row["description"] = vid.Description
	}
	if vid.Position >= 0 {
		sets = append(sets, "position = :position")
		row["position"] = vid.Position
	}

	query := `UPDATE video SET ` + strings.Join(sets, ", ") + ` WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, query, row)
	if err != nil {
		return room.Video{}, errors.Wrap(err, "updating video")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return room.Video{}, room.ErrVideoNotFound
	}
	return repo.GetVideoByID(ctx, vid.ID)
}

func (repo *roomRepository) DeleteVideosByID(ctx context.Context, ids ...string) error {
	return repo.deleteByID(ctx, "video", ids)
}

func (repo *roomRepository) SearchVideos(ctx context.Context, query, roomID string) ([]room.Video, error) {
	pattern := "%" + query + "%"
	if roomID != "" {
		return repo.queryVideos(ctx,
			`SELECT * FROM video WHERE room_id = $1 AND (title ILIKE $2 OR description ILIKE $2)
			 ORDER BY playlist_id, position, created_at`, roomID, pattern)
	}
	return repo.queryVideos(ctx,
		`SELECT * FROM video WHERE title ILIKE $1 OR description ILIKE $1
		 ORDER BY playlist_id, position, created_at`, pattern)
}

func (repo *roomRepository) Enroll(ctx context.Context, roomID, userID string) error {
	const query = `INSERT INTO enrollment (room_id, user_id, enrolled_at) VALUES ($1, $2, $3)`
	if _, err := repo.db.ExecContext(ctx, query, roomID, userID, time.Now().UTC()); err != nil {
		if isUniqueViolation(err) {
			return room.ErrAlreadyEnrolled
		}
		return errors.Wrap(err, "inserting enrollment")
	}
	return nil
}

func (repo *roomRepository) Unenroll(ctx context.Context, roomID, userID string) error {
	res, err := repo.db.ExecContext(ctx,
		`DELETE FROM enrollment WHERE room_id = $1 AND user_id = $2`, roomID, userID)
	if err != nil {
		return errors.Wrap(err, "deleting enrollment")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return room.ErrNotEnrolled
	}
	return nil
}

func (repo *roomRepository) IsEnrolled(ctx context.Context, roomID, userID string) (bool, error) {
	var enrolled bool
	err := repo.db.GetContext(ctx, &enrolled,
		`SELECT EXISTS(SELECT 1 FROM enrollment WHERE room_id = $1 AND user_id = $2)`, roomID, userID)
	return enrolled, errors.Wrap(err, "checking enrollment")
}

func (repo *roomRepository) QueryEnrolledStudentIDs(ctx context.Context, roomID string) ([]string, error) {
	ids := make([]string, 0)
	err := repo.db.SelectContext(ctx, &ids,
		`SELECT user_id FROM enrollment WHERE room_id = $1 ORDER BY user_id`, roomID)
	return ids, errors.Wrap(err, "querying enrolled students")
}

func (repo *roomRepository) QueryEnrolledRoomIDs(ctx context.Context, userID string) ([]string, error) {
	ids := make([]string, 0)
	err := repo.db.SelectContext(ctx, &ids,
		`SELECT room_id FROM enrollment WHERE user_id = $1 ORDER BY room_id`, userID)
	return ids, errors.Wrap(err, "querying enrolled rooms")
}

func (repo *roomRepository) DeleteEnrollmentsByRoom(ctx context.Context, roomID string) error {
	_, err := repo.db.ExecContext(ctx, `DELETE FROM enrollment WHERE room_id = $1`, roomID)
	return errors.Wrap(err, "deleting enrollments")
}

func (repo *roomRepository) deleteByID(ctx context.Context, table string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`DELETE FROM `+table+` WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "building delete query")
	}
	_, err = repo.db.ExecContext(ctx, repo.db.Rebind(query), args...)
	return errors.Wrapf(err, "deleting from %s", table)
}

func toRooms(rows []roomRow) []room.Room {
	rooms := make([]room.Room, 0, len(rows))
	for _, row := range rows {
		rooms = append(rooms, row.toCore())
	}
	return rooms
}
