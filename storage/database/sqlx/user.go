package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/cursohub/cursohub/core/user"
)

type userRow struct {
	ID           string    `db:"id"`
	Name         string    `db:"name"`
	Email        string    `db:"email"`
	Role         string    `db:"role"`
	Avatar       string    `db:"avatar"`
	IsActive     bool      `db:"is_active"`
	PasswordHash []byte    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
	LastLogin    null.Time `db:"last_login"`
}

func (row userRow) toCore() user.User {
	return user.User{
		ID:           row.ID,
		Name:         row.Name,
		Email:        row.Email,
		Role:         row.Role,
		Avatar:       row.Avatar,
		IsActive:     row.IsActive,
		PasswordHash: row.PasswordHash,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
		LastLogin:    row.LastLogin.Time,
	}
}

type progressRow struct {
	UserID     string    `db:"user_id"`
	VideoID    string    `db:"video_id"`
	RoomID     string    `db:"room_id"`
	PlaylistID string    `db:"playlist_id"`
	Progress   int       `db:"progress"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (row progressRow) toCore() user.WatchProgress {
	return user.WatchProgress{
		UserID:     row.UserID,
		VideoID:    row.VideoID,
		RoomID:     row.RoomID,
		PlaylistID: row.PlaylistID,
		Progress:   row.Progress,
		UpdatedAt:  row.UpdatedAt,
	}
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...user.User) error {
	query := `SELECT EXISTS(SELECT 1 FROM "user" WHERE LOWER(email) = LOWER(?)`
	args := []interface{}{email}
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, usr := range excludedUsers {
			ids = append(ids, usr.ID)
		}
		inQuery, inArgs, err := sqlx.In(` AND id NOT IN (?)`, ids)
		if err != nil {
			return errors.Wrap(err, "building exclusion clause")
		}
		query += inQuery
		args = append(args, inArgs...)
	}
	query += `)`

	var exists bool
	if err := repo.db.GetContext(ctx, &exists, repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if exists {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	const query = `
		INSERT INTO "user" (id, name, email, role, avatar, is_active, password_hash, created_at, updated_at)
		VALUES (:id, :name, :email, :role, :avatar, :is_active, :password_hash, :created_at, :updated_at)`

	row := userRow{
		ID:           usr.ID,
		Name:         usr.Name,
		Email:        usr.Email,
		Role:         usr.Role,
		Avatar:       usr.Avatar,
		IsActive:     usr.IsActive,
		PasswordHash: usr.PasswordHash,
		CreatedAt:    usr.CreatedAt,
		UpdatedAt:    usr.UpdatedAt,
	}
	if _, err := repo.db.NamedExecContext(ctx, query, row); err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) QueryAllUsers(ctx context.Context) ([]user.User, error) {
	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM "user" ORDER BY created_at`); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return toUsers(rows), nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	var row userRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM "user" WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "getting user")
	}
	return row.toCore(), nil
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	var row userRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM "user" WHERE LOWER(email) = LOWER($1)`, email)
	if err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "getting user by email")
	}
	return row.toCore(), nil
}

func (repo *userRepository) FilterUsersByRole(ctx context.Context, role string) ([]user.User, error) {
	var rows []userRow
	err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM "user" WHERE role = $1 ORDER BY created_at`, role)
	if err != nil {
		return nil, errors.Wrap(err, "filtering users")
	}
	return toUsers(rows), nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User, isActive *bool) (user.User, error) {
	// only save set fields
	sets := []string{"updated_at = :updated_at"}
	row := map[string]interface{}{"id": usr.ID, "updated_at": usr.UpdatedAt}
	if usr.Name != "" {
		sets = append(sets, "name = :name")
		row["name"] = usr.Name
	}
	if usr.Avatar != "" {
		sets = append(sets, "avatar = :avatar")
		row["avatar"] = usr.Avatar
	}
	if usr.PasswordHash != nil {
		sets = append(sets, "password_hash = :password_hash")
		row["password_hash"] = usr.PasswordHash
	}
	if !usr.LastLogin.IsZero() {
		sets = append(sets, "last_login = :last_login")
		row["last_login"] = usr.LastLogin
	}
	if isActive != nil {
		sets = append(sets, "is_active = :is_active")
		row["is_active"] = *isActive
	}

	query := `UPDATE "user" SET ` + strings.Join(sets, ", ") + ` WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, query, row)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return repo.GetUserByID(ctx, usr.ID)
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`DELETE FROM "user" WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "building delete query")
	}
	_, err = repo.db.ExecContext(ctx, repo.db.Rebind(query), args...)
	return errors.Wrap(err, "deleting users")
}

func (repo *userRepository) UpsertWatchProgress(ctx context.Context, wp user.WatchProgress) (user.WatchProgress, error) {
	const query = `
		INSERT INTO watch_progress (user_id, video_id, room_id, playlist_id, progress, updated_at)
		VALUES (:user_id, :video_id, :room_id, :playlist_id, :progress, :updated_at)
		ON CONFLICT (user_id, video_id)
		DO UPDATE SET room_id = EXCLUDED.room_id, playlist_id = EXCLUDED.playlist_id,
		              progress = EXCLUDED.progress, updated_at = EXCLUDED.updated_at`

	row := progressRow{
		UserID:     wp.UserID,
		VideoID:    wp.VideoID,
		RoomID:     wp.RoomID,
		PlaylistID: wp.PlaylistID,
		Progress:   wp.Progress,
		UpdatedAt:  wp.UpdatedAt,
	}
	if _, err := repo.db.NamedExecContext(ctx, query, row); err != nil {
		return user.WatchProgress{}, errors.Wrap(err, "upserting watch progress")
	}
	return wp, nil
}

func (repo *userRepository) GetWatchProgress(ctx context.Context, userID, videoID string) (user.WatchProgress, error) {
	var row progressRow
	err := repo.db.GetContext(ctx, &row,
		`SELECT * FROM watch_progress WHERE user_id = $1 AND video_id = $2`, userID, videoID)
	if err != nil {
		if err == sql.ErrNoRows {
			return user.WatchProgress{}, user.ErrNotFound
		}
		return user.WatchProgress{}, errors.Wrap(err, "getting watch progress")
	}
	return row.toCore(), nil
}

func (repo *userRepository) QueryWatchProgressByUser(ctx context.Context, userID string) ([]user.WatchProgress, error) {
	var rows []progressRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT * FROM watch_progress WHERE user_id = $1 ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "querying watch progress")
	}
	return toProgress(rows), nil
}

func (repo *userRepository) QueryWatchProgressByVideoIDs(ctx context.Context, videoIDs ...string) ([]user.WatchProgress, error) {
	if len(videoIDs) == 0 {
		return []user.WatchProgress{}, nil
	}
	query, args, err := sqlx.In(`SELECT * FROM watch_progress WHERE video_id IN (?)`, videoIDs)
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	var rows []progressRow
	if err = repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying watch progress")
	}
	return toProgress(rows), nil
}

func toUsers(rows []userRow) []user.User {
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.toCore())
	}
	return users
}

func toProgress(rows []progressRow) []user.WatchProgress {
	wps := make([]user.WatchProgress, 0, len(rows))
	for _, row := range rows {
		wps = append(wps, row.toCore())
	}
	return wps
}
