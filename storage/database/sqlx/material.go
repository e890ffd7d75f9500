package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/cursohub/cursohub/core/material"
)

type materialRow struct {
	ID         string      `db:"id"`
	Name       string      `db:"name"`
	URL        string      `db:"url"`
	FileType   string      `db:"file_type"`
	Size       int64       `db:"size"`
	VideoID    null.String `db:"video_id"`
	PlaylistID null.String `db:"playlist_id"`
	RoomID     null.String `db:"room_id"`
	UploadedBy string      `db:"uploaded_by"`
	CreatedAt  time.Time   `db:"created_at"`
}

func (row materialRow) toCore() material.Material {
	return material.Material{
		ID:         row.ID,
		Name:       row.Name,
		URL:        row.URL,
		FileType:   row.FileType,
		Size:       row.Size,
		VideoID:    row.VideoID.String,
		PlaylistID: row.PlaylistID.String,
		RoomID:     row.RoomID.String,
		UploadedBy: row.UploadedBy,
		CreatedAt:  row.CreatedAt,
	}
}

type materialRepository struct {
	db *sqlx.DB
}

var _ material.Repository = (*materialRepository)(nil) // interface compliance check

func NewMaterialRepository(db *sqlx.DB) material.Repository {
	return &materialRepository{db: db}
}

func (repo *materialRepository) CreateMaterial(ctx context.Context, mat material.Material) (material.Material, error) {
	const query = `
		INSERT INTO material (id, name, url, file_type, size, video_id, playlist_id, room_id, uploaded_by, created_at)
		VALUES (:id, :name, :url, :file_type, :size, :video_id, :playlist_id, :room_id, :uploaded_by, :created_at)`

	row := materialRow{
		ID:         mat.ID,
		Name:       mat.Name,
		URL:        mat.URL,
		FileType:   mat.FileType,
		Size:       mat.Size,
		VideoID:    null.NewString(mat.VideoID, mat.VideoID != ""),
		PlaylistID: null.NewString(mat.PlaylistID, mat.PlaylistID != ""),
		RoomID:     null.NewString(mat.RoomID, mat.RoomID != ""),
		UploadedBy: mat.UploadedBy,
		CreatedAt:  mat.CreatedAt,
	}
	if _, err := repo.db.NamedExecContext(ctx, query, row); err != nil {
		return material.Material{}, errors.Wrap(err, "inserting material")
	}
	return mat, nil
}

func (repo *materialRepository) GetMaterialByID(ctx context.Context, id string) (material.Material, error) {
	var row materialRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM material WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return material.Material{}, material.ErrNotFound
		}
		return material.Material{}, errors.Wrap(err, "getting material")
	}
	return row.toCore(), nil
}

func (repo *materialRepository) QueryMaterialsByVideo(ctx context.Context, videoID string) ([]material.Material, error) {
	return repo.query(ctx, `SELECT * FROM material WHERE video_id = $1 ORDER BY created_at`, videoID)
}

func (repo *materialRepository) QueryMaterialsByPlaylist(ctx context.Context, playlistID string) ([]material.Material, error) {
	return repo.query(ctx, `SELECT * FROM material WHERE playlist_id = $1 ORDER BY created_at`, playlistID)
}

func (repo *materialRepository) QueryMaterialsByRoom(ctx context.Context, roomID string) ([]material.Material, error) {
	return repo.query(ctx, `SELECT * FROM material WHERE room_id = $1 ORDER BY created_at`, roomID)
}

func (repo *materialRepository) query(ctx context.Context, query string, args ...interface{}) ([]material.Material, error) {
	var rows []materialRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying materials")
	}
	materials := make([]material.Material, 0, len(rows))
	for _, row := range rows {
		materials = append(materials, row.toCore())
	}
	return materials, nil
}

func (repo *materialRepository) DeleteMaterialsByID(ctx context.Context, ids ...string) error {
	return repo.deleteIn(ctx, "id", ids)
}

func (repo *materialRepository) DeleteMaterialsByVideoIDs(ctx context.Context, videoIDs ...string) error {
	return repo.deleteIn(ctx, "video_id", videoIDs)
}

func (repo *materialRepository) DeleteMaterialsByPlaylistIDs(ctx context.Context, playlistIDs ...string) error {
	return repo.deleteIn(ctx, "playlist_id", playlistIDs)
}

func (repo *materialRepository) DeleteMaterialsByRoomIDs(ctx context.Context, roomIDs ...string) error {
	return repo.deleteIn(ctx, "room_id", roomIDs)
}

func (repo *materialRepository) deleteIn(ctx context.Context, column string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`DELETE FROM material WHERE `+column+` IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "building delete query")
	}
	_, err = repo.db.ExecContext(ctx, repo.db.Rebind(query), args...)
	return errors.Wrap(err, "deleting materials")
}
