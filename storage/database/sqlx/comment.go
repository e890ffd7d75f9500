package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/cursohub/cursohub/core/comment"
)

type commentRow struct {
	ID           string      `db:"id"`
	VideoID      string      `db:"video_id"`
	RoomID       string      `db:"room_id"`
	AuthorID     string      `db:"author_id"`
	AuthorName   string      `db:"author_name"`
	AuthorRole   string      `db:"author_role"`
	AuthorAvatar string      `db:"author_avatar"`
	ParentID     null.String `db:"parent_id"`
	Body         string      `db:"body"`
	Resolved     bool        `db:"resolved"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
}

func (row commentRow) toCore() comment.Comment {
	return comment.Comment{
		ID:           row.ID,
		VideoID:      row.VideoID,
		RoomID:       row.RoomID,
		AuthorID:     row.AuthorID,
		AuthorName:   row.AuthorName,
		AuthorRole:   row.AuthorRole,
		AuthorAvatar: row.AuthorAvatar,
		ParentID:     row.ParentID.String,
		Body:         row.Body,
		Resolved:     row.Resolved,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}

type commentRepository struct {
	db *sqlx.DB
}

var _ comment.Repository = (*commentRepository)(nil) // interface compliance check

func NewCommentRepository(db *sqlx.DB) comment.Repository {
	return &commentRepository{db: db}
}

func (repo *commentRepository) CreateComment(ctx context.Context, cmt comment.Comment) (comment.Comment, error) {
	const query = `
		INSERT INTO comment (id, video_id, room_id, author_id, author_name, author_role, author_avatar,
		                     parent_id, body, resolved, created_at, updated_at)
		VALUES (:id, :video_id, :room_id, :author_id, :author_name, :author_role, :author_avatar,
		        :parent_id, :body, :resolved, :created_at, :updated_at)`

	row := commentRow{
		ID:           cmt.ID,
		VideoID:      cmt.VideoID,
		RoomID:       cmt.RoomID,
		AuthorID:     cmt.AuthorID,
		AuthorName:   cmt.AuthorName,
		AuthorRole:   cmt.AuthorRole,
		AuthorAvatar: cmt.AuthorAvatar,
		ParentID:     null.NewString(cmt.ParentID, cmt.ParentID != ""),
		Body:         cmt.Body,
		Resolved:     cmt.Resolved,
		CreatedAt:    cmt.CreatedAt,
		UpdatedAt:    cmt.UpdatedAt,
	}
	if _, err := repo.db.NamedExecContext(ctx, query, row); err != nil {
		return comment.Comment{}, errors.Wrap(err, "inserting comment")
	}
	return cmt, nil
}

func (repo *commentRepository) GetCommentByID(ctx context.Context, id string) (comment.Comment, error) {
	var row commentRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM comment WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return comment.Comment{}, comment.ErrNotFound
		}
		return comment.Comment{}, errors.Wrap(err, "getting comment")
	}
	return row.toCore(), nil
}

func (repo *commentRepository) QueryCommentsByVideo(ctx context.Context, videoID string) ([]comment.Comment, error) {
	return repo.query(ctx,
		`SELECT * FROM comment WHERE video_id = $1 ORDER BY created_at, id`, videoID)
}

func (repo *commentRepository) QueryRepliesByParent(ctx context.Context, parentID string) ([]comment.Comment, error) {
	return repo.query(ctx,
		`SELECT * FROM comment WHERE parent_id = $1 ORDER BY created_at, id`, parentID)
}

func (repo *commentRepository) query(ctx context.Context, query string, args ...interface{}) ([]comment.Comment, error) {
	var rows []commentRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying comments")
	}
	comments := make([]comment.Comment, 0, len(rows))
	for _, row := range rows {
		comments = append(comments, row.toCore())
	}
	return comments, nil
}

func (repo *commentRepository) SetCommentResolved(ctx context.Context, id string, resolved bool) error {
	res, err := repo.db.ExecContext(ctx,
		`UPDATE comment SET resolved = $1, updated_at = $2 WHERE id = $3`, resolved, time.Now().UTC(), id)
	if err != nil {
		return errors.Wrap(err, "resolving comment")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return comment.ErrNotFound
	}
	return nil
}

func (repo *commentRepository) DeleteCommentsByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`DELETE FROM comment WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "building delete query")
	}
	_, err = repo.db.ExecContext(ctx, repo.db.Rebind(query), args...)
	return errors.Wrap(err, "deleting comments")
}

func (repo *commentRepository) DeleteCommentsByVideoIDs(ctx context.Context, videoIDs ...string) error {
	if len(videoIDs) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`DELETE FROM comment WHERE video_id IN (?)`, videoIDs)
	if err != nil {
		return errors.Wrap(err, "building delete query")
	}
	_, err = repo.db.ExecContext(ctx, repo.db.Rebind(query), args...)
	return errors.Wrap(err, "deleting comments")
}

func (repo *commentRepository) CountCommentsByRoom(ctx context.Context, roomID string) (total, openQuestions int, err error) {
	const query = `
		SELECT COUNT(*)                                                           AS total,
		       COUNT(*) FILTER (WHERE parent_id IS NULL AND NOT resolved)         AS open_questions
		FROM comment
		WHERE room_id = $1`

	var counts struct {
		Total         int `db:"total"`
		OpenQuestions int `db:"open_questions"`
	}
	if err = repo.db.GetContext(ctx, &counts, query, roomID); err != nil {
		return 0, 0, errors.Wrap(err, "counting comments")
	}
	return counts.Total, counts.OpenQuestions, nil
}
