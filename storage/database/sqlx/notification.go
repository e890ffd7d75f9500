package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/cursohub/cursohub/core/notification"
)

type notificationRow struct {
	ID          string      `db:"id"`
	RecipientID string      `db:"recipient_id"`
	Type        string      `db:"type"`
	Title       string      `db:"title"`
	Message     string      `db:"message"`
	Read        bool        `db:"read"`
	RoomID      null.String `db:"room_id"`
	VideoID     null.String `db:"video_id"`
	CommentID   null.String `db:"comment_id"`
	CreatedAt   time.Time   `db:"created_at"`
}

func (row notificationRow) toCore() notification.Notification {
	return notification.Notification{
		ID:          row.ID,
		RecipientID: row.RecipientID,
		Type:        row.Type,
		Title:       row.Title,
		Message:     row.Message,
		Read:        row.Read,
		RoomID:      row.RoomID.String,
		VideoID:     row.VideoID.String,
		CommentID:   row.CommentID.String,
		CreatedAt:   row.CreatedAt,
	}
}

type notificationRepository struct {
	db *sqlx.DB
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *sqlx.DB) notification.Repository {
	return &notificationRepository{db: db}
}

func (repo *notificationRepository) CreateNotification(ctx context.Context, ntf notification.Notification) (notification.Notification, error) {
	const query = `
		INSERT INTO notification (id, recipient_id, type, title, message, read, room_id, video_id, comment_id, created_at)
		VALUES (:id, :recipient_id, :type, :title, :message, :read, :room_id, :video_id, :comment_id, :created_at)`

	row := notificationRow{
		ID:          ntf.ID,
		RecipientID: ntf.RecipientID,
		Type:        ntf.Type,
		Title:       ntf.Title,
		Message:     ntf.Message,
		Read:        ntf.Read,
		RoomID:      null.NewString(ntf.RoomID, ntf.RoomID != ""),
		VideoID:     null.NewString(ntf.VideoID, ntf.VideoID != ""),
		CommentID:   null.NewString(ntf.CommentID, ntf.CommentID != ""),
		CreatedAt:   ntf.CreatedAt,
	}
	if _, err := repo.db.NamedExecContext(ctx, query, row); err != nil {
		return notification.Notification{}, errors.Wrap(err, "inserting notification")
	}
	return ntf, nil
}

func (repo *notificationRepository) GetNotificationByID(ctx context.Context, id string) (notification.Notification, error) {
	var row notificationRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM notification WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return notification.Notification{}, notification.ErrNotFound
		}
		return notification.Notification{}, errors.Wrap(err, "getting notification")
	}
	return row.toCore(), nil
}

func (repo *notificationRepository) QueryNotificationsByRecipient(ctx context.Context, recipientID string, limit int) ([]notification.Notification, error) {
	query := `SELECT * FROM notification WHERE recipient_id = $1 ORDER BY created_at DESC`
	args := []interface{}{recipientID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	var rows []notificationRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying notifications")
	}
	ntfs := make([]notification.Notification, 0, len(rows))
	for _, row := range rows {
		ntfs = append(ntfs, row.toCore())
	}
	return ntfs, nil
}

func (repo *notificationRepository) MarkNotificationRead(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `UPDATE notification SET read = TRUE WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "marking notification read")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notification.ErrNotFound
	}
	return nil
}

func (repo *notificationRepository) MarkAllNotificationsRead(ctx context.Context, recipientID string) error {
	_, err := repo.db.ExecContext(ctx,
		`UPDATE notification SET read = TRUE WHERE recipient_id = $1 AND NOT read`, recipientID)
	return errors.Wrap(err, "marking notifications read")
}

func (repo *notificationRepository) CountUnreadNotifications(ctx context.Context, recipientID string) (int, error) {
	var count int
	err := repo.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM notification WHERE recipient_id = $1 AND NOT read`, recipientID)
	return count, errors.Wrap(err, "counting unread notifications")
}

func (repo *notificationRepository) DeleteNotificationsByRecipient(ctx context.Context, recipientID string) error {
	_, err := repo.db.ExecContext(ctx, `DELETE FROM notification WHERE recipient_id = $1`, recipientID)
	return errors.Wrap(err, "deleting notifications")
}
