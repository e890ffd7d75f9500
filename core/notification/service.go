package notification

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ListLimit caps inbox listings to the most recent entries.
const ListLimit = 50

var ErrNotFound = errors.New("notification not found")

type (
	Repository interface {
		CreateNotification(ctx context.Context, ntf Notification) (Notification, error)
		GetNotificationByID(ctx context.Context, id string) (Notification, error)
		// QueryNotificationsByRecipient returns entries most-recent-first,
		// at most limit of them (no limit if limit <= 0).
		QueryNotificationsByRecipient(ctx context.Context, recipientID string, limit int) ([]Notification, error)
		MarkNotificationRead(ctx context.Context, id string) error
		MarkAllNotificationsRead(ctx context.Context, recipientID string) error
		CountUnreadNotifications(ctx context.Context, recipientID string) (int, error)
		DeleteNotificationsByRecipient(ctx context.Context, recipientID string) error
	}

	Service interface {
		Add(ctx context.Context, nn NewNotification) (Notification, error)
		ListForUser(ctx context.Context, userID string) ([]Notification, error)
		MarkRead(ctx context.Context, userID, notificationID string) error
		MarkAllRead(ctx context.Context, userID string) error
		UnreadCount(ctx context.Context, userID string) (int, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// Add is called by the other stores as part of their own mutations; it is
// never exposed to end users directly.
func (svc *service) Add(ctx context.Context, nn NewNotification) (Notification, error) {
	ntf := Notification{
		ID:          uuid.New().String(),
		RecipientID: nn.RecipientID,
		Type:        nn.Type,
		Title:       nn.Title,
		Message:     nn.Message,
		RoomID:      nn.RoomID,
		VideoID:     nn.VideoID,
		CommentID:   nn.CommentID,
		CreatedAt:   time.Now().UTC(),
	}
	return svc.repo.CreateNotification(ctx, ntf)
}

func (svc *service) ListForUser(ctx context.Context, userID string) ([]Notification, error) {
	return svc.repo.QueryNotificationsByRecipient(ctx, userID, ListLimit)
}

func (svc *service) MarkRead(ctx context.Context, userID, notificationID string) error {
	ntf, err := svc.repo.GetNotificationByID(ctx, notificationID)
	if err != nil {
		return err
	}
	// foreign inboxes look empty
	if ntf.RecipientID != userID {
		return ErrNotFound
	}
	return svc.repo.MarkNotificationRead(ctx, notificationID)
}

func (svc *service) MarkAllRead(ctx context.Context, userID string) error {
	return svc.repo.MarkAllNotificationsRead(ctx, userID)
}

func (svc *service) UnreadCount(ctx context.Context, userID string) (int, error) {
	return svc.repo.CountUnreadNotifications(ctx, userID)
}
