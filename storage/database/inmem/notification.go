package inmemdb

import (
	"context"
	"sort"

	"github.com/cursohub/cursohub/core/notification"
)

type notificationRepository struct {
	notifications *notificationTable
}

func NewNotificationRepository(db *DB) notification.Repository {
	return &notificationRepository{notifications: db.notification}
}

func (repo *notificationRepository) CreateNotification(ctx context.Context, ntf notification.Notification) (notification.Notification, error) {
	repo.notifications.mutex.Lock()
	defer repo.notifications.mutex.Unlock()

	repo.notifications.table[ntf.ID] = &ntf
	return ntf, nil
}

func (repo *notificationRepository) GetNotificationByID(ctx context.Context, id string) (notification.Notification, error) {
	repo.notifications.mutex.RLock()
	defer repo.notifications.mutex.RUnlock()

	if ntf, ok := repo.notifications.table[id]; ok {
		return *ntf, nil
	}
	return notification.Notification{}, notification.ErrNotFound
}

func (repo *notificationRepository) QueryNotificationsByRecipient(ctx context.Context, recipientID string, limit int) ([]notification.Notification, error) {
	repo.notifications.mutex.RLock()
	defer repo.notifications.mutex.RUnlock()

	ntfs := make([]notification.Notification, 0)
	for _, ntf := range repo.notifications.table {
		if ntf.RecipientID == recipientID {
			ntfs = append(ntfs, *ntf)
		}
	}
	sort.Slice(ntfs, func(i, j int) bool { return ntfs[i].CreatedAt.After(ntfs[j].CreatedAt) })
	if limit > 0 && len(ntfs) > limit {
		ntfs = ntfs[:limit]
	}
	return ntfs, nil
}

func (repo *notificationRepository) MarkNotificationRead(ctx context.Context, id string) error {
	repo.notifications.mutex.Lock()
	defer repo.notifications.mutex.Unlock()

	ntf, ok := repo.notifications.table[id]
	if !ok {
		return notification.ErrNotFound
	}
	ntf.Read = true
	return nil
}

func (repo *notificationRepository) MarkAllNotificationsRead(ctx context.Context, recipientID string) error {
	repo.notifications.mutex.Lock()
	defer repo.notifications.mutex.Unlock()

	for _, ntf := range repo.notifications.table {
		if ntf.RecipientID == recipientID {
			ntf.Read = true
		}
	}
	return nil
}

func (repo *notificationRepository) CountUnreadNotifications(ctx context.Context, recipientID string) (int, error) {
	repo.notifications.mutex.RLock()
	defer repo.notifications.mutex.RUnlock()

	var count int
	for _, ntf := range repo.notifications.table {
		if ntf.RecipientID == recipientID && !ntf.Read {
			count++
		}
	}
	return count, nil
}

func (repo *notificationRepository) DeleteNotificationsByRecipient(ctx context.Context, recipientID string) error {
	repo.notifications.mutex.Lock()
	defer repo.notifications.mutex.Unlock()

	for id, ntf := range repo.notifications.table {
		if ntf.RecipientID == recipientID {
			delete(repo.notifications.table, id)
		}
	}
	return nil
}
