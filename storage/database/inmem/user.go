package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/cursohub/cursohub/core/user"
)

type userRepository struct {
	users    *userTable
	progress *progressTable
}

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{users: db.user, progress: db.progress}
}

func (repo *userRepository) query() []user.User {
	users := make([]user.User, 0, len(repo.users.table))
	for _, usr := range repo.users.table {
		users = append(users, *usr)
	}
	return users
}

func (repo *userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...user.User) error {
	repo.users.mutex.RLock()
	defer repo.users.mutex.RUnlock()

	exclUsrsLen := len(excludedUsers)
	if exclUsrsLen > 1 {
		sort.Slice(excludedUsers, func(i, j int) bool { return excludedUsers[i].ID < excludedUsers[j].ID })
	}

	for _, usr := range repo.query() {
		if strings.EqualFold(usr.Email, email) && !isExcluded(usr, excludedUsers, exclUsrsLen) {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	repo.users.mutex.Lock()
	defer repo.users.mutex.Unlock()

	repo.users.table[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) QueryAllUsers(ctx context.Context) ([]user.User, error) {
	repo.users.mutex.RLock()
	defer repo.users.mutex.RUnlock()
	return repo.query(), nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	repo.users.mutex.RLock()
	defer repo.users.mutex.RUnlock()

	if usr, ok := repo.users.table[id]; ok {
		return *usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	repo.users.mutex.RLock()
	defer repo.users.mutex.RUnlock()

	for _, usr := range repo.query() {
		if strings.EqualFold(usr.Email, email) {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) FilterUsersByRole(ctx context.Context, role string) ([]user.User, error) {
	repo.users.mutex.RLock()
	defer repo.users.mutex.RUnlock()

	users := make([]user.User, 0)
	for _, usr := range repo.query() {
		if usr.Role == role {
			users = append(users, usr)
		}
	}
	return users, nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User, isActive *bool) (user.User, error) {
	repo.users.mutex.Lock()
	defer repo.users.mutex.Unlock()

	// only save set fields
	origUsr, ok := repo.users.table[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	if usr.Name != "" {
		origUsr.Name = usr.Name
	}
	if usr.Avatar != "" {
		origUsr.Avatar = usr.Avatar
	}
	if usr.PasswordHash != nil {
		origUsr.PasswordHash = usr.PasswordHash
	}
	if !usr.LastLogin.IsZero() {
		origUsr.LastLogin = usr.LastLogin
	}
	if isActive != nil {
		origUsr.IsActive = *isActive
	}
	origUsr.UpdatedAt = usr.UpdatedAt

	repo.users.table[usr.ID] = origUsr
	return *origUsr, nil
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids ...string) error {
	repo.users.mutex.Lock()
	defer repo.users.mutex.Unlock()
	for _, id := range ids {
		delete(repo.users.table, id)
	}
	return nil
}

func (repo *userRepository) UpsertWatchProgress(ctx context.Context, wp user.WatchProgress) (user.WatchProgress, error) {
	repo.progress.mutex.Lock()
	defer repo.progress.mutex.Unlock()

	repo.progress.table[progressKey{UserID: wp.UserID, VideoID: wp.VideoID}] = &wp
	return wp, nil
}

func (repo *userRepository) GetWatchProgress(ctx context.Context, userID, videoID string) (user.WatchProgress, error) {
	repo.progress.mutex.RLock()
	defer repo.progress.mutex.RUnlock()

	if wp, ok := repo.progress.table[progressKey{UserID: userID, VideoID: videoID}]; ok {
		return *wp, nil
	}
	return user.WatchProgress{}, user.ErrNotFound
}

func (repo *userRepository) QueryWatchProgressByUser(ctx context.Context, userID string) ([]user.WatchProgress, error) {
	repo.progress.mutex.RLock()
	defer repo.progress.mutex.RUnlock()

	wps := make([]user.WatchProgress, 0)
	for _, wp := range repo.progress.table {
		if wp.UserID == userID {
			wps = append(wps, *wp)
		}
	}
	return wps, nil
}

func (repo *userRepository) QueryWatchProgressByVideoIDs(ctx context.Context, videoIDs ...string) ([]user.WatchProgress, error) {
	repo.progress.mutex.RLock()
	defer repo.progress.mutex.RUnlock()

	wanted := make(map[string]bool, len(videoIDs))
	for _, id := range videoIDs {
		wanted[id] = true
	}
	wps := make([]user.WatchProgress, 0)
	for _, wp := range repo.progress.table {
		if wanted[wp.VideoID] {
			wps = append(wps, *wp)
		}
	}
	return wps, nil
}

func isExcluded(usr user.User, excludedUsers []user.User, n int) bool {
	if n <= 0 {
		return false
	}
	idx := sort.Search(n, func(i int) bool { return excludedUsers[i].ID >= usr.ID })
	return idx < n && excludedUsers[idx].ID == usr.ID
}
