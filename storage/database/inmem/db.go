// Package inmemdb is the canonical database engine: everything lives in
// maps guarded by RW mutexes, with optional JSON snapshots to a kv.Store so
// state survives restarts.
package inmemdb

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/cursohub/cursohub/core/comment"
	"github.com/cursohub/cursohub/core/material"
	"github.com/cursohub/cursohub/core/notification"
	"github.com/cursohub/cursohub/core/room"
	"github.com/cursohub/cursohub/core/user"
	"github.com/cursohub/cursohub/storage/kv"
)

// snapshot collection names
const (
	colUsers         = "users"
	colWatchProgress = "watch_progress"
	colRooms         = "rooms"
	colPlaylists     = "playlists"
	colVideos        = "videos"
	colEnrollments   = "enrollments"
	colComments      = "comments"
	colMaterials     = "materials"
	colNotifications = "notifications"
)

type (
	userTable struct {
		mutex sync.RWMutex
		table map[string]*user.User
	}
	progressTable struct {
		mutex sync.RWMutex
		table map[progressKey]*user.WatchProgress
	}
	roomTable struct {
		mutex sync.RWMutex
		table map[string]*room.Room
	}
	playlistTable struct {
		mutex sync.RWMutex
		table map[string]*room.Playlist
	}
	videoTable struct {
		mutex sync.RWMutex
		table map[string]*room.Video
	}
	enrollmentTable struct {
		mutex sync.RWMutex
		table map[membership]time.Time
	}
	commentTable struct {
		mutex sync.RWMutex
		table map[string]*comment.Comment
	}
	materialTable struct {
		mutex sync.RWMutex
		table map[string]*material.Material
	}
	notificationTable struct {
		mutex sync.RWMutex
		table map[string]*notification.Notification
	}
)

type progressKey struct {
	UserID  string `json:"user_id"`
	VideoID string `json:"video_id"`
}

// membership is the single enrollment relation; both the room-side and the
// user-side views derive from it.
type membership struct {
	RoomID string
	UserID string
}

type membershipRecord struct {
	RoomID     string    `json:"room_id"`
	UserID     string    `json:"user_id"`
	EnrolledAt time.Time `json:"enrolled_at"`
}

// userRecord reinstates the password hash that user.User hides from JSON.
type userRecord struct {
	user.User
	PasswordHash []byte `json:"password_hash"`
}

type DB struct {
	user         *userTable
	progress     *progressTable
	room         *roomTable
	playlist     *playlistTable
	video        *videoTable
	enrollment   *enrollmentTable
	comment      *commentTable
	material     *materialTable
	notification *notificationTable
}

func NewDB() *DB {
	return &DB{
		user:         &userTable{table: make(map[string]*user.User)},
		progress:     &progressTable{table: make(map[progressKey]*user.WatchProgress)},
		room:         &roomTable{table: make(map[string]*room.Room)},
		playlist:     &playlistTable{table: make(map[string]*room.Playlist)},
		video:        &videoTable{table: make(map[string]*room.Video)},
		enrollment:   &enrollmentTable{table: make(map[membership]time.Time)},
		comment:      &commentTable{table: make(map[string]*comment.Comment)},
		material:     &materialTable{table: make(map[string]*material.Material)},
		notification: &notificationTable{table: make(map[string]*notification.Notification)},
	}
}

// Snapshot dumps every collection to the store as JSON.
func (db *DB) Snapshot(ctx context.Context, store kv.Store) error {
	if err := db.saveUsers(ctx, store); err != nil {
		return err
	}
	if err := saveTable(ctx, store, colWatchProgress, &db.progress.mutex, db.progress.table); err != nil {
		return err
	}
	if err := saveTable(ctx, store, colRooms, &db.room.mutex, db.room.table); err != nil {
		return err
	}
	if err := saveTable(ctx, store, colPlaylists, &db.playlist.mutex, db.playlist.table); err != nil {
		return err
	}
	if err := saveTable(ctx, store, colVideos, &db.video.mutex, db.video.table); err != nil {
		return err
	}
	if err := db.saveEnrollments(ctx, store); err != nil {
		return err
	}
	if err := saveTable(ctx, store, colComments, &db.comment.mutex, db.comment.table); err != nil {
		return err
	}
	if err := saveTable(ctx, store, colMaterials, &db.material.mutex, db.material.table); err != nil {
		return err
	}
	return saveTable(ctx, store, colNotifications, &db.notification.mutex, db.notification.table)
}

// Restore replaces every collection with the store's snapshot. Collections
// missing from the store are left as they are.
func (db *DB) Restore(ctx context.Context, store kv.Store) error {
	if err := db.loadUsers(ctx, store); err != nil {
		return err
	}
	err := loadTable(ctx, store, colWatchProgress, &db.progress.mutex, &db.progress.table,
		func(wp user.WatchProgress) progressKey { return progressKey{UserID: wp.UserID, VideoID: wp.VideoID} })
	if err != nil {
		return err
	}
	err = loadTable(ctx, store, colRooms, &db.room.mutex, &db.room.table,
		func(rm room.Room) string { return rm.ID })
	if err != nil {
		return err
	}
	err = loadTable(ctx, store, colPlaylists, &db.playlist.mutex, &db.playlist.table,
		func(pl room.Playlist) string { return pl.ID })
	if err != nil {
		return err
	}
	err = loadTable(ctx, store, colVideos, &db.video.mutex, &db.video.table,
		func(vid room.Video) string { return vid.ID })
	if err != nil {
		return err
	}
	if err = db.loadEnrollments(ctx, store); err != nil {
		return err
	}
	err = loadTable(ctx, store, colComments, &db.comment.mutex, &db.comment.table,
		func(cmt comment.Comment) string { return cmt.ID })
	if err != nil {
		return err
	}
	err = loadTable(ctx, store, colMaterials, &db.material.mutex, &db.material.table,
		func(mat material.Material) string { return mat.ID })
	if err != nil {
		return err
	}
	return loadTable(ctx, store, colNotifications, &db.notification.mutex, &db.notification.table,
		func(ntf notification.Notification) string { return ntf.ID })
}

func saveTable[K comparable, V any](ctx context.Context, store kv.Store, name string, mutex *sync.RWMutex, table map[K]*V) error {
	mutex.RLock()
	values := make([]V, 0, len(table))
	for _, v := range table {
		values = append(values, *v)
	}
	mutex.RUnlock()

	data, err := json.Marshal(values)
	if err != nil {
		return errors.Wrapf(err, "marshaling %s", name)
	}
	return store.Save(ctx, name, data)
}

func loadTable[K comparable, V any](ctx context.Context, store kv.Store, name string, mutex *sync.RWMutex, table *map[K]*V, keyFn func(V) K) error {
	data, err := store.Load(ctx, name)
	if err != nil {
		if errors.Cause(err) == kv.ErrKeyNotFound {
			return nil
		}
		return err
	}
	var values []V
	if err = json.Unmarshal(data, &values); err != nil {
		return errors.Wrapf(err, "unmarshaling %s", name)
	}

	mutex.Lock()
	defer mutex.Unlock()
	*table = make(map[K]*V, len(values))
	for i := range values {
		v := values[i]
		(*table)[keyFn(v)] = &v
	}
	return nil
}

func (db *DB) saveUsers(ctx context.Context, store kv.Store) error {
	db.user.mutex.RLock()
	records := make([]userRecord, 0, len(db.user.table))
	for _, usr := range db.user.table {
		records = append(records, userRecord{User: *usr, PasswordHash: usr.PasswordHash})
	}
	db.user.mutex.RUnlock()

	data, err := json.Marshal(records)
	if err != nil {
		return errors.Wrap(err, "marshaling users")
	}
	return store.Save(ctx, colUsers, data)
}

func (db *DB) loadUsers(ctx context.Context, store kv.Store) error {
	data, err := store.Load(ctx, colUsers)
	if err != nil {
		if errors.Cause(err) == kv.ErrKeyNotFound {
			return nil
		}
		return err
	}
	var records []userRecord
	if err = json.Unmarshal(data, &records); err != nil {
		return errors.Wrap(err, "unmarshaling users")
	}

	db.user.mutex.Lock()
	defer db.user.mutex.Unlock()
	db.user.table = make(map[string]*user.User, len(records))
	for _, rec := range records {
		usr := rec.User
		usr.PasswordHash = rec.PasswordHash
		db.user.table[usr.ID] = &usr
	}
	return nil
}

func (db *DB) saveEnrollments(ctx context.Context, store kv.Store) error {
	db.enrollment.mutex.RLock()
	records := make([]membershipRecord, 0, len(db.enrollment.table))
	for m, at := range db.enrollment.table {
		records = append(records, membershipRecord{RoomID: m.RoomID, UserID: m.UserID, EnrolledAt: at})
	}
	db.enrollment.mutex.RUnlock()

	data, err := json.Marshal(records)
	if err != nil {
		return errors.Wrap(err, "marshaling enrollments")
	}
	return store.Save(ctx, colEnrollments, data)
}

func (db *DB) loadEnrollments(ctx context.Context, store kv.Store) error {
	data, err := store.Load(ctx, colEnrollments)
	if err != nil {
		if errors.Cause(err) == kv.ErrKeyNotFound {
			return nil
		}
		return err
	}
	var records []membershipRecord
	if err = json.Unmarshal(data, &records); err != nil {
		return errors.Wrap(err, "unmarshaling enrollments")
	}

	db.enrollment.mutex.Lock()
	defer db.enrollment.mutex.Unlock()
	db.enrollment.table = make(map[membership]time.Time, len(records))
	for _, rec := range records {
		db.enrollment.table[membership{RoomID: rec.RoomID, UserID: rec.UserID}] = rec.EnrolledAt
	}
	return nil
}
