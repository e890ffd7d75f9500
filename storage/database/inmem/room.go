package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/cursohub/cursohub/core/room"
)

type roomRepository struct {
	rooms       *roomTable
	playlists   *playlistTable
	videos      *videoTable
	enrollments *enrollmentTable
}

func NewRoomRepository(db *DB) room.Repository {
	return &roomRepository{
		rooms:       db.room,
		playlists:   db.playlist,
		videos:      db.video,
		enrollments: db.enrollment,
	}
}

func (repo *roomRepository) queryRooms() []room.Room {
	rooms := make([]room.Room, 0, len(repo.rooms.table))
	for _, rm := range repo.rooms.table {
		rooms = append(rooms, *rm)
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].CreatedAt.Before(rooms[j].CreatedAt) })
	return rooms
}

// inviteCodeTaken must be called with at least a read lock held.
func (repo *roomRepository) inviteCodeTaken(code, excludedRoomID string) bool {
	for _, rm := range repo.rooms.table {
		if rm.InviteCode == code && rm.ID != excludedRoomID {
			return true
		}
	}
	return false
}

func (repo *roomRepository) CreateRoom(ctx context.Context, rm room.Room) (room.Room, error) {
	repo.rooms.mutex.Lock()
	defer repo.rooms.mutex.Unlock()

	if repo.inviteCodeTaken(rm.InviteCode, rm.ID) {
		return room.Room{}, room.ErrInviteCodeExists
	}
	repo.rooms.table[rm.ID] = &rm
	return rm, nil
}

func (repo *roomRepository) GetRoomByID(ctx context.Context, id string) (room.Room, error) {
	repo.rooms.mutex.RLock()
	defer repo.rooms.mutex.RUnlock()

	if rm, ok := repo.rooms.table[id]; ok {
		return *rm, nil
	}
	return room.Room{}, room.ErrNotFound
}

func (repo *roomRepository) GetRoomByInviteCode(ctx context.Context, code string) (room.Room, error) {
	repo.rooms.mutex.RLock()
	defer repo.rooms.mutex.RUnlock()

	for _, rm := range repo.rooms.table {
		if rm.InviteCode == code {
			return *rm, nil
		}
	}
	return room.Room{}, room.ErrNotFound
}

func (repo *roomRepository) QueryAllRooms(ctx context.Context) ([]room.Room, error) {
	repo.rooms.mutex.RLock()
	defer repo.rooms.mutex.RUnlock()
	return repo.queryRooms(), nil
}

func (repo *roomRepository) QueryRoomsByOwner(ctx context.Context, ownerID string) ([]room.Room, error) {
	repo.rooms.mutex.RLock()
	defer repo.rooms.mutex.RUnlock()

	rooms := make([]room.Room, 0)
	for _, rm := range repo.queryRooms() {
		if rm.OwnerID == ownerID {
			rooms = append(rooms, rm)
		}
	}
	return rooms, nil
}

func (repo *roomRepository) UpdateRoom(ctx context.Context, id string, ch room.RoomChanges) (room.Room, error) {
	repo.rooms.mutex.Lock()
	defer repo.rooms.mutex.Unlock()

	// only save set fields
	origRm, ok := repo.rooms.table[id]
	if !ok {
		return room.Room{}, room.ErrNotFound
	}
	if ch.InviteCode != "" {
		if repo.inviteCodeTaken(ch.InviteCode, id) {
			return room.Room{}, room.ErrInviteCodeExists
		}
		origRm.InviteCode = ch.InviteCode
	}
	if ch.Name != "" {
		origRm.Name = ch.Name
	}
	if ch.Description.Valid {
		origRm.Description = ch.Description.String
	}
	origRm.UpdatedAt = ch.UpdatedAt

	repo.rooms.table[id] = origRm
	return *origRm, nil
}

func (repo *roomRepository) DeleteRoomsByID(ctx context.Context, ids ...string) error {
	repo.rooms.mutex.Lock()
	defer repo.rooms.mutex.Unlock()
	for _, id := range ids {
		delete(repo.rooms.table, id)
	}
	return nil
}

func (repo *roomRepository) CreatePlaylist(ctx context.Context, pl room.Playlist) (room.Playlist, error) {
	repo.playlists.mutex.Lock()
	defer repo.playlists.mutex.Unlock()

	repo.playlists.table[pl.ID] = &pl
	return pl, nil
}

func (repo *roomRepository) GetPlaylistByID(ctx context.Context, id string) (room.Playlist, error) {
	repo.playlists.mutex.RLock()
	defer repo.playlists.mutex.RUnlock()

	if pl, ok := repo.playlists.table[id]; ok {
		return *pl, nil
	}
	return room.Playlist{}, room.ErrPlaylistNotFound
}

func (repo *roomRepository) QueryPlaylistsByRoom(ctx context.Context, roomID string) ([]room.Playlist, error) {
	repo.playlists.mutex.RLock()
	defer repo.playlists.mutex.RUnlock()

	playlists := make([]room.Playlist, 0)
	for _, pl := range repo.playlists.table {
		if pl.RoomID == roomID {
			playlists = append(playlists, *pl)
		}
	}
	sort.Slice(playlists, func(i, j int) bool {
		if playlists[i].Position != playlists[j].Position {
			return playlists[i].Position < playlists[j].Position
		}
		return playlists[i].CreatedAt.Before(playlists[j].CreatedAt)
	})
	return playlists, nil
}

func (repo *roomRepository) UpdatePlaylist(ctx context.Context, pl room.Playlist) (room.Playlist, error) {
	repo.playlists.mutex.Lock()
	defer repo.playlists.mutex.Unlock()

	// only save set fields
	origPl, ok := repo.playlists.table[pl.ID]
	if !ok {
		return room.Playlist{}, room.ErrPlaylistNotFound
	}
	if pl.Name != "" {
		origPl.Name = pl.Name
	}
	if pl.Position >= 0 {
		origPl.Position = pl.Position
	}
	origPl.UpdatedAt = pl.UpdatedAt

	repo.playlists.table[pl.ID] = origPl
	return *origPl, nil
}

func (repo *roomRepository) DeletePlaylistsByID(ctx context.Context, ids ...string) error {
	repo.playlists.mutex.Lock()
	defer repo.playlists.mutex.Unlock()
	for _, id := range ids {
		delete(repo.playlists.table, id)
	}
	return nil
}

func (repo *roomRepository) CreateVideo(ctx context.Context, vid room.Video) (room.Video, error) {
	repo.videos.mutex.Lock()
	defer repo.videos.mutex.Unlock()

	repo.videos.table[vid.ID] = &vid
	return vid, nil
}

func (repo *roomRepository) GetVideoByID(ctx context.Context, id string) (room.Video, error) {
	repo.videos.mutex.RLock()
	defer repo.videos.mutex.RUnlock()

	if vid, ok := repo.videos.table[id]; ok {
		return *vid, nil
	}
	return room.Video{}, room.ErrVideoNotFound
}

func (repo *roomRepository) QueryVideosByPlaylist(ctx context.Context, playlistID string) ([]room.Video, error) {
	repo.videos.mutex.RLock()
	defer repo.videos.mutex.RUnlock()

	videos := make([]room.Video, 0)
	for _, vid := range repo.videos.table {
		if vid.PlaylistID == playlistID {
			videos = append(videos, *vid)
		}
	}
	sortVideos(videos)
	return videos, nil
}

func (repo *roomRepository) QueryVideosByRoom(ctx context.Context, roomID string) ([]room.Video, error) {
	repo.videos.mutex.RLock()
	defer repo.videos.mutex.RUnlock()

	videos := make([]room.Video, 0)
	for _, vid := range repo.videos.table {
		if vid.RoomID == roomID {
			videos = append(videos, *vid)
		}
	}
	sortVideos(videos)
	return videos, nil
}

func (repo *roomRepository) UpdateVideo(ctx context.Context, vid room.Video) (room.Video, error) {
	repo.videos.mutex.Lock()
	defer repo.videos.mutex.Unlock()

	// only save set fields
	origVid, ok := repo.videos.table[vid.ID]
	if !ok {
		return room.Video{}, room.ErrVideoNotFound
	}
	if vid.Title != "" {
		origVid.Title = vid.Title
	}
	if vid.SourceURL != "" {
		origVid.SourceURL = vid.SourceURL
	}
	if vid.Description != "" {
		origVid.Description = vid.Description
	}
	if vid.Position >= 0 {
		origVid.Position = vid.Position
	}
	origVid.UpdatedAt = vid.UpdatedAt

	repo.videos.table[vid.ID] = origVid
	return *origVid, nil
}

func (repo *roomRepository) DeleteVideosByID(ctx context.Context, ids ...string) error {
	repo.videos.mutex.Lock()
	defer repo.videos.mutex.Unlock()
	for _, id := range ids {
		delete(repo.videos.table, id)
	}
	return nil
}

func (repo *roomRepository) SearchVideos(ctx context.Context, query, roomID string) ([]room.Video, error) {
	repo.videos.mutex.RLock()
	defer repo.videos.mutex.RUnlock()

	query = strings.ToLower(query)
	videos := make([]room.Video, 0)
	for _, vid := range repo.videos.table {
		if roomID != "" && vid.RoomID != roomID {
			continue
		}
		if strings.Contains(strings.ToLower(vid.Title), query) ||
			strings.Contains(strings.ToLower(vid.Description), query) {
			videos = append(videos, *vid)
		}
	}
	sortVideos(videos)
	return videos, nil
}

func (repo *roomRepository) Enroll(ctx context.Context, roomID, userID string) error {
	repo.enrollments.mutex.Lock()
	defer repo.enrollments.mutex.Unlock()

	m := membership{RoomID: roomID, UserID: userID}
	if _, ok := repo.enrollments.table[m]; ok {
		return room.ErrAlreadyEnrolled
	}
	repo.enrollments.table[m] = time.Now().UTC()
	return nil
}

func (repo *roomRepository) Unenroll(ctx context.Context, roomID, userID string) error {
	repo.enrollments.mutex.Lock()
	defer repo.enrollments.mutex.Unlock()

	m := membership{RoomID: roomID, UserID: userID}
	if _, ok := repo.enrollments.table[m]; !ok {
		return room.ErrNotEnrolled
	}
	delete(repo.enrollments.table, m)
	return nil
}

func (repo *roomRepository) IsEnrolled(ctx context.Context, roomID, userID string) (bool, error) {
	repo.enrollments.mutex.RLock()
	defer repo.enrollments.mutex.RUnlock()

	_, ok := repo.enrollments.table[membership{RoomID: roomID, UserID: userID}]
	return ok, nil
}

func (repo *roomRepository) QueryEnrolledStudentIDs(ctx context.Context, roomID string) ([]string, error) {
	repo.enrollments.mutex.RLock()
	defer repo.enrollments.mutex.RUnlock()

	ids := make([]string, 0)
	for m := range repo.enrollments.table {
		if m.RoomID == roomID {
			ids = append(ids, m.UserID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (repo *roomRepository) QueryEnrolledRoomIDs(ctx context.Context, userID string) ([]string, error) {
	repo.enrollments.mutex.RLock()
	defer repo.enrollments.mutex.RUnlock()

	ids := make([]string, 0)
	for m := range repo.enrollments.table {
		if m.UserID == userID {
			ids = append(ids, m.RoomID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (repo *roomRepository) DeleteEnrollmentsByRoom(ctx context.Context, roomID string) error {
	repo.enrollments.mutex.Lock()
	defer repo.enrollments.mutex.Unlock()

	for m := range repo.enrollments.table {
		if m.RoomID == roomID {
			delete(repo.enrollments.table, m)
		}
	}
	return nil
}

func sortVideos(videos []room.Video) {
	sort.Slice(videos, func(i, j int) bool {
		if videos[i].PlaylistID != videos[j].PlaylistID {
			return videos[i].PlaylistID < videos[j].PlaylistID
		}
		if videos[i].Position != videos[j].Position {
			return videos[i].Position < videos[j].Position
		}
		return videos[i].CreatedAt.Before(videos[j].CreatedAt)
	})
}
