package room

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/cursohub/cursohub/core"
	"github.com/cursohub/cursohub/core/notification"
	"github.com/cursohub/cursohub/core/user"
)

var (
	// errors
	ErrNotFound          = errors.New("room not found")
	ErrPlaylistNotFound  = errors.New("playlist not found")
	ErrVideoNotFound     = errors.New("video not found")
	ErrInviteCodeExists  = errors.New("a room with this invite code already exists")
	ErrInvalidInviteCode = errors.New("invalid invite code")
	ErrAlreadyEnrolled   = errors.New("student is already enrolled in this room")
	ErrNotEnrolled       = errors.New("student is not enrolled in this room")
)

// maxInviteCodeAttempts bounds the generate-insert-retry loop on code clashes.
const maxInviteCodeAttempts = 100

type (
	Repository interface {
		// CreateRoom fails with ErrInviteCodeExists when the room's invite
		// code is already taken (insert-then-retry, not check-then-insert).
		CreateRoom(ctx context.Context, rm Room) (Room, error)
		GetRoomByID(ctx context.Context, id string) (Room, error)
		GetRoomByInviteCode(ctx context.Context, code string) (Room, error)
		QueryAllRooms(ctx context.Context) ([]Room, error)
		QueryRoomsByOwner(ctx context.Context, ownerID string) ([]Room, error)
		// UpdateRoom only saves set fields; UpdatedAt is always saved.
		// Fails with ErrInviteCodeExists on a code clash.
		UpdateRoom(ctx context.Context, id string, ch RoomChanges) (Room, error)
		DeleteRoomsByID(ctx context.Context, ids ...string) error

		CreatePlaylist(ctx context.Context, pl Playlist) (Playlist, error)
		GetPlaylistByID(ctx context.Context, id string) (Playlist, error)
		// QueryPlaylistsByRoom returns playlists ordered by Position.
		QueryPlaylistsByRoom(ctx context.Context, roomID string) ([]Playlist, error)
		// UpdatePlaylist only saves set fields: Name; Position when >= 0.
		UpdatePlaylist(ctx context.Context, pl Playlist) (Playlist, error)
		DeletePlaylistsByID(ctx context.Context, ids ...string) error

		CreateVideo(ctx context.Context, vid Video) (Video, error)
		GetVideoByID(ctx context.Context, id string) (Video, error)
		// QueryVideosByPlaylist returns videos ordered by Position.
		QueryVideosByPlaylist(ctx context.Context, playlistID string) ([]Video, error)
		QueryVideosByRoom(ctx context.Context, roomID string) ([]Video, error)
		// UpdateVideo only saves set fields: Title, SourceURL, Description;
		// Position when >= 0.
		UpdateVideo(ctx context.Context, vid Video) (Video, error)
		DeleteVideosByID(ctx context.Context, ids ...string) error
		// SearchVideos does a case-insensitive substring match on Title or
		// Description, scoped to one room when roomID is non-empty.
		SearchVideos(ctx context.Context, query, roomID string) ([]Video, error)

		// Membership is a single relation keyed (roomID, userID): both the
		// room-side and the user-side views derive from it, so they can
		// never disagree.
		Enroll(ctx context.Context, roomID, userID string) error // ErrAlreadyEnrolled
		Unenroll(ctx context.Context, roomID, userID string) error // ErrNotEnrolled
		IsEnrolled(ctx context.Context, roomID, userID string) (bool, error)
		QueryEnrolledStudentIDs(ctx context.Context, roomID string) ([]string, error)
		QueryEnrolledRoomIDs(ctx context.Context, userID string) ([]string, error)
		DeleteEnrollmentsByRoom(ctx context.Context, roomID string) error
	}

	// CommentStore is the slice of the comment repository the directory
	// needs for cascades and stats.
	CommentStore interface {
		DeleteCommentsByVideoIDs(ctx context.Context, videoIDs ...string) error
		CountCommentsByRoom(ctx context.Context, roomID string) (total, openQuestions int, err error)
	}

	// MaterialStore is the slice of the material repository the directory
	// needs for cascades.
	MaterialStore interface {
		DeleteMaterialsByVideoIDs(ctx context.Context, videoIDs ...string) error
		DeleteMaterialsByPlaylistIDs(ctx context.Context, playlistIDs ...string) error
		DeleteMaterialsByRoomIDs(ctx context.Context, roomIDs ...string) error
	}

	Service interface {
		CreateRoom(ctx context.Context, actor user.User, nr NewRoom) (Room, error)
		GetRoom(ctx context.Context, id string) (Room, error)
		GetMyRooms(ctx context.Context, actor user.User) ([]Room, error)
		GetAllRooms(ctx context.Context) ([]Room, error)
		UpdateRoom(ctx context.Context, actor user.User, id string, ur UpdateRoom) (Room, error)
		DeleteRoom(ctx context.Context, actor user.User, id string) error
		RegenerateInviteCode(ctx context.Context, actor user.User, roomID string) (Room, error)

		CreatePlaylist(ctx context.Context, actor user.User, roomID string, np NewPlaylist) (Playlist, error)
		UpdatePlaylist(ctx context.Context, actor user.User, playlistID, name string) (Playlist, error)
		DeletePlaylist(ctx context.Context, actor user.User, playlistID string) error
		ReorderPlaylists(ctx context.Context, actor user.User, roomID string, orderedIDs []string) error
		QueryPlaylists(ctx context.Context, roomID string) ([]Playlist, error)

		AddVideo(ctx context.Context, actor user.User, roomID, playlistID string, nv NewVideo) (Video, error)
		GetVideo(ctx context.Context, id string) (Video, error)
		UpdateVideo(ctx context.Context, actor user.User, videoID string, uv UpdateVideo) (Video, error)
		DeleteVideo(ctx context.Context, actor user.User, videoID string) error
		ReorderVideos(ctx context.Context, actor user.User, playlistID string, orderedIDs []string) error
		QueryVideos(ctx context.Context, playlistID string) ([]Video, error)
		SearchVideos(ctx context.Context, query, roomID string) ([]Video, error)

		EnrollByInviteCode(ctx context.Context, actor user.User, code string) (Room, error)
		AddStudentToRoom(ctx context.Context, actor user.User, roomID, studentID string) error
		RemoveStudentFromRoom(ctx context.Context, actor user.User, roomID, studentID string) error
		EnrolledRoomIDs(ctx context.Context, userID string) ([]string, error)

		GetRoomStats(ctx context.Context, actor user.User, roomID string) (RoomStats, error)

		// lookups consumed by the comment and material subsystems
		VideoRefs(ctx context.Context, videoID string) (roomID, playlistID string, err error)
		PlaylistRoomID(ctx context.Context, playlistID string) (string, error)
		RoomOwnerID(ctx context.Context, roomID string) (string, error)
		IsEnrolled(ctx context.Context, roomID, userID string) (bool, error)
	}

	service struct {
		repo      Repository
		usrSvc    user.Service
		notifSvc  notification.Service
		comments  CommentStore
		materials MaterialStore
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, usrSvc user.Service, notifSvc notification.Service, comments CommentStore, materials MaterialStore) Service {
	return &service{
		repo:      repo,
		usrSvc:    usrSvc,
		notifSvc:  notifSvc,
		comments:  comments,
		materials: materials,
	}
}

// ownedRoom fetches a room and checks that actor is its owning instructor.
func (svc *service) ownedRoom(ctx context.Context, actor user.User, roomID string) (Room, error) {
	rm, err := svc.repo.GetRoomByID(ctx, roomID)
	if err != nil {
		return Room{}, err
	}
	if rm.OwnerID != actor.ID {
		return Room{}, core.ErrPermissionDenied
	}
	return rm, nil
}

func (svc *service) withMembers(ctx context.Context, rm Room) (Room, error) {
	ids, err := svc.repo.QueryEnrolledStudentIDs(ctx, rm.ID)
	if err != nil {
		return Room{}, errors.Wrap(err, "querying enrolled students")
	}
	rm.EnrolledStudentIDs = ids
	return rm, nil
}

func (svc *service) CreateRoom(ctx context.Context, actor user.User, nr NewRoom) (Room, error) {
	if !actor.IsInstructor() {
		return Room{}, core.ErrPermissionDenied
	}

	now := time.Now().UTC()
	rm := Room{
		ID:          uuid.New().String(),
		OwnerID:     actor.ID,
		Name:        nr.Name,
		Description: nr.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	// insert with a fresh code, retrying on a clash
	for attempt := 0; attempt < maxInviteCodeAttempts; attempt++ {
		code, err := generateInviteCode()
		if err != nil {
			return Room{}, err
		}
		rm.InviteCode = code

		created, err := svc.repo.CreateRoom(ctx, rm)
		if err == nil {
			return created, nil
		}
		if errors.Cause(err) != ErrInviteCodeExists {
			return Room{}, errors.Wrap(err, "creating room")
		}
	}
	return Room{}, errCodeSpaceExhausted
}

func (svc *service) GetRoom(ctx context.Context, id string) (Room, error) {
	rm, err := svc.repo.GetRoomByID(ctx, id)
	if err != nil {
		return Room{}, err
	}
	return svc.withMembers(ctx, rm)
}

func (svc *service) GetMyRooms(ctx context.Context, actor user.User) ([]Room, error) {
	if actor.IsInstructor() {
		rooms, err := svc.repo.QueryRoomsByOwner(ctx, actor.ID)
		if err != nil {
			return nil, err
		}
		return svc.withMembersAll(ctx, rooms)
	}

	roomIDs, err := svc.repo.QueryEnrolledRoomIDs(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	rooms := make([]Room, 0, len(roomIDs))
	for _, id := range roomIDs {
		rm, err := svc.repo.GetRoomByID(ctx, id)
		if err != nil {
			return nil, errors.Wrapf(err, "finding enrolled room %s", id)
		}
		rooms = append(rooms, rm)
	}
	return svc.withMembersAll(ctx, rooms)
}

func (svc *service) withMembersAll(ctx context.Context, rooms []Room) ([]Room, error) {
	for i, rm := range rooms {
		full, err := svc.withMembers(ctx, rm)
		if err != nil {
			return nil, err
		}
		rooms[i] = full
	}
	return rooms, nil
}

func (svc *service) GetAllRooms(ctx context.Context) ([]Room, error) {
	rooms, err := svc.repo.QueryAllRooms(ctx)
	if err != nil {
		return nil, err
	}
	return svc.withMembersAll(ctx, rooms)
}

func (svc *service) UpdateRoom(ctx context.Context, actor user.User, id string, ur UpdateRoom) (Room, error) {
	if _, err := svc.ownedRoom(ctx, actor, id); err != nil {
		return Room{}, err
	}
	rm, err := svc.repo.UpdateRoom(ctx, id, RoomChanges{
		Name:        ur.Name,
		Description: ur.Description,
		UpdatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return Room{}, errors.Wrap(err, "updating room")
	}
	return svc.withMembers(ctx, rm)
}

// DeleteRoom removes the room and every descendant: playlists, their videos,
// those videos' comments and materials, materials scoped to the room or its
// playlists, and the membership relation. All of it is gone when this
// returns.
func (svc *service) DeleteRoom(ctx context.Context, actor user.User, id string) error {
	if _, err := svc.ownedRoom(ctx, actor, id); err != nil {
		return err
	}

	playlists, err := svc.repo.QueryPlaylistsByRoom(ctx, id)
	if err != nil {
		return errors.Wrap(err, "querying playlists")
	}
	videos, err := svc.repo.QueryVideosByRoom(ctx, id)
	if err != nil {
		return errors.Wrap(err, "querying videos")
	}

	playlistIDs := make([]string, 0, len(playlists))
	for _, pl := range playlists {
		playlistIDs = append(playlistIDs, pl.ID)
	}
	videoIDs := make([]string, 0, len(videos))
	for _, vid := range videos {
		videoIDs = append(videoIDs, vid.ID)
	}

	if err = svc.comments.DeleteCommentsByVideoIDs(ctx, videoIDs...); err != nil {
		return errors.Wrap(err, "deleting comments")
	}
	if err = svc.materials.DeleteMaterialsByVideoIDs(ctx, videoIDs...); err != nil {
		return errors.Wrap(err, "deleting video materials")
	}
	if err = svc.materials.DeleteMaterialsByPlaylistIDs(ctx, playlistIDs...); err != nil {
		return errors.Wrap(err, "deleting playlist materials")
	}
	if err = svc.materials.DeleteMaterialsByRoomIDs(ctx, id); err != nil {
		return errors.Wrap(err, "deleting room materials")
	}
	if err = svc.repo.DeleteVideosByID(ctx, videoIDs...); err != nil {
		return errors.Wrap(err, "deleting videos")
	}
	if err = svc.repo.DeletePlaylistsByID(ctx, playlistIDs...); err != nil {
		return errors.Wrap(err, "deleting playlists")
	}
	if err = svc.repo.DeleteEnrollmentsByRoom(ctx, id); err != nil {
		return errors.Wrap(err, "deleting enrollments")
	}
	return errors.Wrap(svc.repo.DeleteRoomsByID(ctx, id), "deleting room")
}

// RegenerateInviteCode replaces the code; the old one stops resolving
// immediately. Enrollment is untouched.
func (svc *service) RegenerateInviteCode(ctx context.Context, actor user.User, roomID string) (Room, error) {
	if _, err := svc.ownedRoom(ctx, actor, roomID); err != nil {
		return Room{}, err
	}

	for attempt := 0; attempt < maxInviteCodeAttempts; attempt++ {
		code, err := generateInviteCode()
		if err != nil {
			return Room{}, err
		}
		rm, err := svc.repo.UpdateRoom(ctx, roomID, RoomChanges{InviteCode: code, UpdatedAt: time.Now().UTC()})
		if err == nil {
			return svc.withMembers(ctx, rm)
		}
		if errors.Cause(err) != ErrInviteCodeExists {
			return Room{}, errors.Wrap(err, "updating room")
		}
	}
	return Room{}, errCodeSpaceExhausted
}

func (svc *service) CreatePlaylist(ctx context.Context, actor user.User, roomID string, np NewPlaylist) (Playlist, error) {
	rm, err := svc.ownedRoom(ctx, actor, roomID)
	if err != nil {
		return Playlist{}, err
	}
	existing, err := svc.repo.QueryPlaylistsByRoom(ctx, roomID)
	if err != nil {
		return Playlist{}, errors.Wrap(err, "querying playlists")
	}

	now := time.Now().UTC()
	pl, err := svc.repo.CreatePlaylist(ctx, Playlist{
		ID:        uuid.New().String(),
		RoomID:    roomID,
		Name:      np.Name,
		Position:  len(existing),
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return Playlist{}, errors.Wrap(err, "creating playlist")
	}

	if err = svc.notifyStudents(ctx, rm, notification.NewNotification{
		Type:    notification.TypeNewPlaylist,
		Title:   "New playlist in " + rm.Name,
		Message: fmt.Sprintf("%q is now available.", pl.Name),
		RoomID:  rm.ID,
	}); err != nil {
		return Playlist{}, err
	}
	return pl, nil
}

func (svc *service) UpdatePlaylist(ctx context.Context, actor user.User, playlistID, name string) (Playlist, error) {
	pl, err := svc.repo.GetPlaylistByID(ctx, playlistID)
	if err != nil {
		return Playlist{}, err
	}
	if _, err = svc.ownedRoom(ctx, actor, pl.RoomID); err != nil {
		return Playlist{}, err
	}
	return svc.repo.UpdatePlaylist(ctx, Playlist{
		ID:        playlistID,
		Name:      core.CleanString(name),
		Position:  -1,
		UpdatedAt: time.Now().UTC(),
	})
}

// DeletePlaylist removes the playlist, its videos and their comments and
// materials, plus materials scoped to the playlist itself.
func (svc *service) DeletePlaylist(ctx context.Context, actor user.User, playlistID string) error {
	pl, err := svc.repo.GetPlaylistByID(ctx, playlistID)
	if err != nil {
		return err
	}
	if _, err = svc.ownedRoom(ctx, actor, pl.RoomID); err != nil {
		return err
	}

	videos, err := svc.repo.QueryVideosByPlaylist(ctx, playlistID)
	if err != nil {
		return errors.Wrap(err, "querying videos")
	}
	videoIDs := make([]string, 0, len(videos))
	for _, vid := range videos {
		videoIDs = append(videoIDs, vid.ID)
	}

	if err = svc.comments.DeleteCommentsByVideoIDs(ctx, videoIDs...); err != nil {
		return errors.Wrap(err, "deleting comments")
	}
	if err = svc.materials.DeleteMaterialsByVideoIDs(ctx, videoIDs...); err != nil {
		return errors.Wrap(err, "deleting video materials")
	}
	if err = svc.materials.DeleteMaterialsByPlaylistIDs(ctx, playlistID); err != nil {
		return errors.Wrap(err, "deleting playlist materials")
	}
	if err = svc.repo.DeleteVideosByID(ctx, videoIDs...); err != nil {
		return errors.Wrap(err, "deleting videos")
	}
	return errors.Wrap(svc.repo.DeletePlaylistsByID(ctx, playlistID), "deleting playlist")
}

// ReorderPlaylists assigns order indexes from slice position. orderedIDs must
// be exactly the room's playlist ids.
func (svc *service) ReorderPlaylists(ctx context.Context, actor user.User, roomID string, orderedIDs []string) error {
	if _, err := svc.ownedRoom(ctx, actor, roomID); err != nil {
		return err
	}
	existing, err := svc.repo.QueryPlaylistsByRoom(ctx, roomID)
	if err != nil {
		return errors.Wrap(err, "querying playlists")
	}
	currentIDs := make([]string, 0, len(existing))
	for _, pl := range existing {
		currentIDs = append(currentIDs, pl.ID)
	}
	if !sameIDSet(currentIDs, orderedIDs) {
		return core.NewValidationError(errors.New("ordered ids do not match the room's playlists"))
	}

	now := time.Now().UTC()
	for pos, id := range orderedIDs {
		if _, err = svc.repo.UpdatePlaylist(ctx, Playlist{ID: id, Position: pos, UpdatedAt: now}); err != nil {
			return errors.Wrapf(err, "moving playlist %s", id)
		}
	}
	return nil
}

func (svc *service) QueryPlaylists(ctx context.Context, roomID string) ([]Playlist, error) {
	if _, err := svc.repo.GetRoomByID(ctx, roomID); err != nil {
		return nil, err
	}
	return svc.repo.QueryPlaylistsByRoom(ctx, roomID)
}

// AddVideo appends to the playlist and notifies every enrolled student.
func (svc *service) AddVideo(ctx context.Context, actor user.User, roomID, playlistID string, nv NewVideo) (Video, error) {
	rm, err := svc.ownedRoom(ctx, actor, roomID)
	if err != nil {
		return Video{}, err
	}
	pl, err := svc.repo.GetPlaylistByID(ctx, playlistID)
	if err != nil {
		return Video{}, err
	}
	if pl.RoomID != roomID {
		return Video{}, ErrPlaylistNotFound
	}
	existing, err := svc.repo.QueryVideosByPlaylist(ctx, playlistID)
	if err != nil {
		return Video{}, errors.Wrap(err, "querying videos")
	}

	now := time.Now().UTC()
	vid, err := svc.repo.CreateVideo(ctx, Video{
		ID:          uuid.New().String(),
		PlaylistID:  playlistID,
		RoomID:      roomID,
		Title:       nv.Title,
		SourceURL:   nv.SourceURL,
		Description: nv.Description,
		Position:    len(existing),
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return Video{}, errors.Wrap(err, "creating video")
	}

	if err = svc.notifyStudents(ctx, rm, notification.NewNotification{
		Type:    notification.TypeNewVideo,
		Title:   "New video in " + rm.Name,
		Message: fmt.Sprintf("%q was added to %s.", vid.Title, pl.Name),
		RoomID:  rm.ID,
		VideoID: vid.ID,
	}); err != nil {
		return Video{}, err
	}
	return vid, nil
}

func (svc *service) GetVideo(ctx context.Context, id string) (Video, error) {
	return svc.repo.GetVideoByID(ctx, id)
}

func (svc *service) UpdateVideo(ctx context.Context, actor user.User, videoID string, uv UpdateVideo) (Video, error) {
	vid, err := svc.repo.GetVideoByID(ctx, videoID)
	if err != nil {
		return Video{}, err
	}
	if _, err = svc.ownedRoom(ctx, actor, vid.RoomID); err != nil {
		return Video{}, err
	}
	return svc.repo.UpdateVideo(ctx, Video{
		ID:          videoID,
		Title:       uv.Title,
		SourceURL:   uv.SourceURL,
		Description: uv.Description,
		Position:    -1,
		UpdatedAt:   time.Now().UTC(),
	})
}

// DeleteVideo removes the video with all its comments (both depths) and
// materials.
func (svc *service) DeleteVideo(ctx context.Context, actor user.User, videoID string) error {
	vid, err := svc.repo.GetVideoByID(ctx, videoID)
	if err != nil {
		return err
	}
	if _, err = svc.ownedRoom(ctx, actor, vid.RoomID); err != nil {
		return err
	}
	if err = svc.comments.DeleteCommentsByVideoIDs(ctx, videoID); err != nil {
		return errors.Wrap(err, "deleting comments")
	}
	if err = svc.materials.DeleteMaterialsByVideoIDs(ctx, videoID); err != nil {
		return errors.Wrap(err, "deleting materials")
	}
	return errors.Wrap(svc.repo.DeleteVideosByID(ctx, videoID), "deleting video")
}

func (svc *service) ReorderVideos(ctx context.Context, actor user.User, playlistID string, orderedIDs []string) error {
	pl, err := svc.repo.GetPlaylistByID(ctx, playlistID)
	if err != nil {
		return err
	}
	if _, err = svc.ownedRoom(ctx, actor, pl.RoomID); err != nil {
		return err
	}
	existing, err := svc.repo.QueryVideosByPlaylist(ctx, playlistID)
	if err != nil {
		return errors.Wrap(err, "querying videos")
	}
	currentIDs := make([]string, 0, len(existing))
	for _, vid := range existing {
		currentIDs = append(currentIDs, vid.ID)
	}
	if !sameIDSet(currentIDs, orderedIDs) {
		return core.NewValidationError(errors.New("ordered ids do not match the playlist's videos"))
	}

	now := time.Now().UTC()
	for pos, id := range orderedIDs {
		if _, err = svc.repo.UpdateVideo(ctx, Video{ID: id, Position: pos, UpdatedAt: now}); err != nil {
			return errors.Wrapf(err, "moving video %s", id)
		}
	}
	return nil
}

func (svc *service) QueryVideos(ctx context.Context, playlistID string) ([]Video, error) {
	if _, err := svc.repo.GetPlaylistByID(ctx, playlistID); err != nil {
		return nil, err
	}
	return svc.repo.QueryVideosByPlaylist(ctx, playlistID)
}

func (svc *service) SearchVideos(ctx context.Context, query, roomID string) ([]Video, error) {
	query = core.CleanString(query)
	if query == "" {
		return []Video{}, nil
	}
	return svc.repo.SearchVideos(ctx, query, roomID)
}

// EnrollByInviteCode establishes membership for the acting student; the code
// matches case-insensitively.
func (svc *service) EnrollByInviteCode(ctx context.Context, actor user.User, code string) (Room, error) {
	if !actor.IsStudent() {
		return Room{}, core.ErrPermissionDenied
	}
	rm, err := svc.repo.GetRoomByInviteCode(ctx, CanonicalInviteCode(code))
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Room{}, ErrInvalidInviteCode
		}
		return Room{}, errors.Wrap(err, "finding room by invite code")
	}
	if err = svc.enroll(ctx, rm, actor.ID); err != nil {
		return Room{}, err
	}
	return svc.withMembers(ctx, rm)
}

// AddStudentToRoom is the instructor-initiated equivalent of
// EnrollByInviteCode.
func (svc *service) AddStudentToRoom(ctx context.Context, actor user.User, roomID, studentID string) error {
	rm, err := svc.ownedRoom(ctx, actor, roomID)
	if err != nil {
		return err
	}
	student, err := svc.usrSvc.GetByID(ctx, studentID)
	if err != nil {
		return err
	}
	if !student.IsStudent() {
		return core.NewValidationError(errors.New("only students can be enrolled"))
	}
	return svc.enroll(ctx, rm, student.ID)
}

func (svc *service) enroll(ctx context.Context, rm Room, studentID string) error {
	if err := svc.repo.Enroll(ctx, rm.ID, studentID); err != nil {
		if errors.Cause(err) == ErrAlreadyEnrolled {
			return core.NewConflictError(err)
		}
		return errors.Wrap(err, "enrolling student")
	}
	_, err := svc.notifSvc.Add(ctx, notification.NewNotification{
		RecipientID: studentID,
		Type:        notification.TypeEnrolled,
		Title:       "Enrollment confirmed",
		Message:     fmt.Sprintf("You are now enrolled in %s.", rm.Name),
		RoomID:      rm.ID,
	})
	return errors.Wrap(err, "adding enrolled notification")
}

// RemoveStudentFromRoom drops the membership; allowed to the room owner and
// to the student leaving on their own.
func (svc *service) RemoveStudentFromRoom(ctx context.Context, actor user.User, roomID, studentID string) error {
	rm, err := svc.repo.GetRoomByID(ctx, roomID)
	if err != nil {
		return err
	}
	if rm.OwnerID != actor.ID && actor.ID != studentID {
		return core.ErrPermissionDenied
	}
	return svc.repo.Unenroll(ctx, roomID, studentID)
}

func (svc *service) EnrolledRoomIDs(ctx context.Context, userID string) ([]string, error) {
	return svc.repo.QueryEnrolledRoomIDs(ctx, userID)
}

// GetRoomStats derives everything on the fly; nothing here is cached.
func (svc *service) GetRoomStats(ctx context.Context, actor user.User, roomID string) (RoomStats, error) {
	rm, err := svc.ownedRoom(ctx, actor, roomID)
	if err != nil {
		return RoomStats{}, err
	}

	studentIDs, err := svc.repo.QueryEnrolledStudentIDs(ctx, roomID)
	if err != nil {
		return RoomStats{}, errors.Wrap(err, "querying enrolled students")
	}
	playlists, err := svc.repo.QueryPlaylistsByRoom(ctx, roomID)
	if err != nil {
		return RoomStats{}, errors.Wrap(err, "querying playlists")
	}
	videos, err := svc.repo.QueryVideosByRoom(ctx, roomID)
	if err != nil {
		return RoomStats{}, errors.Wrap(err, "querying videos")
	}
	total, open, err := svc.comments.CountCommentsByRoom(ctx, roomID)
	if err != nil {
		return RoomStats{}, errors.Wrap(err, "counting comments")
	}

	stats := RoomStats{
		RoomID:        rm.ID,
		StudentCount:  len(studentIDs),
		PlaylistCount: len(playlists),
		VideoCount:    len(videos),
		CommentCount:  total,
		OpenQuestions: open,
	}

	if len(videos) > 0 && len(studentIDs) > 0 {
		videoIDs := make([]string, 0, len(videos))
		for _, vid := range videos {
			videoIDs = append(videoIDs, vid.ID)
		}
		wps, err := svc.usrSvc.WatchProgressForVideos(ctx, videoIDs...)
		if err != nil {
			return RoomStats{}, errors.Wrap(err, "querying watch progress")
		}
		watchedPerStudent := make(map[string]int, len(studentIDs))
		for _, wp := range wps {
			if wp.Watched() {
				watchedPerStudent[wp.UserID]++
			}
		}
		var sum float64
		for _, id := range studentIDs {
			sum += float64(watchedPerStudent[id]) / float64(len(videos))
		}
		stats.AverageProgress = sum / float64(len(studentIDs)) * 100
	}
	return stats, nil
}

func (svc *service) VideoRefs(ctx context.Context, videoID string) (roomID, playlistID string, err error) {
	vid, err := svc.repo.GetVideoByID(ctx, videoID)
	if err != nil {
		return "", "", err
	}
	return vid.RoomID, vid.PlaylistID, nil
}

func (svc *service) PlaylistRoomID(ctx context.Context, playlistID string) (string, error) {
	pl, err := svc.repo.GetPlaylistByID(ctx, playlistID)
	if err != nil {
		return "", err
	}
	return pl.RoomID, nil
}

func (svc *service) RoomOwnerID(ctx context.Context, roomID string) (string, error) {
	rm, err := svc.repo.GetRoomByID(ctx, roomID)
	if err != nil {
		return "", err
	}
	return rm.OwnerID, nil
}

func (svc *service) IsEnrolled(ctx context.Context, roomID, userID string) (bool, error) {
	return svc.repo.IsEnrolled(ctx, roomID, userID)
}

// notifyStudents fans one notification out to every enrolled student of rm:
// exactly one per recipient per triggering event.
func (svc *service) notifyStudents(ctx context.Context, rm Room, nn notification.NewNotification) error {
	studentIDs, err := svc.repo.QueryEnrolledStudentIDs(ctx, rm.ID)
	if err != nil {
		return errors.Wrap(err, "querying enrolled students")
	}
	for _, id := range studentIDs {
		nn.RecipientID = id
		if _, err = svc.notifSvc.Add(ctx, nn); err != nil {
			return errors.Wrapf(err, "notifying student %s", id)
		}
	}
	return nil
}

func sameIDSet(current, ordered []string) bool {
	if len(current) != len(ordered) {
		return false
	}
	seen := make(map[string]bool, len(current))
	for _, id := range current {
		seen[id] = true
	}
	for _, id := range ordered {
		if !seen[id] {
			return false
		}
		delete(seen, id)
	}
	return true
}
