package material

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/cursohub/cursohub/core"
	"github.com/cursohub/cursohub/core/user"
)

var ErrNotFound = errors.New("material not found")

type (
	// Directory is the slice of the course directory the material store
	// needs: resolving scopes to their room and answering membership
	// questions.
	Directory interface {
		VideoRefs(ctx context.Context, videoID string) (roomID, playlistID string, err error)
		PlaylistRoomID(ctx context.Context, playlistID string) (string, error)
		RoomOwnerID(ctx context.Context, roomID string) (string, error)
		IsEnrolled(ctx context.Context, roomID, userID string) (bool, error)
	}

	// ObjectStorage persists uploaded files and hands back a serving URL.
	ObjectStorage interface {
		Put(ctx context.Context, name, contentType string, r io.Reader) (url string, err error)
		Remove(ctx context.Context, url string) error
	}

	Repository interface {
		CreateMaterial(ctx context.Context, mat Material) (Material, error)
		GetMaterialByID(ctx context.Context, id string) (Material, error)
		QueryMaterialsByVideo(ctx context.Context, videoID string) ([]Material, error)
		QueryMaterialsByPlaylist(ctx context.Context, playlistID string) ([]Material, error)
		QueryMaterialsByRoom(ctx context.Context, roomID string) ([]Material, error)
		DeleteMaterialsByID(ctx context.Context, ids ...string) error
		DeleteMaterialsByVideoIDs(ctx context.Context, videoIDs ...string) error
		DeleteMaterialsByPlaylistIDs(ctx context.Context, playlistIDs ...string) error
		DeleteMaterialsByRoomIDs(ctx context.Context, roomIDs ...string) error
	}

	Service interface {
		Add(ctx context.Context, actor user.User, nm NewMaterial) (Material, error)
		Get(ctx context.Context, id string) (Material, error)
		ListByVideo(ctx context.Context, actor user.User, videoID string) ([]Material, error)
		ListByPlaylist(ctx context.Context, actor user.User, playlistID string) ([]Material, error)
		ListByRoom(ctx context.Context, actor user.User, roomID string) ([]Material, error)
		Delete(ctx context.Context, actor user.User, id string) error
	}

	service struct {
		repo    Repository
		dir     Directory
		storage ObjectStorage
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, dir Directory, storage ObjectStorage) Service {
	return &service{repo: repo, dir: dir, storage: storage}
}

// scopeRoomID resolves the material's single scope to its room.
func (svc *service) scopeRoomID(ctx context.Context, nm NewMaterial) (string, error) {
	switch {
	case nm.VideoID != "":
		roomID, _, err := svc.dir.VideoRefs(ctx, nm.VideoID)
		return roomID, err
	case nm.PlaylistID != "":
		return svc.dir.PlaylistRoomID(ctx, nm.PlaylistID)
	default:
		if _, err := svc.dir.RoomOwnerID(ctx, nm.RoomID); err != nil {
			return "", err
		}
		return nm.RoomID, nil
	}
}

// requireOwner checks that actor is the instructor owning roomID.
func (svc *service) requireOwner(ctx context.Context, actor user.User, roomID string) error {
	ownerID, err := svc.dir.RoomOwnerID(ctx, roomID)
	if err != nil {
		return err
	}
	if ownerID != actor.ID {
		return core.ErrPermissionDenied
	}
	return nil
}

// canView checks that actor is the room's owner or an enrolled student.
func (svc *service) canView(ctx context.Context, actor user.User, roomID string) error {
	ownerID, err := svc.dir.RoomOwnerID(ctx, roomID)
	if err != nil {
		return err
	}
	if ownerID == actor.ID {
		return nil
	}
	enrolled, err := svc.dir.IsEnrolled(ctx, roomID, actor.ID)
	if err != nil {
		return errors.Wrap(err, "checking enrollment")
	}
	if !enrolled {
		return core.ErrPermissionDenied
	}
	return nil
}

// Add attaches a material to its scope. Only the room's instructor can add.
func (svc *service) Add(ctx context.Context, actor user.User, nm NewMaterial) (Material, error) {
	roomID, err := svc.scopeRoomID(ctx, nm)
	if err != nil {
		return Material{}, err
	}
	if err = svc.requireOwner(ctx, actor, roomID); err != nil {
		return Material{}, err
	}

	// names without an extension fall back to the URL's
	fileType := FileTypeFromName(nm.Name)
	if fileType == "link" {
		fileType = FileTypeFromName(nm.URL)
	}

	mat, err := svc.repo.CreateMaterial(ctx, Material{
		ID:         uuid.New().String(),
		Name:       nm.Name,
		URL:        nm.URL,
		FileType:   fileType,
		Size:       nm.Size,
		VideoID:    nm.VideoID,
		PlaylistID: nm.PlaylistID,
		RoomID:     nm.RoomID,
		UploadedBy: actor.ID,
		CreatedAt:  time.Now().UTC(),
	})
	return mat, errors.Wrap(err, "creating material")
}

func (svc *service) Get(ctx context.Context, id string) (Material, error) {
	return svc.repo.GetMaterialByID(ctx, id)
}

func (svc *service) ListByVideo(ctx context.Context, actor user.User, videoID string) ([]Material, error) {
	roomID, _, err := svc.dir.VideoRefs(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if err = svc.canView(ctx, actor, roomID); err != nil {
		return nil, err
	}
	return svc.repo.QueryMaterialsByVideo(ctx, videoID)
}

func (svc *service) ListByPlaylist(ctx context.Context, actor user.User, playlistID string) ([]Material, error) {
	roomID, err := svc.dir.PlaylistRoomID(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	if err = svc.canView(ctx, actor, roomID); err != nil {
		return nil, err
	}
	return svc.repo.QueryMaterialsByPlaylist(ctx, playlistID)
}

func (svc *service) ListByRoom(ctx context.Context, actor user.User, roomID string) ([]Material, error) {
	if err := svc.canView(ctx, actor, roomID); err != nil {
		return nil, err
	}
	return svc.repo.QueryMaterialsByRoom(ctx, roomID)
}

func (svc *service) Delete(ctx context.Context, actor user.User, id string) error {
	mat, err := svc.repo.GetMaterialByID(ctx, id)
	if err != nil {
		return err
	}
	roomID, err := svc.scopeRoomID(ctx, NewMaterial{
		VideoID:    mat.VideoID,
		PlaylistID: mat.PlaylistID,
		RoomID:     mat.RoomID,
	})
	if err != nil {
		return err
	}
	if err = svc.requireOwner(ctx, actor, roomID); err != nil {
		return err
	}
	return errors.Wrap(svc.repo.DeleteMaterialsByID(ctx, id), "deleting material")
}
