package comment

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
	ErrNotFound       = errors.New("comment not found")
	ErrParentNotFound = errors.New("parent comment not found")
)

type (
	// Directory is the slice of the course directory the comment store
	// needs: resolving a video to its room and answering membership
	// questions.
	Directory interface {
		VideoRefs(ctx context.Context, videoID string) (roomID, playlistID string, err error)
		RoomOwnerID(ctx context.Context, roomID string) (string, error)
		IsEnrolled(ctx context.Context, roomID, userID string) (bool, error)
	}

	Repository interface {
		CreateComment(ctx context.Context, cmt Comment) (Comment, error)
		GetCommentByID(ctx context.Context, id string) (Comment, error)
		// QueryCommentsByVideo returns the video's comments, both levels,
		// oldest first.
		QueryCommentsByVideo(ctx context.Context, videoID string) ([]Comment, error)
		QueryRepliesByParent(ctx context.Context, parentID string) ([]Comment, error)
		SetCommentResolved(ctx context.Context, id string, resolved bool) error
		DeleteCommentsByID(ctx context.Context, ids ...string) error
		DeleteCommentsByVideoIDs(ctx context.Context, videoIDs ...string) error
		CountCommentsByRoom(ctx context.Context, roomID string) (total, openQuestions int, err error)
	}

	Service interface {
		Add(ctx context.Context, actor user.User, videoID string, nc NewComment) (Comment, error)
		Get(ctx context.Context, id string) (Comment, error)
		ListByVideo(ctx context.Context, actor user.User, videoID string) ([]Comment, error)
		MarkResolved(ctx context.Context, actor user.User, commentID string) (Comment, error)
		Delete(ctx context.Context, actor user.User, commentID string) error
	}

	service struct {
		repo     Repository
		dir      Directory
		notifSvc notification.Service
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, dir Directory, notifSvc notification.Service) Service {
	return &service{repo: repo, dir: dir, notifSvc: notifSvc}
}

// canDiscuss checks that actor is the room's owner or an enrolled student.
func (svc *service) canDiscuss(ctx context.Context, actor user.User, roomID string) (ownerID string, err error) {
	ownerID, err = svc.dir.RoomOwnerID(ctx, roomID)
	if err != nil {
		return "", err
	}
	if ownerID == actor.ID {
		return ownerID, nil
	}
	enrolled, err := svc.dir.IsEnrolled(ctx, roomID, actor.ID)
	if err != nil {
		return "", errors.Wrap(err, "checking enrollment")
	}
	if !enrolled {
		return "", core.ErrPermissionDenied
	}
	return ownerID, nil
}

// Add posts a comment or a reply. A reply's parent must be a top-level
// comment on the same video; replying to a reply is rejected so threads
// never grow past two levels.
func (svc *service) Add(ctx context.Context, actor user.User, videoID string, nc NewComment) (Comment, error) {
	roomID, _, err := svc.dir.VideoRefs(ctx, videoID)
	if err != nil {
		return Comment{}, err
	}
	ownerID, err := svc.canDiscuss(ctx, actor, roomID)
	if err != nil {
		return Comment{}, err
	}

	var parent Comment
	if nc.ParentID != "" {
		parent, err = svc.repo.GetCommentByID(ctx, nc.ParentID)
		if err != nil {
			if errors.Cause(err) == ErrNotFound {
				return Comment{}, ErrParentNotFound
			}
			return Comment{}, errors.Wrap(err, "finding parent comment")
		}
		if parent.VideoID != videoID {
			return Comment{}, core.NewValidationError(errors.New("parent comment belongs to another video"))
		}
		if !parent.IsTopLevel() {
			return Comment{}, core.NewValidationError(errors.New("replies cannot be nested"))
		}
	}

	now := time.Now().UTC()
	cmt, err := svc.repo.CreateComment(ctx, Comment{
		ID:           uuid.New().String(),
		VideoID:      videoID,
		RoomID:       roomID,
		AuthorID:     actor.ID,
		AuthorName:   actor.Name,
		AuthorRole:   actor.Role,
		AuthorAvatar: actor.Avatar,
		ParentID:     nc.ParentID,
		Body:         nc.Body,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return Comment{}, errors.Wrap(err, "creating comment")
	}

	if err = svc.notify(ctx, cmt, parent, actor, ownerID); err != nil {
		return Comment{}, err
	}
	return cmt, nil
}

// notify covers the two discussion fan-outs: a student's top-level comment
// lands as a question in the instructor's inbox, and an instructor's reply
// pings the question's author. Nobody is notified about their own posts.
func (svc *service) notify(ctx context.Context, cmt, parent Comment, actor user.User, ownerID string) error {
	switch {
	case cmt.IsTopLevel() && actor.IsStudent():
		_, err := svc.notifSvc.Add(ctx, notification.NewNotification{
			RecipientID: ownerID,
			Type:        notification.TypeNewQuestion,
			Title:       "New question",
			Message:     fmt.Sprintf("%s asked a question on one of your videos.", actor.Name),
			RoomID:      cmt.RoomID,
			VideoID:     cmt.VideoID,
			CommentID:   cmt.ID,
		})
		return errors.Wrap(err, "adding question notification")

	case !cmt.IsTopLevel() && actor.IsInstructor() && parent.AuthorID != actor.ID:
		_, err := svc.notifSvc.Add(ctx, notification.NewNotification{
			RecipientID: parent.AuthorID,
			Type:        notification.TypeCommentReply,
			Title:       "Your question was answered",
			Message:     fmt.Sprintf("%s replied to your question.", actor.Name),
			RoomID:      cmt.RoomID,
			VideoID:     cmt.VideoID,
			CommentID:   cmt.ID,
		})
		return errors.Wrap(err, "adding reply notification")
	}
	return nil
}

func (svc *service) Get(ctx context.Context, id string) (Comment, error) {
	return svc.repo.GetCommentByID(ctx, id)
}

func (svc *service) ListByVideo(ctx context.Context, actor user.User, videoID string) ([]Comment, error) {
	roomID, _, err := svc.dir.VideoRefs(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if _, err = svc.canDiscuss(ctx, actor, roomID); err != nil {
		return nil, err
	}
	return svc.repo.QueryCommentsByVideo(ctx, videoID)
}

// MarkResolved flags a question as answered. Only the room's instructor can
// resolve, only top-level comments carry the flag, and resolving twice is a
// no-op.
func (svc *service) MarkResolved(ctx context.Context, actor user.User, commentID string) (Comment, error) {
	cmt, err := svc.repo.GetCommentByID(ctx, commentID)
	if err != nil {
		return Comment{}, err
	}
	ownerID, err := svc.dir.RoomOwnerID(ctx, cmt.RoomID)
	if err != nil {
		return Comment{}, err
	}
	if ownerID != actor.ID {
		return Comment{}, core.ErrPermissionDenied
	}
	if !cmt.IsTopLevel() {
		return Comment{}, core.NewValidationError(errors.New("only top-level comments can be resolved"))
	}
	if cmt.Resolved {
		return cmt, nil
	}
	if err = svc.repo.SetCommentResolved(ctx, commentID, true); err != nil {
		return Comment{}, errors.Wrap(err, "resolving comment")
	}
	cmt.Resolved = true
	return cmt, nil
}

// Delete removes a comment; a top-level comment takes its replies with it.
// Allowed to the comment's author and to the room's instructor.
func (svc *service) Delete(ctx context.Context, actor user.User, commentID string) error {
	cmt, err := svc.repo.GetCommentByID(ctx, commentID)
	if err != nil {
		return err
	}
	if cmt.AuthorID != actor.ID {
		ownerID, err := svc.dir.RoomOwnerID(ctx, cmt.RoomID)
		if err != nil {
			return err
		}
		if ownerID != actor.ID {
			return core.ErrPermissionDenied
		}
	}

	ids := []string{cmt.ID}
	if cmt.IsTopLevel() {
		replies, err := svc.repo.QueryRepliesByParent(ctx, cmt.ID)
		if err != nil {
			return errors.Wrap(err, "querying replies")
		}
		for _, reply := range replies {
			ids = append(ids, reply.ID)
		}
	}
	return errors.Wrap(svc.repo.DeleteCommentsByID(ctx, ids...), "deleting comments")
}
