package inmemdb

import (
	"context"
	"sort"

	"github.com/cursohub/cursohub/core/comment"
)

type commentRepository struct {
	comments *commentTable
}

func NewCommentRepository(db *DB) comment.Repository {
	return &commentRepository{comments: db.comment}
}

func (repo *commentRepository) CreateComment(ctx context.Context, cmt comment.Comment) (comment.Comment, error) {
	repo.comments.mutex.Lock()
	defer repo.comments.mutex.Unlock()

	repo.comments.table[cmt.ID] = &cmt
	return cmt, nil
}

func (repo *commentRepository) GetCommentByID(ctx context.Context, id string) (comment.Comment, error) {
	repo.comments.mutex.RLock()
	defer repo.comments.mutex.RUnlock()

	if cmt, ok := repo.comments.table[id]; ok {
		return *cmt, nil
	}
	return comment.Comment{}, comment.ErrNotFound
}

func (repo *commentRepository) QueryCommentsByVideo(ctx context.Context, videoID string) ([]comment.Comment, error) {
	repo.comments.mutex.RLock()
	defer repo.comments.mutex.RUnlock()

	comments := make([]comment.Comment, 0)
	for _, cmt := range repo.comments.table {
		if cmt.VideoID == videoID {
			comments = append(comments, *cmt)
		}
	}
	sortComments(comments)
	return comments, nil
}

func (repo *commentRepository) QueryRepliesByParent(ctx context.Context, parentID string) ([]comment.Comment, error) {
	repo.comments.mutex.RLock()
	defer repo.comments.mutex.RUnlock()

	replies := make([]comment.Comment, 0)
	for _, cmt := range repo.comments.table {
		if cmt.ParentID == parentID {
			replies = append(replies, *cmt)
		}
	}
	sortComments(replies)
	return replies, nil
}

func (repo *commentRepository) SetCommentResolved(ctx context.Context, id string, resolved bool) error {
	repo.comments.mutex.Lock()
	defer repo.comments.mutex.Unlock()

	cmt, ok := repo.comments.table[id]
	if !ok {
		return comment.ErrNotFound
	}
	cmt.Resolved = resolved
	return nil
}

func (repo *commentRepository) DeleteCommentsByID(ctx context.Context, ids ...string) error {
	repo.comments.mutex.Lock()
	defer repo.comments.mutex.Unlock()
	for _, id := range ids {
		delete(repo.comments.table, id)
	}
	return nil
}

func (repo *commentRepository) DeleteCommentsByVideoIDs(ctx context.Context, videoIDs ...string) error {
	repo.comments.mutex.Lock()
	defer repo.comments.mutex.Unlock()

	wanted := make(map[string]bool, len(videoIDs))
	for _, id := range videoIDs {
		wanted[id] = true
	}
	for id, cmt := range repo.comments.table {
		if wanted[cmt.VideoID] {
			delete(repo.comments.table, id)
		}
	}
	return nil
}

func (repo *commentRepository) CountCommentsByRoom(ctx context.Context, roomID string) (total, openQuestions int, err error) {
	repo.comments.mutex.RLock()
	defer repo.comments.mutex.RUnlock()

	for _, cmt := range repo.comments.table {
		if cmt.RoomID != roomID {
			continue
		}
		total++
		if cmt.IsTopLevel() && !cmt.Resolved {
			openQuestions++
		}
	}
	return total, openQuestions, nil
}

func sortComments(comments []comment.Comment) {
	sort.Slice(comments, func(i, j int) bool {
		if !comments[i].CreatedAt.Equal(comments[j].CreatedAt) {
			return comments[i].CreatedAt.Before(comments[j].CreatedAt)
		}
		return comments[i].ID < comments[j].ID
	})
}
