package comment

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/cursohub/cursohub/core"
)

// Comment is a discussion entry under a video. Top-level comments have an
// empty ParentID; replies point at a top-level comment, never at another
// reply. Author fields are snapshotted at posting time so renaming a user
// later does not rewrite history.
type Comment struct {
	ID           string    `json:"id"`
	VideoID      string    `json:"video_id"`
	RoomID       string    `json:"room_id"`
	AuthorID     string    `json:"author_id"`
	AuthorName   string    `json:"author_name"`
	AuthorRole   string    `json:"author_role"`
	AuthorAvatar string    `json:"author_avatar"`
	ParentID     string    `json:"parent_id,omitempty"`
	Body         string    `json:"body"`
	Resolved     bool      `json:"resolved"` // meaningful on top-level comments only
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
}

func (c Comment) IsTopLevel() bool { return c.ParentID == "" }

type NewComment struct {
	Body     string `json:"body" validate:"required"`
	ParentID string `json:"parent_id"`
}

func (nc *NewComment) Validate(validate *validator.Validate) error {
	nc.Body = core.CleanString(nc.Body)
	nc.ParentID = core.CleanString(nc.ParentID)
	return validate.Struct(nc)
}
