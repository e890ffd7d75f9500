package room

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/cursohub/cursohub/core"
)

type Room struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	InviteCode  string    `json:"invite_code"` // unique, canonical uppercase
	CreatedAt   time.Time `json:"created_at"`  // UTC
	UpdatedAt   time.Time `json:"updated_at"`  // UTC

	// EnrolledStudentIDs is a view derived from the membership relation;
	// it is populated on reads, never written directly.
	EnrolledStudentIDs []string `json:"enrolled_student_ids,omitempty"`
}

type Playlist struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"room_id"`
	Name      string    `json:"name"`
	Position  int       `json:"position"` // explicit order index within the room
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Video struct {
	ID          string    `json:"id"`
	PlaylistID  string    `json:"playlist_id"`
	RoomID      string    `json:"room_id"`
	Title       string    `json:"title"`
	SourceURL   string    `json:"source_url"`
	Description string    `json:"description"`
	Position    int       `json:"position"` // explicit order index within the playlist
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RoomStats is derived on every call, never stored.
type RoomStats struct {
	RoomID          string  `json:"room_id"`
	StudentCount    int     `json:"student_count"`
	PlaylistCount   int     `json:"playlist_count"`
	VideoCount      int     `json:"video_count"`
	CommentCount    int     `json:"comment_count"`
	OpenQuestions   int     `json:"open_questions"`    // unresolved top-level comments
	AverageProgress float64 `json:"average_progress"` // mean % of room videos watched per student
}

type NewRoom struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

func (nr *NewRoom) Validate(validate *validator.Validate) error {
	nr.Name = core.CleanString(nr.Name)
	nr.Description = core.CleanString(nr.Description)
	return validate.Struct(nr)
}

// UpdateRoom carries a partial update. An absent or null description is
// left untouched; an empty string clears it.
type UpdateRoom struct {
	Name        string      `json:"name"`
	Description null.String `json:"description"`
}

func (ur *UpdateRoom) Validate(validate *validator.Validate) error {
	ur.Name = core.CleanString(ur.Name)
	if ur.Description.Valid {
		ur.Description.String = core.CleanString(ur.Description.String)
	}
	return validate.Struct(ur)
}

// RoomChanges is what the repository saves on update. Zero-value fields
// are skipped; Description is written whenever it is set.
type RoomChanges struct {
	Name        string
	Description null.String
	InviteCode  string
	UpdatedAt   time.Time
}

type NewPlaylist struct {
	Name string `json:"name" validate:"required"`
}

func (np *NewPlaylist) Validate(validate *validator.Validate) error {
	np.Name = core.CleanString(np.Name)
	return validate.Struct(np)
}

type NewVideo struct {
	Title       string `json:"title" validate:"required"`
	SourceURL   string `json:"source_url" validate:"required,url"`
	Description string `json:"description"`
}

func (nv *NewVideo) Validate(validate *validator.Validate) error {
	nv.Title = core.CleanString(nv.Title)
	nv.SourceURL = core.CleanString(nv.SourceURL)
	nv.Description = core.CleanString(nv.Description)
	return validate.Struct(nv)
}

type UpdateVideo struct {
	Title       string `json:"title"`
	SourceURL   string `json:"source_url" validate:"omitempty,url"`
	Description string `json:"description"`
}

func (uv *UpdateVideo) Validate(validate *validator.Validate) error {
	uv.Title = core.CleanString(uv.Title)
	uv.SourceURL = core.CleanString(uv.SourceURL)
	uv.Description = core.CleanString(uv.Description)
	return validate.Struct(uv)
}
