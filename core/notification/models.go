package notification

import "time"

// Notification types, one per fan-out trigger.
const (
	TypeWelcome      = "welcome"
	TypeNewVideo     = "new_video"
	TypeNewPlaylist  = "new_playlist"
	TypeEnrolled     = "enrolled"
	TypeNewQuestion  = "new_question"
	TypeCommentReply = "comment_reply"
)

type Notification struct {
	ID          string    `json:"id"`
	RecipientID string    `json:"recipient_id"`
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	Read        bool      `json:"read"`
	RoomID      string    `json:"room_id,omitempty"`
	VideoID     string    `json:"video_id,omitempty"`
	CommentID   string    `json:"comment_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"` // UTC
}

// NewNotification contains information needed to append to a user's inbox.
type NewNotification struct {
	RecipientID string
	Type        string
	Title       string
	Message     string
	RoomID      string
	VideoID     string
	CommentID   string
}
