package material

import (
	"path"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/cursohub/cursohub/core"
)

// Material is a supporting file or link attached to exactly one of a video,
// a playlist or a whole room.
type Material struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	URL        string    `json:"url"`
	FileType   string    `json:"file_type"`
	Size       int64     `json:"size,omitempty"` // bytes, 0 for plain links
	VideoID    string    `json:"video_id,omitempty"`
	PlaylistID string    `json:"playlist_id,omitempty"`
	RoomID     string    `json:"room_id,omitempty"`
	UploadedBy string    `json:"uploaded_by"`
	CreatedAt  time.Time `json:"created_at"` // UTC
}

type NewMaterial struct {
	Name       string `json:"name" validate:"required"`
	// uri rather than url: stored uploads are addressed by absolute path
	URL        string `json:"url" validate:"required,uri"`
	Size       int64  `json:"size" validate:"min=0"`
	VideoID    string `json:"video_id"`
	PlaylistID string `json:"playlist_id"`
	RoomID     string `json:"room_id"`
}

func (nm *NewMaterial) Validate(validate *validator.Validate) error {
	nm.Name = core.CleanString(nm.Name)
	nm.URL = core.CleanString(nm.URL)
	nm.VideoID = core.CleanString(nm.VideoID)
	nm.PlaylistID = core.CleanString(nm.PlaylistID)
	nm.RoomID = core.CleanString(nm.RoomID)
	if err := validate.Struct(nm); err != nil {
		return err
	}

	scopes := 0
	for _, id := range []string{nm.VideoID, nm.PlaylistID, nm.RoomID} {
		if id != "" {
			scopes++
		}
	}
	if scopes != 1 {
		return core.NewValidationError(errors.New("exactly one of video_id, playlist_id or room_id must be set"))
	}
	return nil
}

// FileTypeFromName buckets a file name by extension for display purposes.
func FileTypeFromName(name string) string {
	switch strings.ToLower(strings.TrimPrefix(path.Ext(name), ".")) {
	case "pdf":
		return "pdf"
	case "doc", "docx", "odt", "txt", "md":
		return "document"
	case "ppt", "pptx", "odp":
		return "slides"
	case "xls", "xlsx", "ods", "csv":
		return "spreadsheet"
	case "png", "jpg", "jpeg", "gif", "svg", "webp":
		return "image"
	case "mp4", "mov", "avi", "mkv", "webm":
		return "video"
	case "mp3", "wav", "ogg", "flac":
		return "audio"
	case "zip", "tar", "gz", "rar", "7z":
		return "archive"
	case "":
		return "link"
	default:
		return "other"
	}
}
