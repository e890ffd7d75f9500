package material

import (
	"testing"

	"github.com/go-playground/validator/v10"
)

func TestFileTypeFromName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{name: "notes.pdf", want: "pdf"},
		{name: "Notes.PDF", want: "pdf"},
		{name: "report.docx", want: "document"},
		{name: "deck.pptx", want: "slides"},
		{name: "grades.csv", want: "spreadsheet"},
		{name: "diagram.png", want: "image"},
		{name: "lecture.mp4", want: "video"},
		{name: "podcast.mp3", want: "audio"},
		{name: "code.zip", want: "archive"},
		{name: "https://example.com/some-page", want: "link"},
		{name: "weird.xyz", want: "other"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FileTypeFromName(tt.name); got != tt.want {
				t.Errorf("FileTypeFromName(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestNewMaterial_Validate_singleScope(t *testing.T) {
	validate := validator.New()

	tests := []struct {
		name    string
		nm      NewMaterial
		wantErr bool
	}{
		{
			name: "video scope",
			nm:   NewMaterial{Name: "notes.pdf", URL: "https://files.test/notes.pdf", VideoID: "v1"},
		},
		{
			name: "playlist scope",
			nm:   NewMaterial{Name: "notes.pdf", URL: "https://files.test/notes.pdf", PlaylistID: "p1"},
		},
		{
			name: "room scope",
			nm:   NewMaterial{Name: "notes.pdf", URL: "https://files.test/notes.pdf", RoomID: "r1"},
		},
		{
			name:    "no scope",
			nm:      NewMaterial{Name: "notes.pdf", URL: "https://files.test/notes.pdf"},
			wantErr: true,
		},
		{
			name:    "two scopes",
			nm:      NewMaterial{Name: "notes.pdf", URL: "https://files.test/notes.pdf", VideoID: "v1", RoomID: "r1"},
			wantErr: true,
		},
		{
			name:    "all scopes",
			nm:      NewMaterial{Name: "notes.pdf", URL: "https://files.test/notes.pdf", VideoID: "v1", PlaylistID: "p1", RoomID: "r1"},
			wantErr: true,
		},
		{
			name:    "bad url",
			nm:      NewMaterial{Name: "notes.pdf", URL: "not a url", VideoID: "v1"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.nm.Validate(validate); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
