package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	"github.com/volatiletech/null/v8"

	. "github.com/cursohub/cursohub/apps/api/echo"
	"github.com/cursohub/cursohub/core/room"
	"github.com/cursohub/cursohub/core/user"
)

func (env *testEnv) createPlaylist(t *testing.T, owner user.User, rm room.Room, name string) room.Playlist {
	t.Helper()
	pl, err := env.roomSvc.CreatePlaylist(context.Background(), owner, rm.ID, room.NewPlaylist{Name: name})
	if err != nil {
		t.Fatalf("CreatePlaylist() error = %v", err)
	}
	return pl
}

func (env *testEnv) addVideo(t *testing.T, owner user.User, rm room.Room, pl room.Playlist, title string) room.Video {
	t.Helper()
	vid, err := env.roomSvc.AddVideo(context.Background(), owner, rm.ID, pl.ID, room.NewVideo{
		Title:     title,
		SourceURL: "https://videos.test.cd/" + url.PathEscape(title),
	})
	if err != nil {
		t.Fatalf("AddVideo() error = %v", err)
	}
	return vid
}

func (env *testEnv) enroll(t *testing.T, stu user.User, rm room.Room) {
	t.Helper()
	if _, err := env.roomSvc.EnrollByInviteCode(context.Background(), stu, rm.InviteCode); err != nil {
		t.Fatalf("EnrollByInviteCode() error = %v", err)
	}
}

func Test_roomApi_create(t *testing.T) {
	env := setup(t)
	instructor := env.register(t, "Prof Mutombo", "prof@test.cd", user.RoleInstructor)
	student := env.register(t, "Ana Gomez", "ana@test.cd", user.RoleStudent)

	body := marchallObj(t, room.NewRoom{Name: "Go 101", Description: "intro course"})

	tests := []httpTest{
		{name: "Auth required", body: body, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Instructor required", body: body, token: getToken(t, student),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{name: "Name required", body: marchallObj(t, room.NewRoom{}), token: getToken(t, instructor), wantCode: http.StatusBadRequest},
		{name: "Room created", body: body, token: getToken(t, instructor), wantCode: http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/rooms", tt.token, tt.body)
			env.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if rec.Code != http.StatusCreated {
				return
			}
			var rm room.Room
			if err := json.Unmarshal(rec.Body.Bytes(), &rm); err != nil {
				t.Fatalf("unmarshalling response: %v", err)
			}
			if rm.OwnerID != instructor.ID {
				t.Errorf("OwnerID = %v; want %v", rm.OwnerID, instructor.ID)
			}
			if len(rm.InviteCode) != 6 {
				t.Errorf("InviteCode = %q; want 6 chars", rm.InviteCode)
			}
		})
	}
}

func Test_roomApi_queryAndRetrieve(t *testing.T) {
	env := setup(t)
	instructor := env.register(t, "Prof Mutombo", "prof@test.cd", user.RoleInstructor)
	student := env.register(t, "Ana Gomez", "ana@test.cd", user.RoleStudent)

	rm1 := env.createRoom(t, instructor, "Go 101")
	rm2 := env.createRoom(t, instructor, "Go 201")
	env.enroll(t, student, rm1)

	// enrollment shows up on retrieval
	rm1, err := env.roomSvc.GetRoom(context.Background(), rm1.ID)
	if err != nil {
		t.Fatalf("GetRoom() error = %v", err)
	}

	tests := []httpTest{
		{name: "Auth required", path: "/v1/rooms", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Owned rooms", path: "/v1/rooms", token: getToken(t, instructor),
			wantCode: http.StatusOK, wantData: marchallList(t, rm1, rm2),
		},
		{
			name: "Enrolled rooms", path: "/v1/rooms", token: getToken(t, student),
			wantCode: http.StatusOK, wantData: marchallList(t, rm1),
		},
		{
			name: "All rooms", path: "/v1/rooms/all", token: getToken(t, student),
			wantCode: http.StatusOK, wantData: marchallList(t, rm1, rm2),
		},
		{
			name: "Retrieve", path: "/v1/rooms/" + rm2.ID, token: getToken(t, student),
			wantCode: http.StatusOK, wantData: marchallObj(t, rm2),
		},
		{
			name: "Retrieve unknown", path: "/v1/rooms/nope", token: getToken(t, student),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: room.ErrNotFound.Error()}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			env.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_roomApi_updateAndDestroy(t *testing.T) {
	env := setup(t)
	instructor := env.register(t, "Prof Mutombo", "prof@test.cd", user.RoleInstructor)
	rival := env.register(t, "Prof Banza", "banza@test.cd", user.RoleInstructor)
	rm := env.createRoom(t, instructor, "Go 101")

	body := marchallObj(t, room.UpdateRoom{Name: "Go 101 (rev)", Description: null.StringFrom("updated")})

	req, rec := newAuthRequest(http.MethodPut, "/v1/rooms/"+rm.ID, getToken(t, rival), body)
	env.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		name: "non-owner update", wantCode: http.StatusForbidden,
		wantData: marchallObj(t, httpErr{Error: "permission denied"}),
	}, rec)

	req, rec = newAuthRequest(http.MethodPut, "/v1/rooms/"+rm.ID, getToken(t, instructor), body)
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("update code = %v; body %s", rec.Code, rec.Body.String())
	}
	var updated room.Room
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("unmarshalling response: %v", err)
	}
	if updated.Name != "Go 101 (rev)" || updated.Description != "updated" {
		t.Errorf("room not updated: %+v", updated)
	}

	// a null description is left alone, an empty one clears it
	body = marchallObj(t, room.UpdateRoom{Name: "Go 101 (rev)"})
	req, rec = newAuthRequest(http.MethodPut, "/v1/rooms/"+rm.ID, getToken(t, instructor), body)
	env.app.ServeHTTP(rec, req)
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("unmarshalling response: %v", err)
	}
	if updated.Description != "updated" {
		t.Errorf("Description = %q, want untouched %q", updated.Description, "updated")
	}
	body = marchallObj(t, room.UpdateRoom{Name: "Go 101 (rev)", Description: null.StringFrom("")})
	req, rec = newAuthRequest(http.MethodPut, "/v1/rooms/"+rm.ID, getToken(t, instructor), body)
	env.app.ServeHTTP(rec, req)
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("unmarshalling response: %v", err)
	}
	if updated.Description != "" {
		t.Errorf("Description = %q, want cleared", updated.Description)
	}

	req, rec = newAuthRequest(http.MethodDelete, "/v1/rooms/"+rm.ID, getToken(t, rival))
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("non-owner delete code = %v; want %v", rec.Code, http.StatusForbidden)
	}

	req, rec = newAuthRequest(http.MethodDelete, "/v1/rooms/"+rm.ID, getToken(t, instructor))
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete code = %v; want %v", rec.Code, http.StatusNoContent)
	}

	req, rec = newAuthRequest(http.MethodGet, "/v1/rooms/"+rm.ID, getToken(t, instructor))
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("retrieve after delete code = %v; want %v", rec.Code, http.StatusNotFound)
	}
}

func Test_roomApi_enroll(t *testing.T) {
	env := setup(t)
	instructor := env.register(t, "Prof Mutombo", "prof@test.cd", user.RoleInstructor)
	student := env.register(t, "Ana Gomez", "ana@test.cd", user.RoleStudent)
	rm := env.createRoom(t, instructor, "Go 101")

	enrollBody := func(code string) []byte { return marchallObj(t, EnrollRequest{InviteCode: code}) }

	tests := []httpTest{
		{name: "Auth required", body: enrollBody(rm.InviteCode), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Instructors cannot enroll", body: enrollBody(rm.InviteCode), token: getToken(t, instructor),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "Unknown code", body: enrollBody("NOPE42"), token: getToken(t, student),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: room.ErrInvalidInviteCode.Error()}),
		},
		{name: "Enrolled", body: enrollBody(rm.InviteCode), token: getToken(t, student), wantCode: http.StatusOK},
		{
			name: "Re-enrollment conflicts", body: enrollBody(rm.InviteCode), token: getToken(t, student),
			wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: room.ErrAlreadyEnrolled.Error()}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/rooms/enroll", tt.token, tt.body)
			env.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	enrolled, err := env.roomSvc.IsEnrolled(context.Background(), rm.ID, student.ID)
	if err != nil {
		t.Fatalf("IsEnrolled() error = %v", err)
	}
	if !enrolled {
		t.Error("student should be enrolled")
	}
}

func Test_roomApi_students(t *testing.T) {
	env := setup(t)
	instructor := env.register(t, "Prof Mutombo", "prof@test.cd", user.RoleInstructor)
	student := env.register(t, "Ana Gomez", "ana@test.cd", user.RoleStudent)
	rm := env.createRoom(t, instructor, "Go 101")

	body := marchallObj(t, AddStudentRequest{StudentID: student.ID})

	req, rec := newAuthRequest(http.MethodPost, "/v1/rooms/"+rm.ID+"/students", getToken(t, student), body)
	env.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		name: "non-owner add", wantCode: http.StatusForbidden,
		wantData: marchallObj(t, httpErr{Error: "permission denied"}),
	}, rec)

	req, rec = newAuthRequest(http.MethodPost, "/v1/rooms/"+rm.ID+"/students", getToken(t, instructor), body)
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("add student code = %v; body %s", rec.Code, rec.Body.String())
	}

	// the student may leave on their own
	req, rec = newAuthRequest(http.MethodDelete, "/v1/rooms/"+rm.ID+"/students/"+student.ID, getToken(t, student))
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("self-removal code = %v; body %s", rec.Code, rec.Body.String())
	}

	req, rec = newAuthRequest(http.MethodDelete, "/v1/rooms/"+rm.ID+"/students/"+student.ID, getToken(t, instructor))
	env.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		name: "re-removal", wantCode: http.StatusNotFound,
		wantData: marchallObj(t, httpErr{Error: room.ErrNotEnrolled.Error()}),
	}, rec)
}

func Test_roomApi_regenerateCode(t *testing.T) {
	env := setup(t)
	instructor := env.register(t, "Prof Mutombo", "prof@test.cd", user.RoleInstructor)
	student := env.register(t, "Ana Gomez", "ana@test.cd", user.RoleStudent)
	rm := env.createRoom(t, instructor, "Go 101")

	req, rec := newAuthRequest(http.MethodPost, "/v1/rooms/"+rm.ID+"/regenerate-code", getToken(t, student))
	env.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		name: "non-owner", wantCode: http.StatusForbidden,
		wantData: marchallObj(t, httpErr{Error: "permission denied"}),
	}, rec)

	req, rec = newAuthRequest(http.MethodPost, "/v1/rooms/"+rm.ID+"/regenerate-code", getToken(t, instructor))
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("regenerate code = %v; body %s", rec.Code, rec.Body.String())
	}
	var regen room.Room
	if err := json.Unmarshal(rec.Body.Bytes(), &regen); err != nil {
		t.Fatalf("unmarshalling response: %v", err)
	}
	if regen.InviteCode == rm.InviteCode {
		t.Error("invite code should change")
	}
	if len(regen.InviteCode) != 6 {
		t.Errorf("InviteCode = %q; want 6 chars", regen.InviteCode)
	}
}

func Test_roomApi_playlistsAndVideos(t *testing.T) {
	env := setup(t)
	instructor := env.register(t, "Prof Mutombo", "prof@test.cd", user.RoleInstructor)
	student := env.register(t, "Ana Gomez", "ana@test.cd", user.RoleStudent)
	rm := env.createRoom(t, instructor, "Go 101")
	env.enroll(t, student, rm)

	ownerToken := getToken(t, instructor)
	studentToken := getToken(t, student)

	// create a playlist over HTTP
	req, rec := newAuthRequest(http.MethodPost, "/v1/rooms/"+rm.ID+"/playlists", ownerToken, marchallObj(t, room.NewPlaylist{Name: "Basics"}))
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create playlist code = %v; body %s", rec.Code, rec.Body.String())
	}
	var pl room.Playlist
	if err := json.Unmarshal(rec.Body.Bytes(), &pl); err != nil {
		t.Fatalf("unmarshalling response: %v", err)
	}
	if pl.RoomID != rm.ID || pl.Position != 0 {
		t.Errorf("unexpected playlist: %+v", pl)
	}

	// students cannot create playlists
	req, rec = newAuthRequest(http.MethodPost, "/v1/rooms/"+rm.ID+"/playlists", studentToken, marchallObj(t, room.NewPlaylist{Name: "Sneaky"}))
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("student create playlist code = %v; want %v", rec.Code, http.StatusForbidden)
	}

	// add a video over HTTP
	nv := room.NewVideo{Title: "Intro", SourceURL: "https://videos.test.cd/intro"}
	req, rec = newAuthRequest(http.MethodPost, "/v1/playlists/"+pl.ID+"/videos", ownerToken, marchallObj(t, nv))
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add video code = %v; body %s", rec.Code, rec.Body.String())
	}
	var vid room.Video
	if err := json.Unmarshal(rec.Body.Bytes(), &vid); err != nil {
		t.Fatalf("unmarshalling response: %v", err)
	}
	if vid.PlaylistID != pl.ID || vid.RoomID != rm.ID {
		t.Errorf("unexpected video: %+v", vid)
	}

	// bad source URL rejected
	req, rec = newAuthRequest(http.MethodPost, "/v1/playlists/"+pl.ID+"/videos", ownerToken,
		marchallObj(t, room.NewVideo{Title: "Broken", SourceURL: "not a url"}))
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad url code = %v; want %v", rec.Code, http.StatusBadRequest)
	}

	// listings are visible to enrolled students
	req, rec = newAuthRequest(http.MethodGet, "/v1/rooms/"+rm.ID+"/playlists", studentToken)
	env.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{name: "playlists", wantCode: http.StatusOK, wantData: marchallList(t, pl)}, rec)

	req, rec = newAuthRequest(http.MethodGet, "/v1/playlists/"+pl.ID+"/videos", studentToken)
	env.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{name: "videos", wantCode: http.StatusOK, wantData: marchallList(t, vid)}, rec)

	// rename the playlist
	req, rec = newAuthRequest(http.MethodPut, "/v1/playlists/"+pl.ID, ownerToken, marchallObj(t, UpdatePlaylistRequest{Name: "Basics I"}))
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("rename playlist code = %v; body %s", rec.Code, rec.Body.String())
	}

	// delete the video then the playlist
	req, rec = newAuthRequest(http.MethodDelete, "/v1/videos/"+vid.ID, ownerToken)
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete video code = %v; want %v", rec.Code, http.StatusNoContent)
	}

	req, rec = newAuthRequest(http.MethodDelete, "/v1/playlists/"+pl.ID, ownerToken)
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete playlist code = %v; want %v", rec.Code, http.StatusNoContent)
	}

	req, rec = newAuthRequest(http.MethodGet, "/v1/videos/"+vid.ID, studentToken)
	env.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		name: "video gone", wantCode: http.StatusNotFound,
		wantData: marchallObj(t, httpErr{Error: room.ErrVideoNotFound.Error()}),
	}, rec)
}

func Test_roomApi_reorder(t *testing.T) {
	env := setup(t)
	instructor := env.register(t, "Prof Mutombo", "prof@test.cd", user.RoleInstructor)
	rm := env.createRoom(t, instructor, "Go 101")
	pl1 := env.createPlaylist(t, instructor, rm, "Basics")
	pl2 := env.createPlaylist(t, instructor, rm, "Advanced")
	token := getToken(t, instructor)

	// mismatched id set rejected
	req, rec := newAuthRequest(http.MethodPut, "/v1/rooms/"+rm.ID+"/playlists/reorder", token,
		marchallObj(t, ReorderRequest{IDs: []string{pl1.ID, "nope"}}))
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("mismatched reorder code = %v; want %v", rec.Code, http.StatusBadRequest)
	}

	req, rec = newAuthRequest(http.MethodPut, "/v1/rooms/"+rm.ID+"/playlists/reorder", token,
		marchallObj(t, ReorderRequest{IDs: []string{pl2.ID, pl1.ID}}))
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("reorder code = %v; body %s", rec.Code, rec.Body.String())
	}

	playlists, err := env.roomSvc.QueryPlaylists(context.Background(), rm.ID)
	if err != nil {
		t.Fatalf("QueryPlaylists() error = %v", err)
	}
	if len(playlists) != 2 || playlists[0].ID != pl2.ID || playlists[1].ID != pl1.ID {
		t.Errorf("unexpected order: %+v", playlists)
	}
}

func Test_roomApi_searchVideos(t *testing.T) {
	env := setup(t)
	instructor := env.register(t, "Prof Mutombo", "prof@test.cd", user.RoleInstructor)
	rm1 := env.createRoom(t, instructor, "Go 101")
	rm2 := env.createRoom(t, instructor, "Go 201")
	pl1 := env.createPlaylist(t, instructor, rm1, "Basics")
	pl2 := env.createPlaylist(t, instructor, rm2, "Basics")
	vid1 := env.addVideo(t, instructor, rm1, pl1, "Intro to Go")
	vid2 := env.addVideo(t, instructor, rm2, pl2, "Intro to Channels")
	env.addVideo(t, instructor, rm2, pl2, "Select Statements")

	token := getToken(t, instructor)
	empty := marchallList(t, []interface{}{}...)

	path := func(q, roomID string) string {
		v := make(url.Values)
		v.Add("q", q)
		if roomID != "" {
			v.Add("room_id", roomID)
		}
		return "/v1/videos/search?" + v.Encode()
	}

	tests := []httpTest{
		{name: "Blank query", path: path("", ""), wantCode: http.StatusOK, wantData: empty},
		{name: "No match", path: path("kubernetes", ""), wantCode: http.StatusOK, wantData: empty},
		{name: "Across rooms", path: path("intro", ""), wantCode: http.StatusOK, wantData: marchallList(t, vid1, vid2)},
		{name: "Scoped to room", path: path("INTRO", rm1.ID), wantCode: http.StatusOK, wantData: marchallList(t, vid1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, token)
			env.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_roomApi_watchProgress(t *testing.T) {
	env := setup(t)
	instructor := env.register(t, "Prof Mutombo", "prof@test.cd", user.RoleInstructor)
	student := env.register(t, "Ana Gomez", "ana@test.cd", user.RoleStudent)
	rm := env.createRoom(t, instructor, "Go 101")
	pl := env.createPlaylist(t, instructor, rm, "Basics")
	vid := env.addVideo(t, instructor, rm, pl, "Intro")
	env.enroll(t, student, rm)

	token := getToken(t, student)

	// nothing watched yet
	req, rec := newAuthRequest(http.MethodGet, "/v1/videos/"+vid.ID+"/progress", token)
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("get progress code = %v; body %s", rec.Code, rec.Body.String())
	}
	var wp user.WatchProgress
	if err := json.Unmarshal(rec.Body.Bytes(), &wp); err != nil {
		t.Fatalf("unmarshalling response: %v", err)
	}
	if wp.Progress != 0 {
		t.Errorf("Progress = %v; want 0", wp.Progress)
	}

	// out-of-range progress rejected
	req, rec = newAuthRequest(http.MethodPut, "/v1/videos/"+vid.ID+"/progress", token, []byte(`{"progress":150}`))
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("progress=150 code = %v; want %v", rec.Code, http.StatusBadRequest)
	}

	req, rec = newAuthRequest(http.MethodPut, "/v1/videos/"+vid.ID+"/progress", token, marchallObj(t, ProgressRequest{Progress: 92}))
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("record progress code = %v; body %s", rec.Code, rec.Body.String())
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &wp); err != nil {
		t.Fatalf("unmarshalling response: %v", err)
	}
	if wp.Progress != 92 || !wp.Watched() {
		t.Errorf("unexpected progress: %+v", wp)
	}
	if wp.RoomID != rm.ID || wp.PlaylistID != pl.ID {
		t.Errorf("progress refs not set: %+v", wp)
	}

	// unknown video 404s
	req, rec = newAuthRequest(http.MethodPut, "/v1/videos/nope/progress", token, marchallObj(t, ProgressRequest{Progress: 10}))
	env.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		name: "unknown video", wantCode: http.StatusNotFound,
		wantData: marchallObj(t, httpErr{Error: room.ErrVideoNotFound.Error()}),
	}, rec)
}

func Test_roomApi_stats(t *testing.T) {
	env := setup(t)
	instructor := env.register(t, "Prof Mutombo", "prof@test.cd", user.RoleInstructor)
	student := env.register(t, "Ana Gomez", "ana@test.cd", user.RoleStudent)
	rm := env.createRoom(t, instructor, "Go 101")
	pl := env.createPlaylist(t, instructor, rm, "Basics")
	vid := env.addVideo(t, instructor, rm, pl, "Intro")
	env.addVideo(t, instructor, rm, pl, "Types")
	env.enroll(t, student, rm)

	if _, err := env.usrSvc.RecordWatchProgress(context.Background(), student.ID, vid.ID, rm.ID, pl.ID, 95); err != nil {
		t.Fatalf("RecordWatchProgress() error = %v", err)
	}

	req, rec := newAuthRequest(http.MethodGet, "/v1/rooms/"+rm.ID+"/stats", getToken(t, student))
	env.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		name: "students denied", wantCode: http.StatusForbidden,
		wantData: marchallObj(t, httpErr{Error: "permission denied"}),
	}, rec)

	req, rec = newAuthRequest(http.MethodGet, "/v1/rooms/"+rm.ID+"/stats", getToken(t, instructor))
	env.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		name: "stats", wantCode: http.StatusOK,
		wantData: marchallObj(t, room.RoomStats{
			RoomID:          rm.ID,
			StudentCount:    1,
			PlaylistCount:   1,
			VideoCount:      2,
			AverageProgress: 50,
		}),
	}, rec)
}
