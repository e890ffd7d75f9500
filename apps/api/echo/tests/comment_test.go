package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/cursohub/cursohub/core/comment"
	"github.com/cursohub/cursohub/core/user"
)

func Test_commentApi_create(t *testing.T) {
	env := setup(t)
	instructor := env.register(t, "Prof Mutombo", "prof@test.cd", user.RoleInstructor)
	student := env.register(t, "Ana Gomez", "ana@test.cd", user.RoleStudent)
	outsider := env.register(t, "Bob Kalala", "bob@test.cd", user.RoleStudent)
	rm := env.createRoom(t, instructor, "Go 101")
	pl := env.createPlaylist(t, instructor, rm, "Basics")
	vid := env.addVideo(t, instructor, rm, pl, "Intro")
	env.enroll(t, student, rm)

	path := "/v1/videos/" + vid.ID + "/comments"
	body := marchallObj(t, comment.NewComment{Body: "What does := mean?"})

	tests := []httpTest{
		{name: "Auth required", body: body, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Enrollment required", body: body, token: getToken(t, outsider),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{name: "Body required", body: marchallObj(t, comment.NewComment{}), token: getToken(t, student), wantCode: http.StatusBadRequest},
		{name: "Question posted", body: body, token: getToken(t, student), wantCode: http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, path, tt.token, tt.body)
			env.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if rec.Code != http.StatusCreated {
				return
			}
			var cmt comment.Comment
			if err := json.Unmarshal(rec.Body.Bytes(), &cmt); err != nil {
				t.Fatalf("unmarshalling response: %v", err)
			}
			if cmt.AuthorID != student.ID || cmt.AuthorName != student.Name || cmt.AuthorRole != user.RoleStudent {
				t.Errorf("author snapshot not set: %+v", cmt)
			}
			if !cmt.IsTopLevel() {
				t.Error("comment should be top-level")
			}
		})
	}
}

func Test_commentApi_threading(t *testing.T) {
	env := setup(t)
	instructor := env.register(t, "Prof Mutombo", "prof@test.cd", user.RoleInstructor)
	student := env.register(t, "Ana Gomez", "ana@test.cd", user.RoleStudent)
	rm := env.createRoom(t, instructor, "Go 101")
	pl := env.createPlaylist(t, instructor, rm, "Basics")
	vid := env.addVideo(t, instructor, rm, pl, "Intro")
	otherVid := env.addVideo(t, instructor, rm, pl, "Types")
	env.enroll(t, student, rm)

	question, err := env.commentSvc.Add(context.Background(), student, vid.ID, comment.NewComment{Body: "What does := mean?"})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	token := getToken(t, instructor)

	// a reply lands under the question
	req, rec := newAuthRequest(http.MethodPost, "/v1/videos/"+vid.ID+"/comments", token,
		marchallObj(t, comment.NewComment{Body: "Short variable declaration.", ParentID: question.ID}))
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("reply code = %v; body %s", rec.Code, rec.Body.String())
	}
	var reply comment.Comment
	if err := json.Unmarshal(rec.Body.Bytes(), &reply); err != nil {
		t.Fatalf("unmarshalling response: %v", err)
	}
	if reply.ParentID != question.ID {
		t.Errorf("ParentID = %v; want %v", reply.ParentID, question.ID)
	}

	// replies cannot be nested deeper
	req, rec = newAuthRequest(http.MethodPost, "/v1/videos/"+vid.ID+"/comments", token,
		marchallObj(t, comment.NewComment{Body: "nested", ParentID: reply.ID}))
	env.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		name: "nested reply", wantCode: http.StatusBadRequest,
		wantData: marchallObj(t, httpErr{Error: "replies cannot be nested"}),
	}, rec)

	// the parent must belong to the same video
	req, rec = newAuthRequest(http.MethodPost, "/v1/videos/"+otherVid.ID+"/comments", token,
		marchallObj(t, comment.NewComment{Body: "lost", ParentID: question.ID}))
	env.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		name: "cross-video parent", wantCode: http.StatusBadRequest,
		wantData: marchallObj(t, httpErr{Error: "parent comment belongs to another video"}),
	}, rec)

	// unknown parent 404s
	req, rec = newAuthRequest(http.MethodPost, "/v1/videos/"+vid.ID+"/comments", token,
		marchallObj(t, comment.NewComment{Body: "orphan", ParentID: "nope"}))
	env.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		name: "unknown parent", wantCode: http.StatusNotFound,
		wantData: marchallObj(t, httpErr{Error: comment.ErrParentNotFound.Error()}),
	}, rec)

	// the thread lists both comments
	req, rec = newAuthRequest(http.MethodGet, "/v1/videos/"+vid.ID+"/comments", getToken(t, student))
	env.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{name: "thread", wantCode: http.StatusOK, wantData: marchallList(t, question, reply)}, rec)
}

func Test_commentApi_resolve(t *testing.T) {
	env := setup(t)
	instructor := env.register(t, "Prof Mutombo", "prof@test.cd", user.RoleInstructor)
	student := env.register(t, "Ana Gomez", "ana@test.cd", user.RoleStudent)
	rm := env.createRoom(t, instructor, "Go 101")
	pl := env.createPlaylist(t, instructor, rm, "Basics")
	vid := env.addVideo(t, instructor, rm, pl, "Intro")
	env.enroll(t, student, rm)

	question, err := env.commentSvc.Add(context.Background(), student, vid.ID, comment.NewComment{Body: "What does := mean?"})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	req, rec := newAuthRequest(http.MethodPost, "/v1/comments/"+question.ID+"/resolve", getToken(t, student))
	env.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		name: "author cannot resolve", wantCode: http.StatusForbidden,
		wantData: marchallObj(t, httpErr{Error: "permission denied"}),
	}, rec)

	req, rec = newAuthRequest(http.MethodPost, "/v1/comments/"+question.ID+"/resolve", getToken(t, instructor))
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("resolve code = %v; body %s", rec.Code, rec.Body.String())
	}
	var resolved comment.Comment
	if err := json.Unmarshal(rec.Body.Bytes(), &resolved); err != nil {
		t.Fatalf("unmarshalling response: %v", err)
	}
	if !resolved.Resolved {
		t.Error("question should be resolved")
	}
}

func Test_commentApi_destroy(t *testing.T) {
	env := setup(t)
	instructor := env.register(t, "Prof Mutombo", "prof@test.cd", user.RoleInstructor)
	student := env.register(t, "Ana Gomez", "ana@test.cd", user.RoleStudent)
	other := env.register(t, "Bob Kalala", "bob@test.cd", user.RoleStudent)
	rm := env.createRoom(t, instructor, "Go 101")
	pl := env.createPlaylist(t, instructor, rm, "Basics")
	vid := env.addVideo(t, instructor, rm, pl, "Intro")
	env.enroll(t, student, rm)
	env.enroll(t, other, rm)

	question, err := env.commentSvc.Add(context.Background(), student, vid.ID, comment.NewComment{Body: "What does := mean?"})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	// only the author or the room owner may delete
	req, rec := newAuthRequest(http.MethodDelete, "/v1/comments/"+question.ID, getToken(t, other))
	env.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		name: "stranger delete", wantCode: http.StatusForbidden,
		wantData: marchallObj(t, httpErr{Error: "permission denied"}),
	}, rec)

	req, rec = newAuthRequest(http.MethodDelete, "/v1/comments/"+question.ID, getToken(t, student))
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete code = %v; body %s", rec.Code, rec.Body.String())
	}

	req, rec = newAuthRequest(http.MethodDelete, "/v1/comments/"+question.ID, getToken(t, student))
	env.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		name: "re-delete", wantCode: http.StatusNotFound,
		wantData: marchallObj(t, httpErr{Error: comment.ErrNotFound.Error()}),
	}, rec)
}
