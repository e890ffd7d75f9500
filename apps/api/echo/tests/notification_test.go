package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	. "github.com/cursohub/cursohub/apps/api/echo"
	"github.com/cursohub/cursohub/core/notification"
	"github.com/cursohub/cursohub/core/user"
)

func Test_notificationApi(t *testing.T) {
	env := setup(t)
	instructor := env.register(t, "Prof Mutombo", "prof@test.cd", user.RoleInstructor)
	student := env.register(t, "Ana Gomez", "ana@test.cd", user.RoleStudent)
	rm := env.createRoom(t, instructor, "Go 101")
	env.enroll(t, student, rm) // welcome + enrolled notifications

	token := getToken(t, student)

	req, rec := newAuthRequest(http.MethodGet, "/v1/notifications", "")
	env.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{name: "auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}, rec)

	req, rec = newAuthRequest(http.MethodGet, "/v1/notifications", token)
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("list code = %v; body %s", rec.Code, rec.Body.String())
	}
	var notifs []notification.Notification
	if err := json.Unmarshal(rec.Body.Bytes(), &notifs); err != nil {
		t.Fatalf("unmarshalling response: %v", err)
	}
	if len(notifs) != 2 {
		t.Fatalf("expected 2 notifications; got %d", len(notifs))
	}
	// most recent first
	if notifs[0].Type != notification.TypeEnrolled || notifs[1].Type != notification.TypeWelcome {
		t.Errorf("unexpected notification order: %v, %v", notifs[0].Type, notifs[1].Type)
	}

	req, rec = newAuthRequest(http.MethodGet, "/v1/notifications/unread-count", token)
	env.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{name: "unread count", wantCode: http.StatusOK, wantData: marchallObj(t, UnreadCountResponse{Count: 2})}, rec)

	// a foreign notification cannot be marked read
	req, rec = newAuthRequest(http.MethodPost, "/v1/notifications/"+notifs[0].ID+"/read", getToken(t, instructor))
	env.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		name: "foreign read", wantCode: http.StatusNotFound,
		wantData: marchallObj(t, httpErr{Error: notification.ErrNotFound.Error()}),
	}, rec)

	req, rec = newAuthRequest(http.MethodPost, "/v1/notifications/"+notifs[0].ID+"/read", token)
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("mark read code = %v; body %s", rec.Code, rec.Body.String())
	}

	count, err := env.notifSvc.UnreadCount(context.Background(), student.ID)
	if err != nil {
		t.Fatalf("UnreadCount() error = %v", err)
	}
	if count != 1 {
		t.Errorf("unread count = %d; want 1", count)
	}

	req, rec = newAuthRequest(http.MethodPost, "/v1/notifications/read-all", token)
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("read-all code = %v; body %s", rec.Code, rec.Body.String())
	}

	req, rec = newAuthRequest(http.MethodGet, "/v1/notifications/unread-count", token)
	env.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{name: "all read", wantCode: http.StatusOK, wantData: marchallObj(t, UnreadCountResponse{Count: 0})}, rec)
}
