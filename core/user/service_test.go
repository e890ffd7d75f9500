package user_test

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/cursohub/cursohub/core"
	"github.com/cursohub/cursohub/core/notification"
	"github.com/cursohub/cursohub/core/user"
	dummymail "github.com/cursohub/cursohub/services/email/dummy"
	inmemdb "github.com/cursohub/cursohub/storage/database/inmem"
)

var resetURLRegex = regexp.MustCompile(`\?uid=([A-Za-z0-9_-]+)&token=([A-Za-z0-9_-]+)`)

func newTestConfig() *core.Config {
	return &core.Config{
		AppName:                   "CursoHub",
		SecretKey:                 "secret",
		FrontendBaseURL:           "http://localhost:3000",
		PasswordResetTimeoutDelta: 1 * time.Hour,
	}
}

func setup(t *testing.T) (user.Service, notification.Service, *inmemdb.DB, *dummymail.Service) {
	t.Helper()
	db := inmemdb.NewDB()
	notifSvc := notification.NewService(inmemdb.NewNotificationRepository(db))
	mailSvc := dummymail.NewService()
	svc := user.NewServiceMock(inmemdb.NewUserRepository(db), notifSvc, mailSvc, newTestConfig())
	return svc, notifSvc, db, mailSvc
}

func register(t *testing.T, svc user.Service, name, email, role string) user.User {
	t.Helper()
	usr, err := svc.Register(context.Background(), user.NewUser{
		Name:            name,
		Email:           email,
		Password:        "LeSecret!123",
		PasswordConfirm: "LeSecret!123",
		Role:            role,
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	return usr
}

func Test_service_Register(t *testing.T) {
	svc, notifSvc, _, mailSvc := setup(t)
	ctx := context.Background()

	usr := register(t, svc, "Tim Cool", "Tim@Test.cd", user.RoleStudent)
	if usr.ID == "" {
		t.Error("Register() did not assign an ID")
	}
	if usr.Email != "Tim@Test.cd" {
		t.Errorf("Register() email = %v", usr.Email)
	}
	if !usr.IsActive {
		t.Error("Register() user should be active")
	}
	if usr.Avatar == "" {
		t.Error("Register() should set a default avatar")
	}
	if err := usr.CheckPassword("LeSecret!123"); err != nil {
		t.Errorf("CheckPassword() error = %v", err)
	}

	// welcome inbox entry
	notifs, err := notifSvc.ListForUser(ctx, usr.ID)
	if err != nil {
		t.Fatalf("ListForUser() error = %v", err)
	}
	if len(notifs) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifs))
	}
	if notifs[0].Type != notification.TypeWelcome {
		t.Errorf("notification type = %v, want %v", notifs[0].Type, notification.TypeWelcome)
	}

	// welcome email
	if sent := mailSvc.Sent(); len(sent) != 1 {
		t.Errorf("expected 1 welcome email, got %d", len(sent))
	}

	// email uniqueness, case-insensitive
	_, err = svc.Register(ctx, user.NewUser{
		Name:            "Imposter",
		Email:           "tim@test.cd",
		Password:        "Sneaky!123",
		PasswordConfirm: "Sneaky!123",
		Role:            user.RoleStudent,
	})
	if errors.Cause(err) != user.ErrEmailExists {
		t.Errorf("Register() error = %v, want %v", err, user.ErrEmailExists)
	}
}

func Test_service_Authenticate(t *testing.T) {
	svc, _, _, _ := setup(t)
	ctx := context.Background()

	usr := register(t, svc, "Tim Cool", "tim@test.cd", user.RoleInstructor)

	tests := []struct {
		name    string
		email   string
		pwd     string
		wantErr error
	}{
		{name: "unknown email", email: "who@test.cd", pwd: "LeSecret!123", wantErr: user.ErrInvalidCredentials},
		{name: "wrong password", email: "tim@test.cd", pwd: "nope", wantErr: user.ErrInvalidCredentials},
		{name: "ok", email: "tim@test.cd", pwd: "LeSecret!123"},
		{name: "ok (case-insensitive email)", email: "TIM@Test.CD", pwd: "LeSecret!123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Authenticate(ctx, tt.email, tt.pwd)
			if errors.Cause(err) != tt.wantErr {
				t.Fatalf("Authenticate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr == nil {
				if got.ID != usr.ID {
					t.Errorf("Authenticate() ID = %v, want %v", got.ID, usr.ID)
				}
				if got.LastLogin.IsZero() {
					t.Error("Authenticate() should set LastLogin")
				}
			}
		})
	}
}

func Test_service_ChangePassword(t *testing.T) {
	svc, _, _, _ := setup(t)
	ctx := context.Background()

	usr := register(t, svc, "Tim Cool", "tim@test.cd", user.RoleStudent)

	err := svc.ChangePassword(ctx, usr, user.ChangeUserPassword{
		OldPassword:     "wrong",
		Password:        "NewSecret!123",
		PasswordConfirm: "NewSecret!123",
	})
	if errors.Cause(err) != user.ErrWrongPassword {
		t.Errorf("ChangePassword() error = %v, want %v", err, user.ErrWrongPassword)
	}

	err = svc.ChangePassword(ctx, usr, user.ChangeUserPassword{
		OldPassword:     "LeSecret!123",
		Password:        "NewSecret!123",
		PasswordConfirm: "NewSecret!123",
	})
	if err != nil {
		t.Fatalf("ChangePassword() error = %v", err)
	}

	if _, err = svc.Authenticate(ctx, "tim@test.cd", "NewSecret!123"); err != nil {
		t.Errorf("Authenticate() with new password error = %v", err)
	}
}

func Test_service_PasswordReset(t *testing.T) {
	svc, _, _, mailSvc := setup(t)
	ctx := context.Background()

	register(t, svc, "Tim Cool", "tim@test.cd", user.RoleStudent)
	mailSvc.Reset()

	// unknown emails bubble up so the API layer can hide them
	err := svc.RequestPasswordReset(ctx, "who@test.cd")
	if errors.Cause(err) != user.ErrNotFound {
		t.Errorf("RequestPasswordReset() error = %v, want %v", err, user.ErrNotFound)
	}

	if err = svc.RequestPasswordReset(ctx, "tim@test.cd"); err != nil {
		t.Fatalf("RequestPasswordReset() error = %v", err)
	}
	sent := mailSvc.Sent()
	if len(sent) != 1 {
		t.Fatalf("expected 1 email, got %d", len(sent))
	}
	if !strings.Contains(sent[0].Subject, "Password reset") {
		t.Errorf("unexpected subject %q", sent[0].Subject)
	}

	m := resetURLRegex.FindStringSubmatch(sent[0].BodyStr)
	if m == nil {
		t.Fatalf("no reset link in body:\n%s", sent[0].BodyStr)
	}
	uid, token := m[1], m[2]

	err = svc.ResetPassword(ctx, user.ResetUserPassword{
		Token:           "tampered",
		UID:             uid,
		Password:        "NewSecret!123",
		PasswordConfirm: "NewSecret!123",
	})
	if errors.Cause(err) != user.ErrInvalidToken {
		t.Errorf("ResetPassword() error = %v, want %v", err, user.ErrInvalidToken)
	}

	err = svc.ResetPassword(ctx, user.ResetUserPassword{
		Token:           token,
		UID:             uid,
		Password:        "NewSecret!123",
		PasswordConfirm: "NewSecret!123",
	})
	if err != nil {
		t.Fatalf("ResetPassword() error = %v", err)
	}

	if _, err = svc.Authenticate(ctx, "tim@test.cd", "NewSecret!123"); err != nil {
		t.Errorf("Authenticate() with new password error = %v", err)
	}

	// token is single-use
	err = svc.ResetPassword(ctx, user.ResetUserPassword{
		Token:           token,
		UID:             uid,
		Password:        "Again!123",
		PasswordConfirm: "Again!123",
	})
	if errors.Cause(err) != user.ErrInvalidToken {
		t.Errorf("ResetPassword() reuse error = %v, want %v", err, user.ErrInvalidToken)
	}
}

func Test_service_WatchProgress(t *testing.T) {
	svc, _, _, _ := setup(t)
	ctx := context.Background()

	usr := register(t, svc, "Tim Cool", "tim@test.cd", user.RoleStudent)

	// nothing recorded yet
	wp, err := svc.VideoProgress(ctx, usr.ID, "vid1")
	if err != nil {
		t.Fatalf("VideoProgress() error = %v", err)
	}
	if wp.Progress != 0 || wp.Watched() {
		t.Errorf("VideoProgress() = %+v, want zero entry", wp)
	}

	tests := []struct {
		name     string
		progress int
		want     int
		watched  bool
	}{
		{name: "clamped low", progress: -10, want: 0},
		{name: "mid", progress: 45, want: 45},
		{name: "watched threshold", progress: 90, want: 90, watched: true},
		{name: "clamped high", progress: 150, want: 100, watched: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wp, err := svc.RecordWatchProgress(ctx, usr.ID, "vid1", "room1", "pl1", tt.progress)
			if err != nil {
				t.Fatalf("RecordWatchProgress() error = %v", err)
			}
			if wp.Progress != tt.want {
				t.Errorf("Progress = %v, want %v", wp.Progress, tt.want)
			}
			if wp.Watched() != tt.watched {
				t.Errorf("Watched() = %v, want %v", wp.Watched(), tt.watched)
			}
		})
	}

	// upserts overwrite, never append
	all, err := svc.WatchProgressForUser(ctx, usr.ID)
	if err != nil {
		t.Fatalf("WatchProgressForUser() error = %v", err)
	}
	if len(all) != 1 {
		t.Errorf("expected a single ledger entry, got %d", len(all))
	}
}
