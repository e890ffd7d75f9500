package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"
	"testing"

	. "github.com/cursohub/cursohub/apps/api/echo"
	"github.com/cursohub/cursohub/core/user"
)

func Test_userApi_register(t *testing.T) {
	env := setup(t)

	existing := env.register(t, "Ana Gomez", "ana@test.cd", user.RoleStudent)

	newUser := func(name, email, pwd, pwdConfirm, role string) []byte {
		return marchallObj(t, user.NewUser{
			Name:            name,
			Email:           email,
			Password:        pwd,
			PasswordConfirm: pwdConfirm,
			Role:            role,
		})
	}

	tests := []httpTest{
		{
			name: "Duplicate email conflicts", body: newUser("Ana Again", existing.Email, "LeSecret!123", "LeSecret!123", user.RoleStudent),
			wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: user.ErrEmailExists.Error()}),
		},
		{
			name: "Duplicate email is case-insensitive", body: newUser("Ana Again", "ANA@Test.CD", "LeSecret!123", "LeSecret!123", user.RoleStudent),
			wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: user.ErrEmailExists.Error()}),
		},
		{
			name: "Password mismatch rejected", body: newUser("Bob", "bob@test.cd", "LeSecret!123", "LeSecret!456", user.RoleStudent),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "Unknown role rejected", body: newUser("Bob", "bob@test.cd", "LeSecret!123", "LeSecret!123", "admin"),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "Student registered", body: newUser("Bob Kalala", "bob@test.cd", "LeSecret!123", "LeSecret!123", user.RoleStudent),
			wantCode: http.StatusCreated,
		},
		{
			name: "Instructor registered", body: newUser("Prof Mutombo", "prof@test.cd", "LeSecret!123", "LeSecret!123", user.RoleInstructor),
			wantCode: http.StatusCreated,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/users/register", tt.body)
			env.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if rec.Code != http.StatusCreated {
				return
			}
			var resp struct {
				User  user.User `json:"user"`
				Token string    `json:"token"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unmarshalling response: %v", err)
			}
			if resp.Token == "" {
				t.Error("expected a token in the response")
			}
			if resp.User.ID == "" || !resp.User.IsActive {
				t.Errorf("unexpected user in response: %+v", resp.User)
			}
		})
	}
}

func Test_userApi_login(t *testing.T) {
	env := setup(t)
	student := env.register(t, "Ana Gomez", "ana@test.cd", user.RoleStudent)

	login := func(email, pwd string) []byte {
		return marchallObj(t, LoginRequest{Email: email, Password: pwd})
	}

	tests := []httpTest{
		{
			name: "Unknown email fails", body: login("ghost@test.cd", "LeSecret!123"),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "Wrong password fails", body: login(student.Email, "nope nope"),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{name: "Login ok", body: login(student.Email, "LeSecret!123"), wantCode: http.StatusOK},
		{name: "Login email is case-insensitive", body: login("ANA@Test.CD", "LeSecret!123"), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/users/login", tt.body)
			env.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if rec.Code != http.StatusOK {
				return
			}
			var resp TokenResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unmarshalling response: %v", err)
			}
			if resp.Token == "" {
				t.Error("expected a token in the response")
			}
		})
	}
}

func Test_userApi_me(t *testing.T) {
	env := setup(t)
	student := env.register(t, "Ana Gomez", "ana@test.cd", user.RoleStudent)
	token := getToken(t, student)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Me", token: token, wantCode: http.StatusOK, wantData: marchallObj(t, student)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/v1/users/me", tt.token)
			env.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_updateProfile(t *testing.T) {
	env := setup(t)
	student := env.register(t, "Ana Gomez", "ana@test.cd", user.RoleStudent)
	token := getToken(t, student)

	body := marchallObj(t, user.UpdateProfile{Name: "Ana G.", Avatar: "🦉"})
	req, rec := newAuthRequest(http.MethodPut, "/v1/users/me", token, body)
	env.app.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var updated user.User
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("unmarshalling response: %v", err)
	}
	if updated.Name != "Ana G." || updated.Avatar != "🦉" {
		t.Errorf("profile not updated: %+v", updated)
	}
	if updated.Email != student.Email {
		t.Errorf("email should be untouched; got %v", updated.Email)
	}
}

func Test_userApi_changePassword(t *testing.T) {
	env := setup(t)
	student := env.register(t, "Ana Gomez", "ana@test.cd", user.RoleStudent)
	token := getToken(t, student)

	change := func(old, pwd, confirm string) []byte {
		return marchallObj(t, user.ChangeUserPassword{OldPassword: old, Password: pwd, PasswordConfirm: confirm})
	}

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Wrong current password", token: token, body: change("nope nope", "NewSecret!456", "NewSecret!456"),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: user.ErrWrongPassword.Error()}),
		},
		{
			name: "Password changed", token: token, body: change("LeSecret!123", "NewSecret!456", "NewSecret!456"),
			wantCode: http.StatusOK, wantData: marchallObj(t, SuccessResponse{Success: "Password has been changed."}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPut, "/v1/users/me/password", tt.token, tt.body)
			env.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	if _, err := env.usrSvc.Authenticate(context.Background(), student.Email, "NewSecret!456"); err != nil {
		t.Errorf("new password should authenticate; err %v", err)
	}
}

func Test_userApi_queryStudents(t *testing.T) {
	env := setup(t)
	instructor := env.register(t, "Prof Mutombo", "prof@test.cd", user.RoleInstructor)
	stu1 := env.register(t, "Ana Gomez", "ana@test.cd", user.RoleStudent)
	stu2 := env.register(t, "Bob Kalala", "bob@test.cd", user.RoleStudent)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Instructor required", token: getToken(t, stu1), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "Students listed", token: getToken(t, instructor), wantCode: http.StatusOK,
			wantData: marchallList(t, stu1, stu2),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/v1/users/students", tt.token)
			env.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

var resetURLRx = regexp.MustCompile(`\?uid=([A-Za-z0-9_-]+)&token=([A-Za-z0-9_-]+)`)

func Test_userApi_passwordReset(t *testing.T) {
	env := setup(t)
	student := env.register(t, "Ana Gomez", "ana@test.cd", user.RoleStudent)
	env.mailSvc.Reset()

	enumerationSafeBody := marchallObj(t, SuccessResponse{
		Success: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})

	// unknown emails get the same response as known ones
	req, rec := newRequest(http.MethodPost, "/v1/users/password-reset", marchallObj(t, PasswordResetRequest{Email: "ghost@test.cd"}))
	env.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{name: "unknown email", wantCode: http.StatusOK, wantData: enumerationSafeBody}, rec)
	if n := len(env.mailSvc.Sent()); n != 0 {
		t.Fatalf("no email should go out for unknown addresses; got %d", n)
	}

	req, rec = newRequest(http.MethodPost, "/v1/users/password-reset", marchallObj(t, PasswordResetRequest{Email: student.Email}))
	env.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{name: "known email", wantCode: http.StatusOK, wantData: enumerationSafeBody}, rec)

	sent := env.mailSvc.Sent()
	if len(sent) != 1 {
		t.Fatalf("expected 1 reset email; got %d", len(sent))
	}
	match := resetURLRx.FindStringSubmatch(sent[0].BodyStr)
	if match == nil {
		t.Fatalf("no reset link found in email body: %s", sent[0].BodyStr)
	}
	uid, token := match[1], match[2]

	confirm := func(uid, token, pwd string) []byte {
		return marchallObj(t, user.ResetUserPassword{UID: uid, Token: token, Password: pwd, PasswordConfirm: pwd})
	}

	// tampered token is rejected
	req, rec = newRequest(http.MethodPost, "/v1/users/password-reset-confirm", confirm(uid, token+"x", "NewSecret!456"))
	env.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		name: "tampered token", wantCode: http.StatusBadRequest,
		wantData: marchallObj(t, httpErr{Error: user.ErrInvalidToken.Error()}),
	}, rec)

	// valid confirmation resets the password
	req, rec = newRequest(http.MethodPost, "/v1/users/password-reset-confirm", confirm(uid, token, "NewSecret!456"))
	env.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		name: "confirmed", wantCode: http.StatusOK,
		wantData: marchallObj(t, SuccessResponse{Success: "Password has been reset with the new password."}),
	}, rec)

	if _, err := env.usrSvc.Authenticate(context.Background(), student.Email, "NewSecret!456"); err != nil {
		t.Errorf("new password should authenticate; err %v", err)
	}

	// the token is single-use
	req, rec = newRequest(http.MethodPost, "/v1/users/password-reset-confirm", confirm(uid, token, "OtherSecret!789"))
	env.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		name: "reuse rejected", wantCode: http.StatusBadRequest,
		wantData: marchallObj(t, httpErr{Error: user.ErrInvalidToken.Error()}),
	}, rec)
}

func Test_userApi_tokenRefresh(t *testing.T) {
	env := setup(t)
	student := env.register(t, "Ana Gomez", "ana@test.cd", user.RoleStudent)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Token refreshed", token: getToken(t, student), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/users/token-refresh", tt.token)
			env.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if rec.Code != http.StatusOK {
				return
			}
			var resp TokenResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unmarshalling response: %v", err)
			}
			if resp.Token == "" {
				t.Error("expected a token in the response")
			}
		})
	}
}
