package user

import (
	"context"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/cursohub/cursohub/core"
)

// Roles
const (
	RoleInstructor = "instructor"
	RoleStudent    = "student"
)

var AllRoles = []string{RoleInstructor, RoleStudent}

// Default avatars per role, as shown on dashboards.
const (
	avatarInstructor = "👨‍🏫"
	avatarStudent    = "🎓"
)

func DefaultAvatar(role string) string {
	if role == RoleInstructor {
		return avatarInstructor
	}
	return avatarStudent
}

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"` // unique, lowercased
	Role         string    `json:"role"`
	Avatar       string    `json:"avatar"`
	IsActive     bool      `json:"is_active"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u User) IsInstructor() bool { return u.Role == RoleInstructor }
func (u User) IsStudent() bool    { return u.Role == RoleStudent }

// WatchedThreshold is the progress percentage at which a video counts as watched.
const WatchedThreshold = 90

// WatchProgress is the per (user, video) completion ledger entry. A new
// report overwrites the existing entry, it never appends.
type WatchProgress struct {
	UserID     string    `json:"user_id"`
	VideoID    string    `json:"video_id"`
	RoomID     string    `json:"room_id"`
	PlaylistID string    `json:"playlist_id"`
	Progress   int       `json:"progress"` // 0-100
	UpdatedAt  time.Time `json:"updated_at"`
}

func (wp WatchProgress) Watched() bool { return wp.Progress >= WatchedThreshold }

// NewUser contains information needed to register a new User.
type NewUser struct {
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
	Role            string `json:"role" validate:"required,role"`
}

func (nu *NewUser) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckEmailUniqueness(ctx, nu.Email)
}

// UpdateProfile defines what a user may change on their own account.
type UpdateProfile struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

func (up *UpdateProfile) Validate(validate *validator.Validate) error {
	up.Name = core.CleanString(up.Name)
	return validate.Struct(up)
}

type ChangeUserPassword struct {
	OldPassword     string `json:"old_password" validate:"required"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (cp ChangeUserPassword) Validate(validate *validator.Validate) error {
	return validate.Struct(cp)
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp ResetUserPassword) Validate(validate *validator.Validate) error {
	return validate.Struct(rp)
}

// RegisterRoleValidation registers the `role` tag on the given validator.
func RegisterRoleValidation(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		role := fl.Field().String()
		for _, r := range AllRoles {
			if role == r {
				return true
			}
		}
		return false
	})
	core.RegisterCustomTranslation(validate, translator, "role", "invalid role")
}
