package user

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/cursohub/cursohub/core"
	"github.com/cursohub/cursohub/core/notification"
)

var (
	// errors
	ErrNotFound           = errors.New("user not found")
	ErrEmailExists        = errors.New("a user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrWrongPassword      = errors.New("current password is incorrect")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrDeactivated        = errors.New("account deactivated")
)

type (
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...User) error
		CreateUser(ctx context.Context, usr User) (User, error)
		QueryAllUsers(ctx context.Context) ([]User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		FilterUsersByRole(ctx context.Context, role string) ([]User, error)
		// UpdateUser only saves set fields: Name, Avatar, PasswordHash,
		// LastLogin; isActive when non-nil. UpdatedAt is always saved.
		UpdateUser(ctx context.Context, usr User, isActive *bool) (User, error)
		DeleteUsersByID(ctx context.Context, ids ...string) error

		UpsertWatchProgress(ctx context.Context, wp WatchProgress) (WatchProgress, error)
		GetWatchProgress(ctx context.Context, userID, videoID string) (WatchProgress, error)
		QueryWatchProgressByUser(ctx context.Context, userID string) ([]WatchProgress, error)
		QueryWatchProgressByVideoIDs(ctx context.Context, videoIDs ...string) ([]WatchProgress, error)
	}

	Service interface {
		CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...User) error
		Register(ctx context.Context, nu NewUser) (User, error)
		Authenticate(ctx context.Context, email, pwd string) (User, error)
		GetByID(ctx context.Context, id string) (User, error)
		GetByEmail(ctx context.Context, email string) (User, error)
		QueryAll(ctx context.Context) ([]User, error)
		QueryStudents(ctx context.Context) ([]User, error)
		UpdateProfile(ctx context.Context, id string, up UpdateProfile) (User, error)
		ChangePassword(ctx context.Context, usr User, cp ChangeUserPassword) error
		RequestPasswordReset(ctx context.Context, email string) error
		ResetPassword(ctx context.Context, rp ResetUserPassword) error
		Delete(ctx context.Context, ids ...string) error

		RecordWatchProgress(ctx context.Context, userID, videoID, roomID, playlistID string, progress int) (WatchProgress, error)
		VideoProgress(ctx context.Context, userID, videoID string) (WatchProgress, error)
		WatchProgressForUser(ctx context.Context, userID string) ([]WatchProgress, error)
		WatchProgressForVideos(ctx context.Context, videoIDs ...string) ([]WatchProgress, error)
	}

	service struct {
		repo     Repository
		notifSvc notification.Service
		mailSvc  core.EmailService
		conf     *core.Config
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, notifSvc notification.Service, mailSvc core.EmailService, conf *core.Config) Service {
	secretKey = []byte(conf.SecretKey)
	passwordResetTimeoutDelta = conf.PasswordResetTimeoutDelta
	return &service{
		repo:     repo,
		notifSvc: notifSvc,
		mailSvc:  mailSvc,
		conf:     conf,
	}
}

func (svc *service) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...User) error {
	if err := svc.repo.CheckEmailUniqueness(ctx, email, excludedUsers...); err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return core.NewConflictError(err)
		}
		return err
	}
	return nil
}

func (svc *service) Register(ctx context.Context, nu NewUser) (User, error) {
	// uniqueness must hold even for callers that skip NewUser.Validate
	if err := svc.repo.CheckEmailUniqueness(ctx, nu.Email); err != nil {
		return User{}, errors.Wrap(err, "checking email uniqueness")
	}

	now := time.Now().UTC()
	usr := User{
		ID:        uuid.New().String(),
		Name:      nu.Name,
		Email:     nu.Email,
		Role:      nu.Role,
		Avatar:    DefaultAvatar(nu.Role),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}

	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		return User{}, errors.Wrap(err, "creating user")
	}

	// welcome inbox entry, part of the same logical write
	msg := "Explore the available rooms and enroll with an invite code."
	if usr.IsInstructor() {
		msg = "Start by creating your first room."
	}
	if _, err = svc.notifSvc.Add(ctx, notification.NewNotification{
		RecipientID: usr.ID,
		Type:        notification.TypeWelcome,
		Title:       fmt.Sprintf("Welcome to %s!", svc.conf.AppName),
		Message:     msg,
	}); err != nil {
		return User{}, errors.Wrap(err, "adding welcome notification")
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject: fmt.Sprintf("Welcome to %s!", svc.conf.AppName),
		BodyStr: fmt.Sprintf("Hi %s,\n\nYour account is ready. %s\n", usr.Name, msg),
	})
	return usr, nil
}

// Authenticate returns the matching active user. It does not reveal whether a
// failure was due to an unknown email or a wrong password.
func (svc *service) Authenticate(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, ErrInvalidCredentials
		}
		return User{}, errors.Wrap(err, "finding user by email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, ErrInvalidCredentials
	}
	if !usr.IsActive {
		return User{}, ErrDeactivated
	}

	usr.LastLogin = time.Now().UTC()
	usr.UpdatedAt = usr.LastLogin
	if usr, err = svc.repo.UpdateUser(ctx, User{ID: usr.ID, LastLogin: usr.LastLogin, UpdatedAt: usr.UpdatedAt}, nil); err != nil {
		return User{}, errors.Wrap(err, "setting lastLogin")
	}
	return usr, nil
}

func (svc *service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *service) QueryAll(ctx context.Context) ([]User, error) {
	return svc.repo.QueryAllUsers(ctx)
}

func (svc *service) QueryStudents(ctx context.Context) ([]User, error) {
	return svc.repo.FilterUsersByRole(ctx, RoleStudent)
}

func (svc *service) UpdateProfile(ctx context.Context, id string, up UpdateProfile) (User, error) {
	usr := User{
		ID:        id,
		Name:      up.Name,
		Avatar:    up.Avatar,
		UpdatedAt: time.Now().UTC(),
	}
	return svc.repo.UpdateUser(ctx, usr, nil)
}

func (svc *service) ChangePassword(ctx context.Context, usr User, cp ChangeUserPassword) error {
	if err := usr.CheckPassword(cp.OldPassword); err != nil {
		return ErrWrongPassword
	}
	if err := usr.SetPassword(cp.Password); err != nil {
		return errors.Wrap(err, "setting password")
	}
	_, err := svc.repo.UpdateUser(ctx, User{ID: usr.ID, PasswordHash: usr.PasswordHash, UpdatedAt: time.Now().UTC()}, nil)
	return errors.Wrap(err, "updating user")
}

// RequestPasswordReset mints a reset token for the account behind email and
// mails it. Tokens are per user, expire after conf.PasswordResetTimeoutDelta
// and are invalidated by use.
func (svc *service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	go svc.sendPasswordResetMail(usr)
	return nil
}

func (svc *service) sendPasswordResetMail(usr User) {
	token := makeToken(usr)
	url := fmt.Sprintf("%s/reset-password?uid=%s&token=%s", svc.conf.FrontendBaseURL, EncodeUID(usr), token)
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject: "Password reset",
		BodyStr: fmt.Sprintf(
			"Hi %s,\n\nFollow this link to reset your password (valid for %s):\n%s\n",
			usr.Name, svc.conf.PasswordResetTimeoutDelta, url,
		),
	})
}

func (svc *service) ResetPassword(ctx context.Context, rp ResetUserPassword) error {
	uid, err := decodeUID(rp.UID)
	if err != nil {
		return ErrInvalidToken
	}
	usr, err := svc.repo.GetUserByID(ctx, uid)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return ErrInvalidToken
		}
		return errors.Wrap(err, "finding user by ID")
	}
	if err = verifyToken(usr, rp.Token); err != nil {
		return ErrInvalidToken
	}
	if err = usr.SetPassword(rp.Password); err != nil {
		return errors.Wrap(err, "setting password")
	}
	// the new hash invalidates the token: single-use
	_, err = svc.repo.UpdateUser(ctx, User{ID: usr.ID, PasswordHash: usr.PasswordHash, UpdatedAt: time.Now().UTC()}, nil)
	return errors.Wrap(err, "updating user")
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteUsersByID(ctx, ids...)
}

// RecordWatchProgress upserts the (user, video) ledger entry; progress is
// clamped to [0, 100].
func (svc *service) RecordWatchProgress(ctx context.Context, userID, videoID, roomID, playlistID string, progress int) (WatchProgress, error) {
	if progress < 0 {
		progress = 0
	} else if progress > 100 {
		progress = 100
	}
	wp := WatchProgress{
		UserID:     userID,
		VideoID:    videoID,
		RoomID:     roomID,
		PlaylistID: playlistID,
		Progress:   progress,
		UpdatedAt:  time.Now().UTC(),
	}
	return svc.repo.UpsertWatchProgress(ctx, wp)
}

// VideoProgress returns the ledger entry for (user, video); a zero-progress
// entry when none has been recorded yet.
func (svc *service) VideoProgress(ctx context.Context, userID, videoID string) (WatchProgress, error) {
	wp, err := svc.repo.GetWatchProgress(ctx, userID, videoID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return WatchProgress{UserID: userID, VideoID: videoID}, nil
		}
		return WatchProgress{}, err
	}
	return wp, nil
}

func (svc *service) WatchProgressForUser(ctx context.Context, userID string) ([]WatchProgress, error) {
	return svc.repo.QueryWatchProgressByUser(ctx, userID)
}

func (svc *service) WatchProgressForVideos(ctx context.Context, videoIDs ...string) ([]WatchProgress, error) {
	return svc.repo.QueryWatchProgressByVideoIDs(ctx, videoIDs...)
}
