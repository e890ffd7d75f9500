package user

import (
	"context"

	"github.com/cursohub/cursohub/core"
	"github.com/cursohub/cursohub/core/notification"
)

type serviceMock struct {
	service
}

// NewServiceMock returns a Service whose password-reset mail is sent
// synchronously so tests can observe it.
func NewServiceMock(repo Repository, notifSvc notification.Service, mailSvc core.EmailService, conf *core.Config) Service {
	secretKey = []byte(conf.SecretKey)
	passwordResetTimeoutDelta = conf.PasswordResetTimeoutDelta
	return &serviceMock{
		service: service{
			repo:     repo,
			notifSvc: notifSvc,
			mailSvc:  mailSvc,
			conf:     conf,
		},
	}
}

func (svc *serviceMock) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	// run synchronously
	svc.sendPasswordResetMail(usr)
	return nil
}
