package echoapi

import (
	"github.com/go-playground/validator/v10"

	"github.com/cursohub/cursohub/core"
	"github.com/cursohub/cursohub/core/user"
)

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	TokenResponse struct {
		Token string `json:"token"`
	}

	RegisterResponse struct {
		User  user.User `json:"user"`
		Token string    `json:"token"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	EnrollRequest struct {
		InviteCode string `json:"invite_code" validate:"required"`
	}

	AddStudentRequest struct {
		StudentID string `json:"student_id" validate:"required"`
	}

	ReorderRequest struct {
		IDs []string `json:"ids" validate:"required,min=1"`
	}

	ProgressRequest struct {
		Progress int `json:"progress" validate:"min=0,max=100"`
	}

	UpdatePlaylistRequest struct {
		Name string `json:"name" validate:"required"`
	}

	UnreadCountResponse struct {
		Count int `json:"count"`
	}
)

func (r *LoginRequest) Validate(validate *validator.Validate) error {
	r.Email = core.CleanString(r.Email, true)
	return validate.Struct(r)
}

func (r *PasswordResetRequest) Validate(validate *validator.Validate) error {
	r.Email = core.CleanString(r.Email, true)
	return validate.Struct(r)
}

func (r *EnrollRequest) Validate(validate *validator.Validate) error {
	r.InviteCode = core.CleanString(r.InviteCode)
	return validate.Struct(r)
}

func (r *AddStudentRequest) Validate(validate *validator.Validate) error {
	r.StudentID = core.CleanString(r.StudentID)
	return validate.Struct(r)
}

func (r *ReorderRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(r)
}

func (r *ProgressRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(r)
}

func (r *UpdatePlaylistRequest) Validate(validate *validator.Validate) error {
	r.Name = core.CleanString(r.Name)
	return validate.Struct(r)
}
