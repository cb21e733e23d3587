package domain

import "time"

// Role names assignable to accounts.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type Account struct {
	AccountID      string    `json:"id" dynamodbav:"account_id"`
	Email          string    `json:"email" dynamodbav:"email"`
	Name           string    `json:"name" dynamodbav:"name"`
	BlogID         string    `json:"blog_id" dynamodbav:"blog_id"`
	PasswordHash   string    `json:"-" dynamodbav:"password_hash"`
	Biography      string    `json:"biography,omitempty" dynamodbav:"biography"`
	Company        string    `json:"company,omitempty" dynamodbav:"company"`
	Location       string    `json:"location,omitempty" dynamodbav:"location"`
	Homepage       string    `json:"homepage,omitempty" dynamodbav:"homepage"`
	ProfileImageID *string   `json:"profile_image_id,omitempty" dynamodbav:"profile_image_id"`
	Roles          []string  `json:"roles" dynamodbav:"roles"`
	Deleted        bool      `json:"-" dynamodbav:"deleted"`
	CreatedAt      time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt      time.Time `json:"updated" dynamodbav:"updated_at"`
}

type CreateAccountRequest struct {
	Email           string `json:"email" validate:"required,email,max=320"`
	Name            string `json:"name" validate:"required,max=32"`
	BlogID          string `json:"blog_id" validate:"required,max=64"`
	Password        string `json:"password" validate:"required,min=8,max=72"`
	EmailVerifyCode string `json:"email_verify_code"`
	// RegisterToken, when present, replaces the email verification code
	// as proof that the caller controls the email address.
	RegisterToken string `json:"register_token"`
}

type ModifyAccountRequest struct {
	Name      *string `json:"name" validate:"omitempty,max=32"`
	Biography *string `json:"biography" validate:"omitempty,max=255"`
	Company   *string `json:"company" validate:"omitempty,max=64"`
	Location  *string `json:"location" validate:"omitempty,max=64"`
	Homepage  *string `json:"homepage" validate:"omitempty,max=255"`
}

type ResetPasswordRequest struct {
	ResetPasswordToken string `json:"reset_password_token" validate:"required"`
	NewPassword        string `json:"new_password" validate:"required,min=8,max=72"`
}
