package domain

import "time"

// Gender values accepted on profiles.
const (
	GenderMale   = "male"
	GenderFemale = "female"
	GenderOther  = "other"
)

// User is the auth identity and profile row in one item. Email is set at
// registration and never updated afterwards.
type User struct {
	UserID       string    `json:"id" dynamodbav:"user_id"`
	Name         string    `json:"name" dynamodbav:"name"`
	Email        string    `json:"email" dynamodbav:"email"`
	Gender       string    `json:"gender" dynamodbav:"gender"`
	AvatarURL    *string   `json:"avatar_url" dynamodbav:"avatar_url"`
	Phone        *string   `json:"phone,omitempty" dynamodbav:"phone"`
	PasswordHash string    `json:"-" dynamodbav:"password_hash"`
	Settings     Settings  `json:"settings" dynamodbav:"settings"`
	Enable       bool      `json:"enable" dynamodbav:"enable"`
	CreatedAt    time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt    time.Time `json:"updated" dynamodbav:"updated_at"`
}

type SignUpRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Gender   string `json:"gender" validate:"omitempty,oneof=male female other"`
}

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type UpdateProfileRequest struct {
	Name   *string `json:"name"`
	Gender *string `json:"gender" validate:"omitempty,oneof=male female other"`
	Phone  *string `json:"phone"`
}
