package api

import (
	"fmt"

	"github.com/jrsteele09/go-pin-client/internal/utils"
	"github.com/jrsteele09/go-pin-client/users"
)

// Backend paths used by the session core.
const (
	PathRegisterUser = "/auth/registeruser"
	PathLoginUser    = "/auth/loginuser"
	PathUser         = "/auth/user/%d"
)

// Structured error codes the backend returns in errorCode.
const (
	CodeEmailExists    = "EMAIL_EXISTS"
	CodeUsernameExists = "USERNAME_EXISTS"
	CodeEmailNotFound  = "EMAIL_NOT_FOUND"
	CodeWrongPassword  = "WRONG_PASSWORD"
	CodeAccountLocked  = "ACCOUNT_LOCKED"
)

// RegisterRequest is the body of POST /auth/registeruser.
type RegisterRequest struct {
	Email        string `json:"email"`
	Username     string `json:"username"`
	AccountType  string `json:"accountType"`
	Bio          string `json:"bio"`
	Mobile       string `json:"mobile"`
	Password     string `json:"password"`
	BusinessName string `json:"businessName,omitempty"`
	WebsiteURL   string `json:"websiteUrl,omitempty"`
	Description  string `json:"description,omitempty"`
}

// LoginRequest is the body of POST /auth/loginuser.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateRequest is the body of PUT /auth/user/{id}. Nil fields are left unchanged.
type UpdateRequest struct {
	Name         *string `json:"name,omitempty"`
	Username     *string `json:"username,omitempty"`
	Mobile       *string `json:"mobile,omitempty"`
	Bio          *string `json:"bio,omitempty"`
	AccountType  *string `json:"accountType,omitempty"`
	BusinessName *string `json:"businessName,omitempty"`
	WebsiteURL   *string `json:"websiteUrl,omitempty"`
	Description  *string `json:"description,omitempty"`
}

// AuthResponse is returned by both the login and registration endpoints.
type AuthResponse struct {
	Token string `json:"token,omitempty"`
	users.Fields
	ErrorCode               string `json:"errorCode,omitempty"`
	Message                 string `json:"message,omitempty"`
	LockoutRemainingSeconds *int   `json:"lockoutRemainingSeconds,omitempty"`
}

// Profile converts the response into a profile, preferring its fields over fallback.
func (r AuthResponse) Profile(fallback users.Profile) users.Profile {
	return users.Merge(r.Fields, fallback)
}

// RejectionError is a structured rejection: the request reached the
// backend, which answered with an application-level errorCode.
type RejectionError struct {
	Code                    string
	Message                 string
	LockoutRemainingSeconds int
}

func (e *RejectionError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("rejected: %s", e.Code)
	}
	return fmt.Sprintf("rejected: %s: %s", e.Code, e.Message)
}

func rejectionFrom(r AuthResponse) *RejectionError {
	return &RejectionError{
		Code:                    r.ErrorCode,
		Message:                 r.Message,
		LockoutRemainingSeconds: utils.Value(r.LockoutRemainingSeconds),
	}
}
