package common

import "github.com/helioauth/accounts/pkg/domain"

// UserResponse is the user object every authenticated response carries.
type UserResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Picture       string `json:"picture"`
	EmailVerified bool   `json:"emailVerified"`
	IsGoogleAuth  bool   `json:"isGoogleAuth,omitempty"`
}

// NewUserResponse maps an account to its API representation.
func NewUserResponse(a *domain.Account) UserResponse {
	return UserResponse{
		ID:            a.ID.String(),
		Name:          a.Name,
		Email:         a.Email,
		Picture:       a.Picture,
		EmailVerified: a.EmailVerified,
		IsGoogleAuth:  a.IsGoogleAuth,
	}
}
