package handler

import "github.com/openmeet/openmeet-api/internal/core/domain"

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

type registerRequest struct {
	Username    string   `json:"username"    validate:"required,max=64"`
	Email       string   `json:"email"       validate:"required"`
	Password    string   `json:"password"    validate:"required,min=8,max=72"`
	Description string   `json:"description" validate:"max=2000"`
	Interests   []string `json:"interests"   validate:"max=50,dive,max=64"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

type userResponse struct {
	User *domain.User `json:"user"`
	// IndexPending is set when the account exists but lookup by email is
	// still being repaired.
	IndexPending bool `json:"index_pending,omitempty"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func toNewUser(r registerRequest) domain.NewUser {
	return domain.NewUser{
		Username:    r.Username,
		Email:       r.Email,
		Password:    r.Password,
		Description: r.Description,
		Interests:   r.Interests,
	}
}
