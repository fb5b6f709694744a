package dto

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Username string `json:"username" binding:"required,max=255"`
	Password string `json:"password" binding:"required,max=1024"`
}

// LoginResponse carries the issued token and its lifetime.
type LoginResponse struct {
	Token      string `json:"token"`
	TTLSeconds int64  `json:"ttlSeconds"`
}

// ValidateCredentialsRequest is the body of POST /internal/users/validate.
type ValidateCredentialsRequest struct {
	Username string `json:"username" binding:"required,max=255"`
	Password string `json:"password" binding:"required,max=1024"`
}

// IdentityResponse is returned by the identity store for accepted credentials.
// Roles is always present, possibly empty.
type IdentityResponse struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email,omitempty"`
	Roles    []string `json:"roles"`
}
