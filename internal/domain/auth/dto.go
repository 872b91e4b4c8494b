// internal/domain/auth/dto.go
package auth

// LoginRequest carries the credentials typed into the login form.
type LoginRequest struct {
	Username  string `json:"username" binding:"required"`
	Password  string `json:"password" binding:"required"`
	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginResponse is returned to the browser after a successful login.
type LoginResponse struct {
	RedirectTo string   `json:"redirectTo"`
	User       *Session `json:"user"`
}

// StatusResponse answers GET /auth/status.
type StatusResponse struct {
	Authenticated bool   `json:"authenticated"`
	Role          string `json:"role,omitempty"`
	RedirectTo    string `json:"redirectTo,omitempty"`
}

// SigninRequest is the body of POST /api/v1/auth/signin.
type SigninRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SigninResponse is the backend's answer to a signin call. On failure only
// Message is populated.
type SigninResponse struct {
	Message  string   `json:"message"`
	Token    string   `json:"token"`
	Roles    []string `json:"roles"`
	ID       int64    `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	DNI      string   `json:"dni"`
	GymName  string   `json:"gymName"`
}
