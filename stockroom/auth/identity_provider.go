package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

var (
	ErrUserNotFoundWithEmail = errors.New("no user found for given email")
	ErrInvalidCredentials    = errors.New("invalid login credentials")
	ErrGeneratingJwt         = errors.New("error generating jwt")
	ErrEmailAlreadyInUse     = errors.New("email is already in use")
	ErrUsernameAlreadyInUse  = errors.New("username is already in use")
)

type LoginResult struct {
	UserId      uuid.UUID
	AccessToken string
}

type NewUserArgs struct {
	Username string
	Email    string
	Password string
	FullName string
}

// IdentityProvider is the external authentication collaborator. It issues
// opaque user ids and session tokens; all domain authorization happens against
// workspace memberships, never provider state.
type IdentityProvider interface {
	AuthMiddleware() chi.Middlewares

	AllowDirectSignup() bool

	LoginWithEmail(email, password string) (LoginResult, error)

	LoginWithToken(accessToken string) (LoginResult, error)

	CreateUser(args NewUserArgs) (uuid.UUID, error)

	DeleteUser(userId uuid.UUID) error

	GetTokenExpiration(r *http.Request) (time.Time, error)
}

type requestContextKey string

const userRequestContextKey requestContextKey = "user"
