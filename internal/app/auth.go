package app

import (
	"context"
	"errors"
	"strings"

	"pack-quiz/internal/domain"
)

// DefaultEmailDomain is appended to bare usernames when none is configured.
const DefaultEmailDomain = "packquiz.local"

// Authenticator is the sign-in provider for one client.
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (domain.User, error)
	// Resume restores a user from a previously issued token.
	Resume(ctx context.Context, token string) (domain.User, error)
	SignOut(ctx context.Context) error
	// Subscribe delivers the current user immediately and on every change
	// (nil when signed out). The caller must invoke cancel to avoid leaks.
	Subscribe() (<-chan *domain.User, func())
}

// NormalizeIdentifier turns a bare username into an email on emailDomain.
func NormalizeIdentifier(identifier, emailDomain string) string {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || strings.Contains(identifier, "@") {
		return identifier
	}
	if emailDomain == "" {
		emailDomain = DefaultEmailDomain
	}
	return identifier + "@" + strings.TrimPrefix(emailDomain, "@")
}

// AuthMessage maps a sign-in failure to the message shown next to the form.
func AuthMessage(err error) string {
	var authErr *domain.AuthError
	if !errors.As(err, &authErr) {
		return "Could not sign in. Try again later."
	}
	switch authErr.Code {
	case domain.AuthInvalidEmail:
		return "Enter a valid email address."
	case domain.AuthUserNotFound, domain.AuthWrongPassword, domain.AuthInvalidCredential:
		return "Incorrect email or password."
	case domain.AuthTooManyRequests:
		return "Too many attempts. Wait a moment and try again."
	case domain.AuthInvalidToken:
		return "Your session expired. Sign in again."
	default:
		return "Could not sign in. Try again later."
	}
}

// UserMessage is the text a player sees for a failed quiz or sign-in action.
func UserMessage(err error) string {
	var (
		validationErr *domain.ValidationError
		loadErr       *domain.LoadError
		authErr       *domain.AuthError
	)
	switch {
	case errors.As(err, &validationErr):
		return validationErr.Message
	case errors.As(err, &loadErr):
		return loadErr.Message
	case errors.As(err, &authErr):
		return AuthMessage(err)
	case errors.Is(err, domain.ErrNoActiveSession):
		return "Start a question pack first."
	case errors.Is(err, domain.ErrSessionCompleted):
		return "This attempt is finished. Reset or start a pack."
	case errors.Is(err, domain.ErrOptionOutOfRange):
		return "That option does not exist."
	case errors.Is(err, domain.ErrNotSignedIn):
		return "Sign in to keep track of your results."
	default:
		return err.Error()
	}
}
