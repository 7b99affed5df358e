package memory

import (
	"context"
	"strings"
	"sync"

	"pack-quiz/internal/auth"
	"pack-quiz/internal/domain"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// MaxFailedSignIns is the number of wrong passwords before an account is throttled.
const MaxFailedSignIns = 5

type account struct {
	user domain.User
	hash []byte
}

// UserDirectory holds email/password accounts shared by every client.
type UserDirectory struct {
	mu       sync.Mutex
	accounts map[string]*account
	failures map[string]int
}

func NewUserDirectory() *UserDirectory {
	return &UserDirectory{
		accounts: make(map[string]*account),
		failures: make(map[string]int),
	}
}

// AddUser registers an account; the password is stored as a bcrypt hash.
func (d *UserDirectory) AddUser(email, password string) (domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !validEmail(email) {
		return domain.User{}, &domain.AuthError{Code: domain.AuthInvalidEmail}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if existing, ok := d.accounts[email]; ok {
		existing.hash = hash
		return existing.user, nil
	}
	user := domain.User{ID: uuid.NewString(), Email: email}
	d.accounts[email] = &account{user: user, hash: hash}
	return user, nil
}

// Verify checks a password and returns the account's user.
func (d *UserDirectory) Verify(email, password string) (domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !validEmail(email) {
		return domain.User{}, &domain.AuthError{Code: domain.AuthInvalidEmail}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	acc, ok := d.accounts[email]
	if !ok {
		return domain.User{}, &domain.AuthError{Code: domain.AuthUserNotFound}
	}
	if d.failures[email] >= MaxFailedSignIns {
		return domain.User{}, &domain.AuthError{Code: domain.AuthTooManyRequests}
	}
	if err := bcrypt.CompareHashAndPassword(acc.hash, []byte(password)); err != nil {
		d.failures[email]++
		return domain.User{}, &domain.AuthError{Code: domain.AuthWrongPassword, Err: err}
	}
	delete(d.failures, email)
	return acc.user, nil
}

func (d *UserDirectory) lookup(userID string) (domain.User, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, acc := range d.accounts {
		if acc.user.ID == userID {
			return acc.user, true
		}
	}
	return domain.User{}, false
}

func validEmail(email string) bool {
	at := strings.LastIndex(email, "@")
	return at > 0 && at < len(email)-1 && !strings.ContainsAny(email, " \t")
}

// Authenticator is a per-client sign-in session over a UserDirectory.
type Authenticator struct {
	dir    *UserDirectory
	tokens *auth.TokenIssuer

	mu          sync.Mutex
	current     *domain.User
	subscribers map[chan *domain.User]struct{}
}

func NewAuthenticator(dir *UserDirectory, tokens *auth.TokenIssuer) *Authenticator {
	return &Authenticator{
		dir:         dir,
		tokens:      tokens,
		subscribers: make(map[chan *domain.User]struct{}),
	}
}

func (a *Authenticator) SignIn(_ context.Context, email, password string) (domain.User, error) {
	user, err := a.dir.Verify(email, password)
	if err != nil {
		return domain.User{}, err
	}
	return a.signedIn(user)
}

func (a *Authenticator) Resume(_ context.Context, token string) (domain.User, error) {
	claims, err := a.tokens.Validate(token)
	if err != nil {
		return domain.User{}, &domain.AuthError{Code: domain.AuthInvalidToken, Err: err}
	}
	user, ok := a.dir.lookup(claims.UserID)
	if !ok {
		return domain.User{}, &domain.AuthError{Code: domain.AuthUserNotFound}
	}
	return a.signedIn(user)
}

func (a *Authenticator) signedIn(user domain.User) (domain.User, error) {
	token, err := a.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return domain.User{}, err
	}
	user.Token = token

	a.mu.Lock()
	defer a.mu.Unlock()
	a.current = &user
	a.broadcastLocked()
	return user, nil
}

func (a *Authenticator) SignOut(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current == nil {
		return nil
	}
	a.current = nil
	a.broadcastLocked()
	return nil
}

func (a *Authenticator) Subscribe() (<-chan *domain.User, func()) {
	ch := make(chan *domain.User, 4)

	a.mu.Lock()
	a.subscribers[ch] = struct{}{}
	ch <- a.snapshotLocked()
	a.mu.Unlock()

	cancel := func() {
		a.mu.Lock()
		if _, ok := a.subscribers[ch]; ok {
			delete(a.subscribers, ch)
			close(ch)
		}
		a.mu.Unlock()
	}
	return ch, cancel
}

func (a *Authenticator) broadcastLocked() {
	snapshot := a.snapshotLocked()
	for ch := range a.subscribers {
		select {
		case ch <- snapshot:
		default:
			// drop the oldest update so a slow reader never blocks sign-in
			select {
			case <-ch:
			default:
			}
			ch <- snapshot
		}
	}
}

func (a *Authenticator) snapshotLocked() *domain.User {
	if a.current == nil {
		return nil
	}
	user := *a.current
	return &user
}
