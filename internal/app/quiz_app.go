package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"pack-quiz/internal/config"
	"pack-quiz/internal/domain"
	"github.com/sirupsen/logrus"
)

// PackRepository loads pack content (from cache/backing store).
type PackRepository interface {
	GetPack(ctx context.Context, packID string) (domain.Pack, error)
}

// Options configures a QuizApp.
type Options struct {
	Catalog     []domain.CatalogEntry
	Packs       PackRepository
	Auth        Authenticator
	Profiles    ProfileStore
	EmailDomain string
	Logger      logrus.FieldLogger
	Clock       func() time.Time
}

// QuizApp is the method-call surface a presentation layer drives: one
// session controller and one profile synchronizer per client.
type QuizApp struct {
	catalog     []domain.CatalogEntry
	packs       PackRepository
	auth        Authenticator
	emailDomain string
	log         logrus.FieldLogger

	session *SessionController
	profile *ProfileSynchronizer

	mu   sync.RWMutex
	user *domain.User
}

func NewQuizApp(opts Options) *QuizApp {
	log := opts.Logger
	if log == nil {
		log = config.Logger()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &QuizApp{
		catalog:     opts.Catalog,
		packs:       opts.Packs,
		auth:        opts.Auth,
		emailDomain: opts.EmailDomain,
		log:         log,
		session:     NewSessionControllerWithClock(clock),
		profile:     NewProfileSynchronizerWithClock(opts.Profiles, log, clock),
	}
}

func (a *QuizApp) Session() *SessionController { return a.session }

func (a *QuizApp) Profile() *ProfileSynchronizer { return a.profile }

// Catalog lists the selectable packs.
func (a *QuizApp) Catalog() []domain.CatalogEntry {
	out := make([]domain.CatalogEntry, len(a.catalog))
	copy(out, a.catalog)
	return out
}

// StartPack loads packID and starts a session on it. Failures are *domain.LoadError.
func (a *QuizApp) StartPack(ctx context.Context, packID string) error {
	pack, err := a.packs.GetPack(ctx, packID)
	if err != nil {
		var loadErr *domain.LoadError
		if !errors.As(err, &loadErr) {
			err = &domain.LoadError{PackID: packID, Message: "could not load the question pack", Err: err}
		}
		a.log.WithError(err).WithField("pack_id", packID).Warn("pack load failed")
		return err
	}
	if err := a.session.Start(pack); err != nil {
		var loadErr *domain.LoadError
		if !errors.As(err, &loadErr) {
			err = &domain.LoadError{PackID: packID, Message: "the selected pack has no questions", Err: err}
		}
		a.log.WithError(err).WithField("pack_id", packID).Warn("pack rejected")
		return err
	}
	a.log.WithFields(logrus.Fields{"pack_id": packID, "questions": len(pack.Questions)}).Info("session started")
	return nil
}

// Advance moves forward; when it completes the session the attempt is saved.
func (a *QuizApp) Advance(ctx context.Context) (*domain.Summary, error) {
	summary, err := a.session.Advance()
	if err != nil || summary == nil {
		return summary, err
	}
	a.persist(ctx, *summary)
	return summary, nil
}

// Finish completes the session and saves the attempt for a signed-in user.
// A failed save is reported through Profile().Notice(), not as an error.
func (a *QuizApp) Finish(ctx context.Context) (*domain.Summary, error) {
	summary, err := a.session.Finish()
	if err != nil {
		return nil, err
	}
	a.persist(ctx, *summary)
	return summary, nil
}

func (a *QuizApp) persist(ctx context.Context, summary domain.Summary) {
	user, ok := a.User()
	if !ok {
		return
	}
	_, _ = a.profile.Persist(ctx, user.ID, summary.PackID, summary.Attempt())
}

// SignIn authenticates and loads the user's history. A history failure is
// non-fatal and leaves a notice.
func (a *QuizApp) SignIn(ctx context.Context, identifier, password string) (domain.User, error) {
	email := NormalizeIdentifier(identifier, a.emailDomain)
	user, err := a.auth.SignIn(ctx, email, password)
	if err != nil {
		a.log.WithError(err).WithField("email", email).Info("sign-in rejected")
		return domain.User{}, err
	}
	a.setUser(ctx, user)
	return user, nil
}

// Resume signs in from a token issued earlier.
func (a *QuizApp) Resume(ctx context.Context, token string) (domain.User, error) {
	user, err := a.auth.Resume(ctx, token)
	if err != nil {
		return domain.User{}, err
	}
	a.setUser(ctx, user)
	return user, nil
}

func (a *QuizApp) setUser(ctx context.Context, user domain.User) {
	a.mu.Lock()
	a.user = &user
	a.mu.Unlock()
	_ = a.profile.Load(ctx, user.ID)
}

// SignOut drops the user, their history and the current session.
func (a *QuizApp) SignOut(ctx context.Context) error {
	if err := a.auth.SignOut(ctx); err != nil {
		return err
	}
	a.mu.Lock()
	a.user = nil
	a.mu.Unlock()
	a.profile.Clear()
	a.session.Reset()
	return nil
}

func (a *QuizApp) User() (domain.User, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.user == nil {
		return domain.User{}, false
	}
	return *a.user, true
}

// UserUpdates forwards the authenticator's current-user notifications.
func (a *QuizApp) UserUpdates() (<-chan *domain.User, func()) {
	return a.auth.Subscribe()
}

func (a *QuizApp) Status(packID string) domain.PackStatus {
	return a.profile.StatusFor(packID)
}

func (a *QuizApp) Highlight() domain.Highlight {
	return a.profile.LatestHighlight()
}

// SummaryLine renders the one-line result shown above the review.
func SummaryLine(s domain.Summary) string {
	title := s.Title
	if title == "" {
		title = "Question pack"
	}
	return fmt.Sprintf("%s: you answered %d of %d questions and got %d right.", title, s.AnsweredCount, s.TotalQuestions, s.Score)
}

// ResultLabel is the pass/fail badge text.
func ResultLabel(s domain.Summary) string {
	if s.Passed {
		return "Passed!"
	}
	return "Failed"
}
