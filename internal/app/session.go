package app

import (
	"fmt"
	"sync"
	"time"

	"pack-quiz/internal/domain"
)

// SessionState is the lifecycle stage of the controller.
type SessionState int

const (
	NotStarted SessionState = iota
	InProgress
	Completed
)

func (s SessionState) String() string {
	switch s {
	case InProgress:
		return "in_progress"
	case Completed:
		return "completed"
	default:
		return "not_started"
	}
}

// Progress is the counter shown next to the current question.
type Progress struct {
	Index            int  `json:"index"`
	Total            int  `json:"total"`
	ProvisionalScore int  `json:"provisionalScore"`
	IsLast           bool `json:"isLast"`
}

// SessionController owns a single quiz session and its navigation.
type SessionController struct {
	mu      sync.Mutex
	now     func() time.Time
	state   SessionState
	pack    domain.Pack
	answers []int
	current int
	summary *domain.Summary
}

func NewSessionController() *SessionController {
	return NewSessionControllerWithClock(time.Now)
}

// NewSessionControllerWithClock allows deterministic timestamps in tests.
func NewSessionControllerWithClock(now func() time.Time) *SessionController {
	return &SessionController{now: now}
}

// Start begins a fresh session on pack, discarding any session in progress.
// A malformed question is reported as a *domain.LoadError and leaves the
// current session untouched.
func (c *SessionController) Start(pack domain.Pack) error {
	if len(pack.Questions) == 0 {
		return domain.ErrEmptyPack
	}
	for i, q := range pack.Questions {
		if err := q.Validate(); err != nil {
			return &domain.LoadError{PackID: pack.ID, Message: fmt.Sprintf("question %d is malformed", i+1), Err: err}
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	answers := make([]int, len(pack.Questions))
	for i := range answers {
		answers[i] = domain.Unanswered
	}
	c.pack = pack
	c.answers = answers
	c.current = 0
	c.summary = nil
	c.state = InProgress
	return nil
}

// SelectAnswer records option as the answer to the current question.
func (c *SessionController) SelectAnswer(option int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireInProgressLocked(); err != nil {
		return err
	}
	question := c.pack.Questions[c.current]
	if option < 0 || option >= len(question.Options) {
		return domain.ErrOptionOutOfRange
	}
	c.answers[c.current] = option
	return nil
}

// Advance moves to the next question. On the last question it finishes the
// session and returns the summary.
func (c *SessionController) Advance() (*domain.Summary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireInProgressLocked(); err != nil {
		return nil, err
	}
	if c.current == len(c.pack.Questions)-1 {
		return c.finishLocked()
	}
	if c.answers[c.current] == domain.Unanswered {
		return nil, &domain.ValidationError{
			Reason:  domain.ValidationReasonUnanswered,
			Message: "Select an option to continue.",
		}
	}
	c.current++
	return nil, nil
}

// Retreat moves to the previous question; it is a no-op on the first one.
func (c *SessionController) Retreat() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireInProgressLocked(); err != nil {
		return err
	}
	if c.current > 0 {
		c.current--
	}
	return nil
}

// Finish scores the session. The last question must be answered.
func (c *SessionController) Finish() (*domain.Summary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireInProgressLocked(); err != nil {
		return nil, err
	}
	return c.finishLocked()
}

// Reset drops the session entirely.
func (c *SessionController) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = NotStarted
	c.pack = domain.Pack{}
	c.answers = nil
	c.current = 0
	c.summary = nil
}

// CurrentScore counts correct answers so far.
func (c *SessionController) CurrentScore() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scoreLocked()
}

func (c *SessionController) State() SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *SessionController) Pack() domain.Pack {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pack
}

func (c *SessionController) CurrentIndex() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// CurrentQuestion returns the question under the cursor.
func (c *SessionController) CurrentQuestion() (domain.Question, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != InProgress {
		return domain.Question{}, false
	}
	return c.pack.Questions[c.current], true
}

// Answer returns the stored answer for the current question, or Unanswered.
func (c *SessionController) Answer() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != InProgress {
		return domain.Unanswered
	}
	return c.answers[c.current]
}

func (c *SessionController) IsAnswered() bool {
	return c.Answer() != domain.Unanswered
}

func (c *SessionController) Progress() Progress {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := len(c.pack.Questions)
	return Progress{
		Index:            c.current,
		Total:            total,
		ProvisionalScore: c.scoreLocked(),
		IsLast:           total > 0 && c.current == total-1,
	}
}

// Summary returns the outcome of a completed session.
func (c *SessionController) Summary() (domain.Summary, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.summary == nil {
		return domain.Summary{}, false
	}
	return copySummary(c.summary), true
}

func (c *SessionController) requireInProgressLocked() error {
	switch c.state {
	case NotStarted:
		return domain.ErrNoActiveSession
	case Completed:
		return domain.ErrSessionCompleted
	}
	return nil
}

func (c *SessionController) finishLocked() (*domain.Summary, error) {
	last := len(c.pack.Questions) - 1
	if c.answers[last] == domain.Unanswered {
		return nil, &domain.ValidationError{
			Reason:  domain.ValidationReasonUnanswered,
			Message: "Select an option before finishing.",
		}
	}

	review := make([]domain.QuestionReview, len(c.pack.Questions))
	answered := 0
	for i, q := range c.pack.Questions {
		answer := c.answers[i]
		entry := domain.QuestionReview{
			QuestionIndex:     i,
			Question:          q.Question,
			UserAnswer:        answer,
			UserAnswerText:    "Unanswered",
			CorrectAnswer:     q.CorrectOption,
			CorrectAnswerText: q.Options[q.CorrectOption],
			IsCorrect:         answer == q.CorrectOption,
			Explanation:       q.Explanation,
		}
		if answer != domain.Unanswered {
			answered++
			entry.UserAnswerText = q.Options[answer]
		}
		review[i] = entry
	}

	score := c.scoreLocked()
	summary := &domain.Summary{
		PackID:         c.pack.ID,
		Title:          c.pack.Title,
		Score:          score,
		TotalQuestions: len(c.pack.Questions),
		AnsweredCount:  answered,
		Passed:         score >= domain.MinimumPassScore,
		UpdatedAt:      c.now().UTC(),
		Review:         review,
	}
	c.summary = summary
	c.state = Completed

	out := copySummary(summary)
	return &out, nil
}

// copySummary detaches the review so callers cannot alter the stored summary.
func copySummary(s *domain.Summary) domain.Summary {
	out := *s
	out.Review = append([]domain.QuestionReview(nil), s.Review...)
	return out
}

func (c *SessionController) scoreLocked() int {
	score := 0
	for i, answer := range c.answers {
		if answer != domain.Unanswered && answer == c.pack.Questions[i].CorrectOption {
			score++
		}
	}
	return score
}
