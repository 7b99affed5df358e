package domain

import (
	"fmt"
	"time"
)

// MinimumPassScore is the number of correct answers needed to pass a pack.
const MinimumPassScore = 3

// Unanswered marks a question the user has not answered yet.
const Unanswered = -1

// Question models an MCQ question with exactly one correct option.
type Question struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectOption int      `json:"correctOption"`
	Explanation   string   `json:"explanation,omitempty"`
}

// Validate checks that q has at least two options and a correct option among them.
func (q Question) Validate() error {
	if len(q.Options) < 2 {
		return fmt.Errorf("needs at least 2 options, has %d", len(q.Options))
	}
	if q.CorrectOption < 0 || q.CorrectOption >= len(q.Options) {
		return fmt.Errorf("correct option %d out of range", q.CorrectOption)
	}
	return nil
}

// PackMeta is the optional descriptive header of a pack document.
type PackMeta struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Pack is an ordered collection of questions loaded as a unit.
type Pack struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Questions   []Question `json:"questions"`
}

// CatalogEntry describes a selectable pack and where to fetch it from.
type CatalogEntry struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Source      string `json:"-" yaml:"source"`
}

// Attempt is the recorded outcome of one completed run through a pack.
type Attempt struct {
	PackID         string    `json:"packId"`
	Score          int       `json:"score"`
	TotalQuestions int       `json:"totalQuestions"`
	Passed         bool      `json:"passed"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Fields returns the attempt as a loosely-shaped record.
func (a Attempt) Fields() RawAttempt {
	raw := RawAttempt{
		"score":          a.Score,
		"totalQuestions": a.TotalQuestions,
		"passed":         a.Passed,
		"updatedAt":      a.UpdatedAt,
	}
	if a.PackID != "" {
		raw["packId"] = a.PackID
	}
	return raw
}

// RawAttempt is an attempt as stored remotely, before normalization.
type RawAttempt map[string]any

// Profile is the remote per-user document.
type Profile struct {
	UserID  string                `json:"userId"`
	Results map[string]RawAttempt `json:"results"`
}

// ResultsByPack maps a pack identifier to the user's latest attempt.
type ResultsByPack map[string]Attempt

// QuestionReview is one row of the post-session breakdown.
type QuestionReview struct {
	QuestionIndex     int    `json:"questionIndex"`
	Question          string `json:"question"`
	UserAnswer        int    `json:"userAnswer"`
	UserAnswerText    string `json:"userAnswerText"`
	CorrectAnswer     int    `json:"correctAnswer"`
	CorrectAnswerText string `json:"correctAnswerText"`
	IsCorrect         bool   `json:"isCorrect"`
	Explanation       string `json:"explanation,omitempty"`
}

// Summary is the immutable outcome of a finished session.
type Summary struct {
	PackID         string           `json:"packId"`
	Title          string           `json:"title"`
	Score          int              `json:"score"`
	TotalQuestions int              `json:"totalQuestions"`
	AnsweredCount  int              `json:"answeredCount"`
	Passed         bool             `json:"passed"`
	UpdatedAt      time.Time        `json:"updatedAt"`
	Review         []QuestionReview `json:"review"`
}

// Attempt returns the persisted shape of the summary.
func (s Summary) Attempt() Attempt {
	return Attempt{
		PackID:         s.PackID,
		Score:          s.Score,
		TotalQuestions: s.TotalQuestions,
		Passed:         s.Passed,
		UpdatedAt:      s.UpdatedAt,
	}
}

// StatusKind classifies a pack for the signed-in user.
type StatusKind string

const (
	StatusLocked  StatusKind = "locked"
	StatusPending StatusKind = "pending"
	StatusPass    StatusKind = "pass"
	StatusFail    StatusKind = "fail"
)

// PackStatus is the display status of one pack.
type PackStatus struct {
	PackID string     `json:"packId"`
	Kind   StatusKind `json:"kind"`
	Detail string     `json:"detail"`
	Action string     `json:"action"`
}

// Highlight is the dashboard view across all attempts.
type Highlight struct {
	Latest      *Attempt `json:"latest,omitempty"`
	PassedCount int      `json:"passedCount"`
}

// User is an authenticated account.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Token string `json:"token,omitempty"`
}
