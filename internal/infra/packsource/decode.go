package packsource

import (
	"encoding/json"
	"fmt"

	"pack-quiz/internal/domain"
)

// document is the on-disk/over-the-wire pack format: {meta?, questions}.
type document struct {
	Meta      *domain.PackMeta `json:"meta"`
	Questions json.RawMessage  `json:"questions"`
}

// question keeps correctOption optional so a missing index is told apart from 0.
type question struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectOption *int     `json:"correctOption"`
	Explanation   string   `json:"explanation"`
}

// Decode parses a pack document and checks the question invariants. fallback
// supplies title and description when the document has no meta block.
func Decode(packID string, data []byte, fallback domain.PackMeta) (domain.Pack, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.Pack{}, &domain.LoadError{PackID: packID, Message: "the question pack is not valid JSON", Err: err}
	}

	var raw []question
	if len(doc.Questions) == 0 || json.Unmarshal(doc.Questions, &raw) != nil || len(raw) == 0 {
		return domain.Pack{}, &domain.LoadError{PackID: packID, Message: "the selected pack has no questions available", Err: domain.ErrEmptyPack}
	}
	questions := make([]domain.Question, len(raw))
	for i, r := range raw {
		malformed := func(err error) error {
			return &domain.LoadError{PackID: packID, Message: fmt.Sprintf("question %d is malformed", i+1), Err: err}
		}
		if r.CorrectOption == nil {
			return domain.Pack{}, malformed(fmt.Errorf("correct option missing"))
		}
		q := domain.Question{
			Question:      r.Question,
			Options:       r.Options,
			CorrectOption: *r.CorrectOption,
			Explanation:   r.Explanation,
		}
		if err := q.Validate(); err != nil {
			return domain.Pack{}, malformed(err)
		}
		questions[i] = q
	}

	meta := fallback
	if doc.Meta != nil {
		if doc.Meta.Title != "" {
			meta.Title = doc.Meta.Title
		}
		if doc.Meta.Description != "" {
			meta.Description = doc.Meta.Description
		}
	}
	return domain.Pack{
		ID:          packID,
		Title:       meta.Title,
		Description: meta.Description,
		Questions:   questions,
	}, nil
}
