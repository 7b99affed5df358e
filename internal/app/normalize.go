package app

import (
	"encoding/json"
	"math"
	"time"

	"pack-quiz/internal/domain"
)

// Timestamp is implemented by provider-specific timestamp values that can be
// converted to a time.Time.
type Timestamp interface {
	AsTime() time.Time
}

// Normalize coerces a loosely-shaped attempt into the canonical Attempt.
func Normalize(raw domain.RawAttempt) domain.Attempt {
	return NormalizeAt(raw, time.Now())
}

// NormalizeAt is Normalize with an explicit "now" for missing timestamps.
func NormalizeAt(raw domain.RawAttempt, now time.Time) domain.Attempt {
	attempt := domain.Attempt{
		Score:          nonNegativeInt(raw["score"]),
		TotalQuestions: nonNegativeInt(raw["totalQuestions"]),
		UpdatedAt:      now.UTC(),
	}
	if id, ok := raw["packId"].(string); ok {
		attempt.PackID = id
	}
	if passed, ok := raw["passed"].(bool); ok {
		attempt.Passed = passed
	}
	if ts, ok := toTime(raw["updatedAt"]); ok {
		attempt.UpdatedAt = ts.UTC()
	}
	return attempt
}

func nonNegativeInt(v any) int {
	var f float64
	switch n := v.(type) {
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case float32:
		f = float64(n)
	case float64:
		f = n
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0
	}
	if f > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(f)
}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, !t.IsZero()
	case Timestamp:
		ts := t.AsTime()
		return ts, !ts.IsZero()
	case string:
		ts, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return time.Time{}, false
		}
		return ts, true
	case map[string]any:
		return providerTimestamp(t)
	}
	return time.Time{}, false
}

// providerTimestamp decodes the JSON form of a document-store timestamp,
// either {seconds, nanoseconds} or {_seconds, _nanoseconds}.
func providerTimestamp(m map[string]any) (time.Time, bool) {
	secKey, nanoKey := "seconds", "nanoseconds"
	if _, ok := m[secKey]; !ok {
		secKey, nanoKey = "_seconds", "_nanoseconds"
	}
	rawSec, ok := m[secKey]
	if !ok {
		return time.Time{}, false
	}
	sec, ok := toFloat(rawSec)
	if !ok {
		return time.Time{}, false
	}
	nanos, _ := toFloat(m[nanoKey])
	return time.Unix(int64(sec), int64(nanos)), true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
