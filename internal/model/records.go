// Package model defines the record and continuity data types.
package model

import (
	"fmt"
	"strings"
	"time"
)

// MemoryEvent is a journal-like entry written by the user.
type MemoryEvent struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id"`
	Text      string            `json:"text"`
	Timestamp time.Time         `json:"timestamp"`
	Tags      []string          `json:"tags,omitempty"`
	People    []string          `json:"people,omitempty"`
	Embedding []float32         `json:"embedding,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Claim is a statement extracted from an entry. Kind "identity" marks
// self-descriptions and kind "goal" marks stated intentions.
type Claim struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Kind       string    `json:"kind"`
	Subject    string    `json:"subject"`
	Text       string    `json:"text"`
	Polarity   float64   `json:"polarity"`
	Confidence float64   `json:"confidence"`
	Tags       []string  `json:"tags,omitempty"`
	SourceID   string    `json:"source_id,omitempty"`
	Embedding  []float32 `json:"embedding,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Decision is a recorded choice and the reasoning behind it.
type Decision struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Description string    `json:"description"`
	Rationale   string    `json:"rationale,omitempty"`
	Outcome     string    `json:"outcome,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// EmotionEvent is a single detected emotion. Polarity is in [-1,1] and
// intensity in [0,1].
type EmotionEvent struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Emotion   string    `json:"emotion"`
	Polarity  float64   `json:"polarity"`
	Intensity float64   `json:"intensity"`
	SourceID  string    `json:"source_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// WillEvent records the user exercising deliberate choice.
type WillEvent struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Situation string    `json:"situation,omitempty"`
	Action    string    `json:"action"`
	Rationale string    `json:"rationale,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ValidClaimKinds are the allowed claim kinds.
var ValidClaimKinds = map[string]bool{
	"identity": true,
	"goal":     true,
	"belief":   true,
	"fact":     true,
}

func requireUser(kind, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: %s: user_id is required", ErrInvalidRecord, kind)
	}
	return nil
}

func requireTime(kind string, ts time.Time) error {
	if ts.IsZero() {
		return fmt.Errorf("%w: %s: timestamp is required", ErrInvalidRecord, kind)
	}
	return nil
}

func inRange(kind, field string, v, lo, hi float64) error {
	if v < lo || v > hi {
		return fmt.Errorf("%w: %s: %s %.2f outside [%g,%g]", ErrInvalidRecord, kind, field, v, lo, hi)
	}
	return nil
}

// Validate checks the entry before it is stored.
func (m MemoryEvent) Validate() error {
	if err := requireUser("memory", m.UserID); err != nil {
		return err
	}
	if strings.TrimSpace(m.Text) == "" {
		return fmt.Errorf("%w: memory: text is required", ErrInvalidRecord)
	}
	return requireTime("memory", m.Timestamp)
}

// Validate checks the claim before it is stored.
func (c Claim) Validate() error {
	if err := requireUser("claim", c.UserID); err != nil {
		return err
	}
	if !ValidClaimKinds[c.Kind] {
		return fmt.Errorf("%w: claim: invalid kind %q (valid: identity, goal, belief, fact)", ErrInvalidRecord, c.Kind)
	}
	if strings.TrimSpace(c.Text) == "" {
		return fmt.Errorf("%w: claim: text is required", ErrInvalidRecord)
	}
	if err := inRange("claim", "polarity", c.Polarity, -1, 1); err != nil {
		return err
	}
	if err := inRange("claim", "confidence", c.Confidence, 0, 1); err != nil {
		return err
	}
	return requireTime("claim", c.Timestamp)
}

// Validate checks the decision before it is stored.
func (d Decision) Validate() error {
	if err := requireUser("decision", d.UserID); err != nil {
		return err
	}
	if strings.TrimSpace(d.Description) == "" {
		return fmt.Errorf("%w: decision: description is required", ErrInvalidRecord)
	}
	return requireTime("decision", d.Timestamp)
}

// Validate checks the emotion event before it is stored.
func (e EmotionEvent) Validate() error {
	if err := requireUser("emotion", e.UserID); err != nil {
		return err
	}
	if strings.TrimSpace(e.Emotion) == "" {
		return fmt.Errorf("%w: emotion: emotion is required", ErrInvalidRecord)
	}
	if err := inRange("emotion", "polarity", e.Polarity, -1, 1); err != nil {
		return err
	}
	if err := inRange("emotion", "intensity", e.Intensity, 0, 1); err != nil {
		return err
	}
	return requireTime("emotion", e.Timestamp)
}

// Validate checks the will event before it is stored.
func (w WillEvent) Validate() error {
	if err := requireUser("will", w.UserID); err != nil {
		return err
	}
	if strings.TrimSpace(w.Action) == "" {
		return fmt.Errorf("%w: will: action is required", ErrInvalidRecord)
	}
	return requireTime("will", w.Timestamp)
}
