package model

import "time"

// EventType tags a ContinuityEvent with the detector that produced it.
type EventType string

const (
	EventContradiction       EventType = "contradiction"
	EventAbandonedGoal       EventType = "abandoned_goal"
	EventArcShift            EventType = "arc_shift"
	EventIdentityDrift       EventType = "identity_drift"
	EventEmotionalTransition EventType = "emotional_transition"
	EventThematicDrift       EventType = "thematic_drift"
	EventAgencyDrift         EventType = "agency_drift"
)

// EventTypes lists every event type in a stable order.
var EventTypes = []EventType{
	EventContradiction,
	EventAbandonedGoal,
	EventArcShift,
	EventIdentityDrift,
	EventEmotionalTransition,
	EventThematicDrift,
	EventAgencyDrift,
}

// ValidEventType reports whether t is a known event type.
func ValidEventType(t EventType) bool {
	for _, et := range EventTypes {
		if et == t {
			return true
		}
	}
	return false
}

// ContinuityEvent is a persisted detection. It is immutable once stored.
type ContinuityEvent struct {
	ID                 string         `json:"id"`
	UserID             string         `json:"user_id"`
	EventType          EventType      `json:"event_type"`
	Description        string         `json:"description"`
	SourceComponentIDs []string       `json:"source_component_ids"`
	Severity           float64        `json:"severity"`
	Metadata           map[string]any `json:"metadata,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
}

// Insight is a narrative summary of same-type events from one run.
type Insight struct {
	ID                 string         `json:"id"`
	UserID             string         `json:"user_id"`
	InsightType        string         `json:"insight_type"`
	Text               string         `json:"text"`
	Confidence         float64        `json:"confidence"`
	SourceComponentIDs []string       `json:"source_component_ids"`
	Tags               []string       `json:"tags,omitempty"`
	Metadata           map[string]any `json:"metadata,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
}

// Value contexts.
const (
	ContextIdentity = "identity"
	ContextWill     = "will"
	ContextDecision = "decision"
)

// Agency trends.
const (
	TrendIncreasing = "increasing"
	TrendDecreasing = "decreasing"
	TrendStable     = "stable"
)

// Drift flag types.
const (
	DriftIdentity = "identity"
	DriftValues   = "values"
	DriftAgency   = "agency"
)

// PersistentValue is a value that survived the persistence test.
type PersistentValue struct {
	Value         string    `json:"value"`
	EvidenceCount int       `json:"evidence_count"`
	FirstSeen     time.Time `json:"first_seen"`
	LastSeen      time.Time `json:"last_seen"`
	Contexts      []string  `json:"contexts"`
	Confidence    float64   `json:"confidence"`
}

// RecurringTheme is a theme that keeps showing up during stress periods.
type RecurringTheme struct {
	Theme          string   `json:"theme"`
	Frequency      int      `json:"frequency"`
	IntensityTrend string   `json:"intensity_trend"`
	Contexts       []string `json:"contexts"`
}

// IdentityVersion is a contiguous run of identity claims.
type IdentityVersion struct {
	Version    int       `json:"version"`
	Timestamp  time.Time `json:"timestamp"`
	Claims     []string  `json:"claims"`
	Confidence float64   `json:"confidence"`
}

// DriftFlag is a heuristic warning attached to a profile.
type DriftFlag struct {
	Type        string    `json:"type"`
	Severity    float64   `json:"severity"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
}

// ContinuityProfile is the long-horizon aggregate for one user. Each
// computation is stored as a new version and never mutated.
type ContinuityProfile struct {
	UserID                 string            `json:"user_id"`
	Version                int               `json:"version"`
	WindowDays             int               `json:"window_days"`
	PersistentValues       []PersistentValue `json:"persistent_values"`
	RecurringThemes        []RecurringTheme  `json:"recurring_themes"`
	IdentityStabilityScore float64           `json:"identity_stability_score"`
	IdentityVersions       []IdentityVersion `json:"identity_versions"`
	AgencyDensity          float64           `json:"agency_density"`
	AgencyTrend            string            `json:"agency_trend"`
	LastWillEvent          *time.Time        `json:"last_will_event,omitempty"`
	DriftFlags             []DriftFlag       `json:"drift_flags"`
	ComputedAt             time.Time         `json:"computed_at"`
}
