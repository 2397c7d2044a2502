package profile

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rcliao/continuity/internal/model"
	"github.com/rcliao/continuity/internal/will"
)

const (
	agencyFlagDensity    = 0.1
	agencyFlagSeverity   = 0.7
	staleDays            = 30
	staleSeverity        = 0.5
	divergenceClaims     = 10
	divergenceWillEvents = 5
	divergenceSeverity   = 0.6
	valueLossConfidence  = 0.66
	valueLossSeverity    = 0.4
)

// DriftInput is what the drift heuristics look at.
type DriftInput struct {
	Now             time.Time
	WindowDays      int
	Agency          *will.Metrics // nil when unavailable
	IdentityClaims  int
	WillEvents      int
	Values          []model.PersistentValue
	PreviousProfile *model.ContinuityProfile
}

// DriftFlags runs every heuristic. Any number of flags may fire.
func DriftFlags(in DriftInput) []model.DriftFlag {
	flags := []model.DriftFlag{}
	flag := func(typ string, severity float64, desc string) {
		flags = append(flags, model.DriftFlag{Type: typ, Severity: severity, Description: desc, Timestamp: in.Now})
	}

	if a := in.Agency; a != nil {
		if a.Trend == model.TrendDecreasing && a.Density < agencyFlagDensity {
			flag(model.DriftAgency, agencyFlagSeverity,
				fmt.Sprintf("Deliberate choices are becoming rarer (%.2f per day and decreasing)", a.Density))
		}
		if a.LastEvent == nil {
			flag(model.DriftAgency, staleSeverity,
				fmt.Sprintf("No will events recorded in the last %d days", in.WindowDays))
		} else if days := int(math.Floor(in.Now.Sub(*a.LastEvent).Hours() / 24)); days > staleDays {
			flag(model.DriftAgency, staleSeverity,
				fmt.Sprintf("No will events recorded in %d days", days))
		}
	}

	if in.IdentityClaims > divergenceClaims && in.WillEvents < divergenceWillEvents {
		flag(model.DriftIdentity, divergenceSeverity,
			fmt.Sprintf("%d identity statements but only %d recorded choices", in.IdentityClaims, in.WillEvents))
	}

	if lost := lostValues(in.PreviousProfile, in.Values); len(lost) > 0 {
		flag(model.DriftValues, valueLossSeverity,
			fmt.Sprintf("Previously strong values no longer persistent: %s", strings.Join(lost, ", ")))
	}
	return flags
}

func lostValues(prev *model.ContinuityProfile, current []model.PersistentValue) []string {
	if prev == nil {
		return nil
	}
	now := make(map[string]bool, len(current))
	for _, v := range current {
		now[v.Value] = true
	}
	var lost []string
	for _, v := range prev.PersistentValues {
		if v.Confidence >= valueLossConfidence && !now[v.Value] {
			lost = append(lost, v.Value)
		}
	}
	return lost
}
