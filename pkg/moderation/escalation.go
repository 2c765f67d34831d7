// Package moderation implements the warning counters and the timeout
// escalation applied when a user accumulates three warnings.
package moderation

import (
	"time"

	"github.com/PancyStudios/PancyGuard/pkg/models"
)

// MaxInstance is the last escalation tier before the cycle starts over
const MaxInstance = 3

// Escalation is the action triggered by a warning that reached the threshold
type Escalation struct {
	// Instance is the tier reached, 1 to 3
	Instance int64
	Timeout  time.Duration
	// CycleReset is set on the third tier, after which the stored instance
	// count goes back to 0.
	CycleReset bool
}

// TimeoutFor returns the timeout applied at an escalation tier
func TimeoutFor(instance int64) time.Duration {
	switch instance {
	case 1:
		return 5 * time.Minute
	case 2:
		return time.Hour
	default:
		return 24 * time.Hour
	}
}

// DescribeTimeout renders a tier duration for embeds
func DescribeTimeout(d time.Duration) string {
	switch d {
	case 5 * time.Minute:
		return "5 minutos"
	case time.Hour:
		return "1 hora"
	case 24 * time.Hour:
		return "1 día"
	default:
		return d.String()
	}
}

// nextInstance is the tier the next escalation of a user will reach
func nextInstance(stored int64) int64 {
	next := stored + 1
	if next > MaxInstance || next < 1 {
		return 1
	}
	return next
}

// ApplyWarning adds one warning to cur. When the count reaches the threshold
// the warnings reset to 0 and an Escalation is returned; otherwise the
// Escalation is nil.
func ApplyWarning(cur models.WarnRecord) (models.WarnRecord, *Escalation) {
	warns := cur.WarnCount
	if warns < 0 {
		warns = 0
	}
	instance := cur.InstanceCount
	if instance < 0 {
		instance = 0
	}

	warns++
	if warns < models.WarnThreshold {
		return models.WarnRecord{WarnCount: warns, InstanceCount: instance}, nil
	}

	esc := &Escalation{Instance: nextInstance(instance)}
	esc.Timeout = TimeoutFor(esc.Instance)

	next := models.WarnRecord{WarnCount: 0, InstanceCount: esc.Instance}
	if esc.Instance == MaxInstance {
		esc.CycleReset = true
		next.InstanceCount = 0
	}
	return next, esc
}
