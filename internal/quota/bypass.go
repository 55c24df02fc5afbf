package quota

import (
	"fmt"
	"time"
)

// DefaultBypassTTL is how long a temporary bypass lasts.
const DefaultBypassTTL = 24 * time.Hour

// Bypass temporarily suppresses quota enforcement. It is advisory: callers
// evaluate it against their own clock.
type Bypass struct {
	ExpiresAt time.Time `json:"expiresAt"`
}

// NewBypass starts a bypass of DefaultBypassTTL at now.
func NewBypass(now time.Time) Bypass {
	return NewBypassFor(now, DefaultBypassTTL)
}

// NewBypassFor starts a bypass of ttl at now.
func NewBypassFor(now time.Time, ttl time.Duration) Bypass {
	return Bypass{ExpiresAt: now.Add(ttl)}
}

// Active reports whether the bypass has not yet expired at now.
func (b Bypass) Active(now time.Time) bool {
	return !b.ExpiresAt.IsZero() && !now.After(b.ExpiresAt)
}

// Remaining is the time left at now, never negative.
func (b Bypass) Remaining(now time.Time) time.Duration {
	if !b.Active(now) {
		return 0
	}
	return b.ExpiresAt.Sub(now)
}

// FormatRemaining renders Remaining as "5h 12m remaining", "12m remaining"
// or "Expired".
func (b Bypass) FormatRemaining(now time.Time) string {
	left := b.Remaining(now)
	if left <= 0 {
		return "Expired"
	}
	hours := int(left / time.Hour)
	minutes := int((left % time.Hour) / time.Minute)
	if hours > 0 {
		return fmt.Sprintf("%dh %dm remaining", hours, minutes)
	}
	return fmt.Sprintf("%dm remaining", minutes)
}

// Permits reports whether an action on r may proceed: either r has quota
// left or an active bypass covers it.
func Permits(s Status, r Resource, bypass *Bypass, now time.Time) bool {
	if bypass != nil && bypass.Active(now) {
		return true
	}
	return !s.Exhausted(r)
}
