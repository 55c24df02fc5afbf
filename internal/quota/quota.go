// Package quota evaluates per-plan resource limits against a usage snapshot.
// Everything here is a pure function of its inputs; usage is fetched and
// recorded elsewhere.
package quota

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Plan is a subscription tier.
type Plan string

const (
	PlanFree       Plan = "free"
	PlanResearcher Plan = "researcher"
	PlanEnterprise Plan = "enterprise"
)

// ErrUnknownPlan is returned for plan names with no limits.
var ErrUnknownPlan = errors.New("unknown plan")

// ParsePlan validates a plan name.
func ParsePlan(s string) (Plan, error) {
	p := Plan(s)
	if _, ok := plans[p]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownPlan, s)
	}
	return p, nil
}

// Resource is one metered resource.
type Resource string

const (
	CitationChecks  Resource = "citationChecks"
	DocumentExports Resource = "documentExports"
	AIAssists       Resource = "aiAssists"
	StorageGB       Resource = "storageGB"
)

// Resources lists every metered resource.
var Resources = []Resource{CitationChecks, DocumentExports, AIAssists, StorageGB}

// Limits holds one quantity per resource. It is used both for plan limits
// and for remaining quota.
type Limits struct {
	CitationChecks  Quantity `json:"citationChecks"`
	DocumentExports Quantity `json:"documentExports"`
	AIAssists       Quantity `json:"aiAssists"`
	StorageGB       Quantity `json:"storageGB"`
}

// Get returns the quantity for r.
func (l Limits) Get(r Resource) Quantity {
	switch r {
	case CitationChecks:
		return l.CitationChecks
	case DocumentExports:
		return l.DocumentExports
	case AIAssists:
		return l.AIAssists
	case StorageGB:
		return l.StorageGB
	}
	return 0
}

// Usage is a snapshot of consumed resources.
type Usage struct {
	CitationChecksUsed  float64 `json:"citationChecksUsed"`
	DocumentExportsUsed float64 `json:"documentExportsUsed"`
	AIAssistsUsed       float64 `json:"aiAssistsUsed"`
	StorageUsedGB       float64 `json:"storageUsedGB"`
}

// Get returns the usage for r.
func (u Usage) Get(r Resource) float64 {
	switch r {
	case CitationChecks:
		return u.CitationChecksUsed
	case DocumentExports:
		return u.DocumentExportsUsed
	case AIAssists:
		return u.AIAssistsUsed
	case StorageGB:
		return u.StorageUsedGB
	}
	return 0
}

// Status is the evaluated quota for one user.
type Status struct {
	Plan          Plan       `json:"plan"`
	Limits        Limits     `json:"limits"`
	Usage         Usage      `json:"usage"`
	Remaining     Limits     `json:"remaining"`
	IsExceeded    bool       `json:"isExceeded"`
	NextResetDate *time.Time `json:"nextResetDate,omitempty"`
}

var plans = map[Plan]Limits{
	PlanFree: {
		CitationChecks:  50,
		DocumentExports: 10,
		AIAssists:       20,
		StorageGB:       1,
	},
	PlanResearcher: {
		CitationChecks:  1000,
		DocumentExports: 100,
		AIAssists:       500,
		StorageGB:       10,
	},
	PlanEnterprise: {
		CitationChecks:  Unlimited,
		DocumentExports: Unlimited,
		AIAssists:       Unlimited,
		StorageGB:       100,
	},
}

// LimitsFor returns the fixed limits of plan.
func LimitsFor(plan Plan) (Limits, bool) {
	l, ok := plans[plan]
	return l, ok
}

// CalculateRemaining subtracts usage from limits, clamping at zero.
// Unlimited resources stay unlimited.
func CalculateRemaining(limits Limits, usage Usage) Limits {
	remaining := func(limit Quantity, used float64) Quantity {
		return Quantity(math.Max(0, float64(limit)-used))
	}
	return Limits{
		CitationChecks:  remaining(limits.CitationChecks, usage.CitationChecksUsed),
		DocumentExports: remaining(limits.DocumentExports, usage.DocumentExportsUsed),
		AIAssists:       remaining(limits.AIAssists, usage.AIAssistsUsed),
		StorageGB:       remaining(limits.StorageGB, usage.StorageUsedGB),
	}
}

// CheckIfExceeded reports whether any resource has nothing remaining.
func CheckIfExceeded(s Status) bool {
	for _, r := range Resources {
		if s.Remaining.Get(r) <= 0 {
			return true
		}
	}
	return false
}

// GetQuotaStatus evaluates usage against plan.
func GetQuotaStatus(plan Plan, usage Usage) (Status, error) {
	limits, ok := LimitsFor(plan)
	if !ok {
		return Status{}, fmt.Errorf("%w: %q", ErrUnknownPlan, plan)
	}
	s := Status{
		Plan:      plan,
		Limits:    limits,
		Usage:     usage,
		Remaining: CalculateRemaining(limits, usage),
	}
	s.IsExceeded = CheckIfExceeded(s)
	return s, nil
}

// Exhausted reports whether r has nothing remaining in s.
func (s Status) Exhausted(r Resource) bool {
	return s.Remaining.Get(r) <= 0
}

// DaysUntilReset counts whole days, rounded up, from now to reset. A missing
// reset date means a 30 day cycle.
func DaysUntilReset(reset *time.Time, now time.Time) int {
	if reset == nil {
		return 30
	}
	return int(math.Ceil(reset.Sub(now).Hours() / 24))
}

// UsagePercentage is used/limit as a rounded percentage clamped to [0, 100].
// Unlimited resources are always at 0.
func UsagePercentage(used float64, limit Quantity) int {
	if limit.IsUnlimited() {
		return 0
	}
	if limit <= 0 {
		if used > 0 {
			return 100
		}
		return 0
	}
	pct := math.Round(used / float64(limit) * 100)
	return int(math.Min(100, math.Max(0, pct)))
}

// WarningThreshold is the usage percentage at which users are warned.
const WarningThreshold = 80

// ShouldShowWarning reports whether usage has reached the warning threshold.
func ShouldShowWarning(used float64, limit Quantity) bool {
	if limit.IsUnlimited() {
		return false
	}
	return UsagePercentage(used, limit) >= WarningThreshold
}

// Warnings lists the resources in s at or past the warning threshold.
func Warnings(s Status) []Resource {
	var out []Resource
	for _, r := range Resources {
		if ShouldShowWarning(s.Usage.Get(r), s.Limits.Get(r)) {
			out = append(out, r)
		}
	}
	return out
}

// Message describes the quota of one resource for display.
func Message(s Status, r Resource) string {
	used := formatAmount(s.Usage.Get(r))
	limit := s.Limits.Get(r)
	if limit.IsUnlimited() {
		return fmt.Sprintf("%s %s used (unlimited)", used, r)
	}
	if s.Remaining.Get(r) <= 0 {
		return fmt.Sprintf("Quota exceeded: %s/%s %s", used, limit, r)
	}
	return fmt.Sprintf("%s/%s %s (%d%% used)", used, limit, r, UsagePercentage(s.Usage.Get(r), limit))
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// BillingPeriod returns the start of the monthly cycle containing now and
// the start of the next one, both in UTC.
func BillingPeriod(now time.Time) (start, next time.Time) {
	now = now.UTC()
	start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// CrossedWarning reports whether moving from before to after usage reached
// the warning threshold or the limit itself.
func CrossedWarning(before, after float64, limit Quantity) bool {
	if limit.IsUnlimited() {
		return false
	}
	crossed := func(pct int) bool {
		return UsagePercentage(before, limit) < pct && UsagePercentage(after, limit) >= pct
	}
	return crossed(WarningThreshold) || crossed(100)
}
