package quota

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlans(t *testing.T) {
	free, ok := LimitsFor(PlanFree)
	require.True(t, ok)
	assert.Equal(t, Limits{CitationChecks: 50, DocumentExports: 10, AIAssists: 20, StorageGB: 1}, free)

	researcher, _ := LimitsFor(PlanResearcher)
	assert.Equal(t, Limits{CitationChecks: 1000, DocumentExports: 100, AIAssists: 500, StorageGB: 10}, researcher)

	enterprise, _ := LimitsFor(PlanEnterprise)
	assert.True(t, enterprise.CitationChecks.IsUnlimited())
	assert.True(t, enterprise.DocumentExports.IsUnlimited())
	assert.True(t, enterprise.AIAssists.IsUnlimited())
	assert.Equal(t, Quantity(100), enterprise.StorageGB)

	_, ok = LimitsFor("platinum")
	assert.False(t, ok)
}

func TestParsePlan(t *testing.T) {
	p, err := ParsePlan("researcher")
	require.NoError(t, err)
	assert.Equal(t, PlanResearcher, p)

	_, err = ParsePlan("gold")
	assert.ErrorIs(t, err, ErrUnknownPlan)
}

func TestCalculateRemainingClamps(t *testing.T) {
	limits, _ := LimitsFor(PlanFree)
	got := CalculateRemaining(limits, Usage{CitationChecksUsed: 70, DocumentExportsUsed: 3, AIAssistsUsed: 20, StorageUsedGB: 0.25})
	assert.Equal(t, Limits{CitationChecks: 0, DocumentExports: 7, AIAssists: 0, StorageGB: 0.75}, got)

	enterprise, _ := LimitsFor(PlanEnterprise)
	got = CalculateRemaining(enterprise, Usage{CitationChecksUsed: 1e9})
	assert.True(t, got.CitationChecks.IsUnlimited())
}

func TestGetQuotaStatus(t *testing.T) {
	s, err := GetQuotaStatus(PlanFree, Usage{CitationChecksUsed: 10})
	require.NoError(t, err)
	assert.False(t, s.IsExceeded)
	assert.Equal(t, Quantity(40), s.Remaining.CitationChecks)
	assert.False(t, s.Exhausted(CitationChecks))

	s, err = GetQuotaStatus(PlanFree, Usage{CitationChecksUsed: 50})
	require.NoError(t, err)
	assert.True(t, s.IsExceeded)
	assert.True(t, s.Exhausted(CitationChecks))
	assert.False(t, s.Exhausted(AIAssists))

	s, err = GetQuotaStatus(PlanFree, Usage{StorageUsedGB: 1})
	require.NoError(t, err)
	assert.True(t, s.IsExceeded, "any single resource at zero exceeds the quota")

	s, err = GetQuotaStatus(PlanEnterprise, Usage{CitationChecksUsed: 1e6, StorageUsedGB: 5})
	require.NoError(t, err)
	assert.False(t, s.IsExceeded)

	_, err = GetQuotaStatus("nope", Usage{})
	assert.ErrorIs(t, err, ErrUnknownPlan)
}

func TestUsagePercentage(t *testing.T) {
	tests := []struct {
		name  string
		used  float64
		limit Quantity
		want  int
	}{
		{"zero", 0, 50, 0},
		{"half", 25, 50, 50},
		{"rounds", 1, 3, 33},
		{"rounds up", 2, 3, 67},
		{"full", 50, 50, 100},
		{"clamped high", 500, 50, 100},
		{"clamped low", -5, 50, 0},
		{"unlimited", 1e9, Unlimited, 0},
		{"zero limit used", 1, 0, 100},
		{"zero limit unused", 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UsagePercentage(tt.used, tt.limit))
		})
	}
}

func TestUsagePercentageMonotonic(t *testing.T) {
	for _, limit := range []Quantity{1, 3, 7, 50, 1000} {
		prev := UsagePercentage(0, limit)
		for used := 0.0; used <= float64(limit)*2; used += 0.5 {
			pct := UsagePercentage(used, limit)
			assert.GreaterOrEqual(t, pct, prev, "limit %v used %v", limit, used)
			assert.GreaterOrEqual(t, pct, 0)
			assert.LessOrEqual(t, pct, 100)
			prev = pct
		}
	}
}

func TestShouldShowWarning(t *testing.T) {
	assert.False(t, ShouldShowWarning(39, 50))
	assert.True(t, ShouldShowWarning(40, 50))
	assert.True(t, ShouldShowWarning(60, 50))
	assert.False(t, ShouldShowWarning(1e9, Unlimited))

	s, _ := GetQuotaStatus(PlanFree, Usage{CitationChecksUsed: 45, AIAssistsUsed: 2})
	assert.Equal(t, []Resource{CitationChecks}, Warnings(s))
}

func TestDaysUntilReset(t *testing.T) {
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, 30, DaysUntilReset(nil, now))

	reset := now.Add(36 * time.Hour)
	assert.Equal(t, 2, DaysUntilReset(&reset, now))

	reset = now.Add(24 * time.Hour)
	assert.Equal(t, 1, DaysUntilReset(&reset, now))
}

func TestMessage(t *testing.T) {
	s, _ := GetQuotaStatus(PlanFree, Usage{CitationChecksUsed: 10, DocumentExportsUsed: 10})
	assert.Equal(t, "10/50 citationChecks (20% used)", Message(s, CitationChecks))
	assert.Equal(t, "Quota exceeded: 10/10 documentExports", Message(s, DocumentExports))

	s, _ = GetQuotaStatus(PlanEnterprise, Usage{AIAssistsUsed: 7})
	assert.Equal(t, "7 aiAssists used (unlimited)", Message(s, AIAssists))
}

func TestQuantityJSON(t *testing.T) {
	enterprise, _ := LimitsFor(PlanEnterprise)
	data, err := json.Marshal(enterprise)
	require.NoError(t, err)
	assert.JSONEq(t, `{"citationChecks":"unlimited","documentExports":"unlimited","aiAssists":"unlimited","storageGB":100}`, string(data))

	var back Limits
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, back.AIAssists.IsUnlimited())
	assert.Equal(t, Quantity(100), back.StorageGB)

	var q Quantity
	assert.Error(t, json.Unmarshal([]byte(`"lots"`), &q))
}

func TestBypass(t *testing.T) {
	now := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	b := NewBypass(now)
	assert.Equal(t, now.Add(24*time.Hour), b.ExpiresAt)
	assert.True(t, b.Active(now))
	assert.True(t, b.Active(b.ExpiresAt))
	assert.False(t, b.Active(b.ExpiresAt.Add(time.Second)))
	assert.False(t, Bypass{}.Active(now))

	assert.Equal(t, "24h 0m remaining", b.FormatRemaining(now))
	assert.Equal(t, "5h 30m remaining", b.FormatRemaining(b.ExpiresAt.Add(-5*time.Hour-30*time.Minute)))
	assert.Equal(t, "12m remaining", b.FormatRemaining(b.ExpiresAt.Add(-12*time.Minute-10*time.Second)))
	assert.Equal(t, "Expired", b.FormatRemaining(b.ExpiresAt.Add(time.Minute)))
	assert.Equal(t, time.Duration(0), b.Remaining(b.ExpiresAt.Add(time.Hour)))

	short := NewBypassFor(now, time.Hour)
	assert.Equal(t, time.Hour, short.Remaining(now))
}

func TestPermits(t *testing.T) {
	now := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	exhausted, _ := GetQuotaStatus(PlanFree, Usage{CitationChecksUsed: 50})
	assert.False(t, Permits(exhausted, CitationChecks, nil, now))
	assert.True(t, Permits(exhausted, AIAssists, nil, now))

	b := NewBypass(now)
	assert.True(t, Permits(exhausted, CitationChecks, &b, now))
	assert.False(t, Permits(exhausted, CitationChecks, &b, now.Add(25*time.Hour)))
}

func TestBillingPeriod(t *testing.T) {
	start, next := BillingPeriod(time.Date(2026, 12, 31, 23, 59, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), next)

	loc := time.FixedZone("UTC+10", 10*3600)
	start, _ = BillingPeriod(time.Date(2026, 11, 1, 5, 0, 0, 0, loc))
	assert.Equal(t, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), start)
}

func TestCrossedWarning(t *testing.T) {
	assert.True(t, CrossedWarning(39, 40, 50))
	assert.False(t, CrossedWarning(40, 41, 50))
	assert.True(t, CrossedWarning(49, 50, 50))
	assert.False(t, CrossedWarning(50, 51, 50))
	assert.False(t, CrossedWarning(10, 11, 50))
	assert.False(t, CrossedWarning(1e6, 1e6+1, Unlimited))
}
