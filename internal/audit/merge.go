package audit

import "fmt"

const (
	FlagTypeVerification = "VERIFICATION"

	VerificationFailed     = "VERIFICATION_FAILED"
	UnmatchedReference     = "UNMATCHED_REFERENCE"
	verificationRulePrefix = "VER."
)

// MergeVerificationFlags appends a VERIFICATION flag for each failed
// verification whose citation has no style flag at the same anchor.
func MergeVerificationFlags(flags []Flag, verification []VerificationResult) []Flag {
	merged := make([]Flag, 0, len(flags)+len(verification))
	merged = append(merged, flags...)
	if len(verification) == 0 {
		return merged
	}

	styled := make(map[string]struct{}, len(flags))
	for _, f := range flags {
		if f.Anchor != nil && f.Type != FlagTypeVerification {
			styled[anchorKey(f.Anchor.Start, f.Anchor.End)] = struct{}{}
		}
	}
	for _, v := range verification {
		if v.Status != VerificationFailed && v.Status != UnmatchedReference {
			continue
		}
		loc := v.InlineLocation
		if _, ok := styled[anchorKey(loc.Start, loc.End)]; ok {
			continue
		}
		merged = append(merged, Flag{
			Type:    FlagTypeVerification,
			RuleID:  verificationRulePrefix + v.Status,
			Message: v.Message,
			Anchor:  &Anchor{Start: loc.Start, End: loc.End, Text: loc.Text},
		})
	}
	return merged
}

func anchorKey(start, end int) string {
	return fmt.Sprintf("%d-%d", start, end)
}
