package normalize

import (
	"strings"

	t "archigen/internal/types"
)

// Findings coerces a decoded compliance list. A value that is not a list
// yields an empty, non-nil slice.
func Findings(decoded any) []t.ComplianceFinding {
	items, _ := decoded.([]any)
	out := make([]t.ComplianceFinding, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, t.ComplianceFinding{
			Rule:    display(m["rule"]),
			Status:  Status(m["status"]),
			Details: display(m["details"]),
		})
	}
	return out
}

// Status maps free-form status text onto the three fixed categories.
// Unrecognised values become Warning.
func Status(v any) t.ComplianceStatus {
	s, _ := v.(string)
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer("-", "", "_", "", " ", "").Replace(key)
	switch key {
	case "compliant", "pass", "passed", "ok":
		return t.StatusCompliant
	case "noncompliant", "fail", "failed", "violation":
		return t.StatusNonCompliant
	default:
		return t.StatusWarning
	}
}
