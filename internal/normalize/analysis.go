package normalize

import (
	"math"

	t "archigen/internal/types"
)

const (
	DefaultVisualPrompt      = "A standard residential floor plan."
	DefaultDistributionLogic = "Layout based on standard practices."

	// NeutralEfficiencyScore is used when neither area is usable.
	NeutralEfficiencyScore = 88
	// utilizedAreaRatio estimates utilized area when the model omits it.
	utilizedAreaRatio = 0.90
)

// Analysis maps a decoded analysis payload onto a LayoutAnalysis. Every field
// gets a deterministic default when absent, mistyped or not finite.
// BylawCompliance is left empty for the compliance stage to fill.
func Analysis(decoded any, req t.Requirements) t.LayoutAnalysis {
	obj, _ := decoded.(map[string]any)

	utilized := UtilizedArea(obj["totalUtilizedArea"], req.TotalArea)
	return t.LayoutAnalysis{
		VisualPrompt:      textOr(obj["visualPrompt"], DefaultVisualPrompt),
		DistributionLogic: textOr(obj["distributionLogic"], DefaultDistributionLogic),
		RoomDimensions:    Rooms(obj["roomDimensions"]),
		BylawCompliance:   []t.ComplianceFinding{},
		TotalUtilizedArea: utilized,
		EfficiencyScore:   EfficiencyScore(obj["efficiencyScore"], utilized, req.TotalArea),
	}
}

// UtilizedArea returns the reported utilized area, or 90% of the total
// (rounded) when the value is missing, zero or not a number.
func UtilizedArea(raw any, totalArea float64) float64 {
	if v, ok := number(raw); ok && v != 0 {
		return v
	}
	if !finite(totalArea) {
		return 0
	}
	return roundHalfUp(totalArea * utilizedAreaRatio)
}

// EfficiencyScore returns the reported score clamped to [0,100]. When it is
// missing, zero or not a number the score is derived from the area ratio,
// capped at 99 above 100, and falls back to NeutralEfficiencyScore when
// either area is not positive.
func EfficiencyScore(raw any, utilizedArea, totalArea float64) int {
	if v, ok := number(raw); ok && v != 0 {
		return int(clamp(roundHalfUp(v), 0, 100))
	}
	if utilizedArea > 0 && totalArea > 0 && finite(utilizedArea) && finite(totalArea) {
		score := roundHalfUp(utilizedArea / totalArea * 100)
		if score > 100 {
			return 99
		}
		return int(score)
	}
	return NeutralEfficiencyScore
}

// Rooms coerces a decoded room list; non-object entries are dropped.
func Rooms(raw any) []t.RoomRecord {
	items, _ := raw.([]any)
	out := make([]t.RoomRecord, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, t.RoomRecord{
			Name:   display(m["name"]),
			Width:  display(m["width"]),
			Length: display(m["length"]),
			Area:   display(m["area"]),
			Notes:  display(m["notes"]),
		})
	}
	return out
}

func roundHalfUp(v float64) float64 { return math.Floor(v + 0.5) }

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
