package types

import "time"

// Input ------------------------------------------------------------------------

// Requirements is the caller-owned snapshot of what the user asked for.
// Range checks (rooms 1..10, positive area) belong to the presentation layer.
type Requirements struct {
	Rooms           int     `json:"rooms"`
	TotalArea       float64 `json:"totalArea"` // sq ft
	HasHall         bool    `json:"hasHall"`
	HasKitchen      bool    `json:"hasKitchen"`
	HasBalcony      bool    `json:"hasBalcony"`
	Country         string  `json:"country"`
	AdditionalNotes string  `json:"additionalNotes"`
}

// Analysis ---------------------------------------------------------------------

// RoomRecord values are display strings passed through from the model.
type RoomRecord struct {
	Name   string `json:"name"`
	Width  string `json:"width"`
	Length string `json:"length"`
	Area   string `json:"area"`
	Notes  string `json:"notes"`
}

type ComplianceStatus string

const (
	StatusCompliant    ComplianceStatus = "Compliant"
	StatusWarning      ComplianceStatus = "Warning"
	StatusNonCompliant ComplianceStatus = "Non-Compliant"
)

// ComplianceStatuses lists the allowed statuses in schema order.
var ComplianceStatuses = []ComplianceStatus{StatusCompliant, StatusWarning, StatusNonCompliant}

type ComplianceFinding struct {
	Rule    string           `json:"rule"`
	Status  ComplianceStatus `json:"status"`
	Details string           `json:"details"`
}

type LayoutAnalysis struct {
	VisualPrompt      string              `json:"visualPrompt"`
	DistributionLogic string              `json:"distributionLogic"`
	RoomDimensions    []RoomRecord        `json:"roomDimensions"`
	BylawCompliance   []ComplianceFinding `json:"bylawCompliance"`
	TotalUtilizedArea float64             `json:"totalUtilizedArea"`
	EfficiencyScore   int                 `json:"efficiencyScore"`
}

// Result -----------------------------------------------------------------------

// GeneratedPlan is built once when a run completes and is not mutated afterwards.
type GeneratedPlan struct {
	ID        string         `json:"id"`
	ImageURL  string         `json:"imageUrl"`
	Analysis  LayoutAnalysis `json:"analysis"`
	Timestamp int64          `json:"timestamp"` // unix millis
}

// CreatedAt returns the plan timestamp as a time.Time.
func (p GeneratedPlan) CreatedAt() time.Time {
	return time.UnixMilli(p.Timestamp)
}
