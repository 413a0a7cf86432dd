package models

// Progress is the compliance figure set for one held credential. Field names
// are a stable contract consumed by dashboards and the reminder subsystem.
type Progress struct {
	TotalHoursCompleted      float64 `json:"totalHoursCompleted"`
	EthicsHoursCompleted     float64 `json:"ethicsHoursCompleted"`
	StructuredHoursCompleted float64 `json:"structuredHoursCompleted"`

	HoursRequired      float64 `json:"hoursRequired"`
	EthicsRequired     float64 `json:"ethicsRequired"`
	StructuredRequired float64 `json:"structuredRequired"`

	// ProgressPercent is 0..100; a zero hour requirement reads as 0, not
	// 100, so an unconfigured credential never shows as done.
	ProgressPercent int `json:"progressPercent"`

	TotalGap      float64 `json:"totalGap"`
	EthicsGap     float64 `json:"ethicsGap"`
	StructuredGap float64 `json:"structuredGap"`

	// DaysUntilDeadline is nil when the holding has no renewal deadline.
	// Negative values mean the deadline has passed.
	DaysUntilDeadline *int `json:"daysUntilDeadline"`
}
