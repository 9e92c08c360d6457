package dto

// EngineerStatsDTO - период в днях, обе границы включительно.
type EngineerStatsDTO struct {
	DateFrom   string `json:"date_from" validate:"required,datetime=2006-01-02"`
	DateTo     string `json:"date_to" validate:"required,datetime=2006-01-02"`
	EngineerID *int64 `json:"engineer_id" validate:"omitempty,gt=0"`
}
