package session

import "time"

// PeriodDTO is the transport shape for defining the active period.
type PeriodDTO struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	Rate      float64   `json:"rate"`
}

// ValidationError represents a simple validation error from DTO validation.
type ValidationError struct {
	Msg string
}

func (v ValidationError) Error() string { return v.Msg }

func (d PeriodDTO) Validate() error {
	if d.ID <= 0 {
		return ValidationError{Msg: "id is required"}
	}
	if d.Title == "" {
		return ValidationError{Msg: "title is required"}
	}
	switch Status(d.Status) {
	case StatusInProgress, StatusPending, StatusTerminated:
	default:
		return ValidationError{Msg: "status must be one of IN_PROGRESS, PENDING, TERMINATED"}
	}
	return nil
}

func (d PeriodDTO) ToPeriod() Period {
	return Period{
		ID:        d.ID,
		Title:     d.Title,
		Status:    Status(d.Status),
		StartDate: d.StartDate,
		EndDate:   d.EndDate,
		Rate:      d.Rate,
	}
}
