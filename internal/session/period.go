package session

import "time"

// Status of an academic/financial period as reported by the academy API.
type Status string

const (
	StatusInProgress Status = "IN_PROGRESS"
	StatusPending    Status = "PENDING"
	StatusTerminated Status = "TERMINATED"
)

// Period is the operational session: the academic or contribution cycle
// the portal currently operates on. Distinct from the login session.
type Period struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Status    Status    `json:"status"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	Rate      float64   `json:"rate"`
}

// CurrentPeriod picks the period flagged in progress. The API is
// expected to flag at most one; if it misbehaves, the first wins.
func CurrentPeriod(periods []Period) (Period, bool) {
	for _, p := range periods {
		if p.Status == StatusInProgress {
			return p, true
		}
	}
	return Period{}, false
}
