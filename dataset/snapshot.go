package dataset

import "time"

// Snapshot is a persisted dataset build: the indicator it was built for, when
// its data was fetched, and every joined row.
type Snapshot struct {
	ID        int64     `json:"id"`
	Indicator string    `json:"indicator"`
	FetchedAt time.Time `json:"fetched_at"`
	Rows      []Row     `json:"rows"`
}
