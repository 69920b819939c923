package domain

import "time"

// Sprint is a fixed iteration window that issues can be grouped under.
type Sprint struct {
	ID        int64     `json:"id"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Goal      string    `json:"goal"`
}
