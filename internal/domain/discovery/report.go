package discovery

import "time"

// ReportID identifier type
type ReportID string

// Report is the record of one finished analysis run, kept for auditing and retrieval.
type Report struct {
	ID         ReportID  `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Scanned    int       `json:"scanned"`
	Discovered int       `json:"discovered"`
	Dangerous  int       `json:"dangerous"`
	Services   []Service `json:"services"`
	ReportURL  string    `json:"report_url,omitempty"`
}

// Run is what the analysis store hands over when a run completes.
type Run struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Scanned    int
	Services   []Service
}
