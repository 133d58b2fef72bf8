package domain

import (
	"time"

	"github.com/google/uuid"
)

type ScanStatus string

const (
	ScanStatusRunning   ScanStatus = "running"
	ScanStatusCompleted ScanStatus = "completed"
	ScanStatusFailed    ScanStatus = "failed"
)

// Scan records one vulnerability or malware scan of a container. Status
// moves running -> completed or running -> failed exactly once; terminal
// rows are immutable. Result stays nil until completion.
type Scan struct {
	ID             uuid.UUID  `json:"id"`
	ContainerID    uuid.UUID  `json:"container_id"`
	ScanType       string     `json:"scan_type"`
	Status         ScanStatus `json:"status"`
	Result         []byte     `json:"result"`
	Summary        string     `json:"summary"`
	ReportURL      *string    `json:"report_url"`
	DurationMillis *int64     `json:"duration_millis"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Finding is one structured result item delivered by the external scanner.
type Finding struct {
	ID          string   `json:"id"`
	Severity    Severity `json:"severity"`
	Package     string   `json:"package"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
}
