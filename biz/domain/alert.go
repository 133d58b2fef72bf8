package domain

import (
	"time"

	"github.com/google/uuid"
)

type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Alert is a security-relevant event derived from scan findings or created
// manually. ContainerID is nil for host-wide alerts. Resolution is the only
// mutation allowed after creation.
type Alert struct {
	ID          uuid.UUID  `json:"id"`
	Severity    Severity   `json:"severity"`
	Message     string     `json:"message"`
	Source      string     `json:"source"`
	ContainerID *uuid.UUID `json:"container_id"`
	Resolved    bool       `json:"resolved"`
	CreatedAt   time.Time  `json:"created_at"`
}

// SecurityScore is a deterministic linear penalty over the unresolved alert
// counts for a container or the whole host, clamped to [0, 100].
func SecurityScore(unresolvedCritical, unresolvedHigh int64) int64 {
	score := 100 - 10*unresolvedCritical - 5*unresolvedHigh
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
