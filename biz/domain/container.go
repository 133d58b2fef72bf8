package domain

import (
	"time"

	"github.com/google/uuid"
)

type ContainerStatus int

const (
	ContainerStatusRUN ContainerStatus = iota + 1
	ContainerStatusSTOPPED
)

func (s ContainerStatus) String() string {
	return [...]string{"running", "stopped"}[s-1]
}

func ContainerStatusFromString(s string) ContainerStatus {
	if s == "running" {
		return ContainerStatusRUN
	}
	return ContainerStatusSTOPPED
}

// Container is the persisted inventory record for one runtime container.
// RuntimeID is the stable id assigned by the container runtime; ID is ours.
type Container struct {
	ID        uuid.UUID       `json:"id"`
	RuntimeID string          `json:"runtime_id"`
	Name      string          `json:"name"`
	Image     string          `json:"image"`
	Status    ContainerStatus `json:"status"`
	Ports     string          `json:"ports"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// RuntimeContainer is one entry of the runtime's list-containers response,
// before it has been reconciled into the inventory.
type RuntimeContainer struct {
	RuntimeID string
	Name      string
	Image     string
	RawStatus string
	Ports     string
	Running   bool
	CreatedAt time.Time
}

func (rc RuntimeContainer) Status() ContainerStatus {
	if rc.Running {
		return ContainerStatusRUN
	}
	return ContainerStatusSTOPPED
}
