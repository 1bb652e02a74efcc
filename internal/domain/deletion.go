package domain

import (
	"time"

	"github.com/google/uuid"
)

// DeletionRequest tracks a bulk delete over a flow's time range. It is the
// only externally observable handle on an asynchronous deletion: callers
// poll its status until a terminal state is reached.
type DeletionRequest struct {
	ID        uuid.UUID
	FlowID    uuid.UUID
	Range     TimeRange
	Status    DeletionStatus
	Error     *string
	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time

	// DeleteFlow marks a whole-flow deletion: once all segments in Range are
	// gone the flow row itself is soft-deleted.
	DeleteFlow bool
}

// CanTransition reports whether moving to next is a legal state change.
func (r *DeletionRequest) CanTransition(next DeletionStatus) bool {
	if r.Status.IsTerminal() {
		return false
	}
	switch r.Status {
	case DeletionStatusPending:
		return next == DeletionStatusInProgress || next == DeletionStatusCompleted || next == DeletionStatusFailed
	case DeletionStatusInProgress:
		return next == DeletionStatusCompleted || next == DeletionStatusFailed
	}
	return false
}
