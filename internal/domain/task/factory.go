package task

import (
	"time"

	"github.com/google/uuid"
)

// New builds a persistable Task from a validated create request. Ownership
// comes from the verified caller identity, never from the payload.
func New(ownerID string, req CreateTaskRequest) Task {
	now := time.Now().UTC()

	return Task{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Title:       req.Title,
		Description: req.Description,
		Completed:   req.Completed,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
