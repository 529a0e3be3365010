package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Incident describes a suspicious guard denial worth keeping for review.
type Incident struct {
	ID         uuid.UUID `json:"id"`
	Guard      string    `json:"guard"`
	Reason     string    `json:"reason"`
	UserID     uuid.UUID `json:"user_id"`
	Path       string    `json:"path"`
	OccurredAt time.Time `json:"occurred_at"`
}

// IncidentRecorder keeps incidents for later review.
type IncidentRecorder interface {
	Record(ctx context.Context, incident Incident) error
}
