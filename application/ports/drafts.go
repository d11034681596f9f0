package ports

import (
	"context"
	"time"

	"flowcanvas/domain/core/aggregates"
)

// Draft is a crash-recovery copy of the document, written when a save
// fails and discarded when one succeeds.
type Draft struct {
	Snapshot aggregates.Snapshot
	Revision int64
	SavedAt  time.Time
}

// DraftInfo describes the stored draft without loading its snapshot.
type DraftInfo struct {
	Exists   bool      `json:"exists"`
	Revision int64     `json:"revision,omitempty"`
	SavedAt  time.Time `json:"saved_at,omitempty"`
	Checksum string    `json:"checksum,omitempty"`
}

// DraftStore defines the interface for local draft persistence.
type DraftStore interface {
	// Save writes the draft, replacing any previous one
	Save(ctx context.Context, draft *Draft) error

	// Load reads the stored draft. A missing draft is a NOT_FOUND
	// AppError; a corrupt one is a CONFLICT AppError.
	Load(ctx context.Context) (*Draft, error)

	// Discard removes the stored draft. Discarding a missing draft
	// is not an error.
	Discard(ctx context.Context) error

	// Info describes the stored draft; absence is reported, not an error
	Info(ctx context.Context) (*DraftInfo, error)
}
