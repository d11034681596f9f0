// Package draft persists crash-recovery drafts on the local
// filesystem. A draft is written when a backend save fails and
// discarded when one succeeds; it must stay readable with the backend
// offline, which is why it lives on disk and not behind the API.
package draft

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"

	"flowcanvas/application/ports"
	"flowcanvas/domain/versioning"
	pkgerrors "flowcanvas/pkg/errors"
)

const draftFileName = "canvas.draft"

// FileStore implements ports.DraftStore over a single draft file.
// Writes are atomic: a temp file is renamed over the previous draft.
type FileStore struct {
	mu     sync.Mutex
	path   string
	schema *draftSchema
	enc    *zstd.Encoder
	dec    *zstd.Decoder
	logger *zap.Logger
}

var _ ports.DraftStore = (*FileStore)(nil)

// NewFileStore creates the draft directory if needed and returns a
// store writing to <dir>/canvas.draft.
func NewFileStore(dir string, logger *zap.Logger) (*FileStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, pkgerrors.NewInternalError(fmt.Sprintf("failed to create draft directory %s", dir)).WithCause(err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, pkgerrors.NewInternalError("failed to initialize draft compressor").WithCause(err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, pkgerrors.NewInternalError("failed to initialize draft decompressor").WithCause(err)
	}

	return &FileStore{
		path:   filepath.Join(dir, draftFileName),
		schema: newDraftSchema(),
		enc:    enc,
		dec:    dec,
		logger: logger,
	}, nil
}

// Path returns the draft file location
func (s *FileStore) Path() string {
	return s.path
}

// Save writes the draft, replacing any previous one
func (s *FileStore) Save(ctx context.Context, draft *ports.Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	savedAt := draft.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now().UTC()
	}

	sum, err := versioning.Checksum(draft.Snapshot)
	if err != nil {
		return pkgerrors.NewInternalError("failed to checksum draft").WithCause(err)
	}

	env := draftEnvelope{
		SchemaVersion: currentSchemaVersion,
		Revision:      draft.Revision,
		SavedAt:       savedAt,
		Checksum:      sum,
		Snapshot:      draft.Snapshot,
	}

	encoded, err := msgpack.Marshal(&env)
	if err != nil {
		return pkgerrors.NewInternalError("failed to encode draft").WithCause(err)
	}
	compressed := s.enc.EncodeAll(encoded, nil)

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, compressed, 0o644); err != nil {
		return pkgerrors.NewInternalError("failed to write draft file").WithCause(err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return pkgerrors.NewInternalError("failed to replace draft file").WithCause(err)
	}

	s.logger.Debug("draft written",
		zap.Int64("revision", draft.Revision),
		zap.String("path", s.path),
	)
	return nil
}

// Load reads, migrates, and verifies the stored draft
func (s *FileStore) Load(ctx context.Context) (*ports.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	env, err := s.readEnvelope()
	if err != nil {
		return nil, err
	}

	ok, err := versioning.VerifyChecksum(env.Snapshot, env.Checksum)
	if err != nil {
		return nil, pkgerrors.NewConflictError("draft checksum could not be verified").WithCause(err)
	}
	if !ok {
		return nil, pkgerrors.NewConflictError("draft content does not match its checksum").WithCode("DRAFT_CORRUPT")
	}

	return &ports.Draft{
		Snapshot: env.Snapshot,
		Revision: env.Revision,
		SavedAt:  env.SavedAt,
	}, nil
}

// Discard removes the stored draft. Discarding a missing draft is not
// an error.
func (s *FileStore) Discard(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return pkgerrors.NewInternalError("failed to discard draft").WithCause(err)
	}
	return nil
}

// Info describes the stored draft without handing out its snapshot
func (s *FileStore) Info(ctx context.Context) (*ports.DraftInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	env, err := s.readEnvelope()
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			return &ports.DraftInfo{Exists: false}, nil
		}
		return nil, err
	}

	return &ports.DraftInfo{
		Exists:   true,
		Revision: env.Revision,
		SavedAt:  env.SavedAt,
		Checksum: env.Checksum,
	}, nil
}

// readEnvelope loads and migrates the raw draft file. Callers hold the
// lock.
func (s *FileStore) readEnvelope() (*draftEnvelope, error) {
	compressed, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, pkgerrors.NewNotFoundError("draft")
		}
		return nil, pkgerrors.NewInternalError("failed to read draft file").WithCause(err)
	}

	encoded, err := s.dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, pkgerrors.NewConflictError("draft file is corrupt").WithCode("DRAFT_CORRUPT").WithCause(err)
	}

	var env draftEnvelope
	if err := msgpack.Unmarshal(encoded, &env); err != nil {
		return nil, pkgerrors.NewConflictError("draft file is corrupt").WithCode("DRAFT_CORRUPT").WithCause(err)
	}

	if err := s.schema.upgrade(&env); err != nil {
		return nil, pkgerrors.NewConflictError("draft schema is incompatible").WithCode("DRAFT_SCHEMA").WithCause(err)
	}

	return &env, nil
}

// Close releases the compressor resources
func (s *FileStore) Close() {
	s.enc.Close()
	s.dec.Close()
}

// NoopStore is the draft store used when drafts are disabled by
// configuration. It never persists anything.
type NoopStore struct{}

var _ ports.DraftStore = NoopStore{}

// NewNoopStore returns a store that drops every draft
func NewNoopStore() NoopStore {
	return NoopStore{}
}

// Save drops the draft
func (NoopStore) Save(ctx context.Context, draft *ports.Draft) error { return nil }

// Load always reports that no draft exists
func (NoopStore) Load(ctx context.Context) (*ports.Draft, error) {
	return nil, pkgerrors.NewNotFoundError("draft")
}

// Discard is a no-op
func (NoopStore) Discard(ctx context.Context) error { return nil }

// Info always reports absence
func (NoopStore) Info(ctx context.Context) (*ports.DraftInfo, error) {
	return &ports.DraftInfo{Exists: false}, nil
}
