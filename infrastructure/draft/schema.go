package draft

import (
	"fmt"
	"time"

	"flowcanvas/domain/core/aggregates"
	"flowcanvas/domain/versioning"
)

// currentSchemaVersion is the on-disk draft format version. Version 1
// drafts predate the content checksum.
const currentSchemaVersion = 2

// draftEnvelope is the on-disk form of a draft: msgpack-encoded, then
// zstd-compressed.
type draftEnvelope struct {
	SchemaVersion int                 `msgpack:"schema_version"`
	Revision      int64               `msgpack:"revision"`
	SavedAt       time.Time           `msgpack:"saved_at"`
	Checksum      string              `msgpack:"checksum"`
	Snapshot      aggregates.Snapshot `msgpack:"snapshot"`
}

// migration upgrades an envelope one schema version forward
type migration struct {
	fromVersion int
	toVersion   int
	description string
	up          func(env *draftEnvelope) error
}

// draftSchema migrates stored drafts to the current format version
type draftSchema struct {
	current    int
	migrations []migration
}

func newDraftSchema() *draftSchema {
	return &draftSchema{
		current: currentSchemaVersion,
		migrations: []migration{
			{
				fromVersion: 1,
				toVersion:   2,
				description: "add content checksum",
				up: func(env *draftEnvelope) error {
					sum, err := versioning.Checksum(env.Snapshot)
					if err != nil {
						return err
					}
					env.Checksum = sum
					return nil
				},
			},
		},
	}
}

// upgrade walks the envelope forward to the current schema version.
// Envelopes from a newer build cannot be downgraded.
func (s *draftSchema) upgrade(env *draftEnvelope) error {
	if env.SchemaVersion > s.current {
		return fmt.Errorf("draft schema version %d is newer than supported version %d",
			env.SchemaVersion, s.current)
	}

	for env.SchemaVersion < s.current {
		m := s.findMigration(env.SchemaVersion, env.SchemaVersion+1)
		if m == nil {
			return fmt.Errorf("no migration found from draft schema version %d to %d",
				env.SchemaVersion, env.SchemaVersion+1)
		}
		if err := m.up(env); err != nil {
			return fmt.Errorf("draft migration %d->%d (%s) failed: %w",
				m.fromVersion, m.toVersion, m.description, err)
		}
		env.SchemaVersion = m.toVersion
	}

	return nil
}

func (s *draftSchema) findMigration(from, to int) *migration {
	for i := range s.migrations {
		if s.migrations[i].fromVersion == from && s.migrations[i].toVersion == to {
			return &s.migrations[i]
		}
	}
	return nil
}
