package editstate

import (
	"encoding/json"
	"fmt"

	"github.com/literoom/engine/internal/engineerr"
)

// Migration is a pure function that upgrades a raw EditState JSON document
// from one version to the next. Migrations never mutate in place: they
// return a new document. Invariant I4 (version advances only through
// migration) is enforced by Migrate, not by any setter on EditState.
type Migration struct {
	FromVersion int
	Apply       func(raw json.RawMessage) (json.RawMessage, error)
}

// Migrations is the ordered registry of upgrade steps, indexed by the
// version they upgrade *from*. A document at version N is migrated by
// applying Migrations[N], then N+1, and so on until CurrentVersion.
var Migrations = map[int]Migration{}

// Migrate decodes raw as an EditState at declaredVersion and applies every
// registered migration in order until CurrentVersion is reached.
func Migrate(raw json.RawMessage, declaredVersion int) (*EditState, error) {
	if declaredVersion > CurrentVersion {
		return nil, engineerr.New(engineerr.Internal,
			fmt.Sprintf("edit state version %d is newer than supported version %d", declaredVersion, CurrentVersion))
	}

	current := raw
	for v := declaredVersion; v < CurrentVersion; v++ {
		step, ok := Migrations[v]
		if !ok {
			return nil, engineerr.New(engineerr.Internal,
				fmt.Sprintf("no migration registered from edit state version %d", v))
		}
		next, err := step.Apply(current)
		if err != nil {
			return nil, engineerr.Wrap(engineerr.Internal, fmt.Sprintf("migrating edit state from version %d", v), err)
		}
		current = next
	}

	var out EditState
	if err := json.Unmarshal(current, &out); err != nil {
		return nil, engineerr.Wrap(engineerr.Corrupted, "decoding migrated edit state", err)
	}
	out.Version = CurrentVersion
	if err := Validate(&out); err != nil {
		return nil, err
	}
	return &out, nil
}
