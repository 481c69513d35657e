// Package store persists pipeline runs.
//
// A run is the summary of one pipeline execution together with its full JSON
// result. Stores are explicit values handed to the pipeline and the CLI; there
// is no process-wide registry, so two runs never share state unless the
// caller passes them the same store.
//
// Three backends are provided:
//
//   - [FileStore]: one JSON file per run, guarded by an advisory file lock so
//     several processes can share a directory.
//   - [SQLiteStore]: a single SQLite database (pure Go driver).
//   - [MongoStore]: a MongoDB collection shared by several hosts.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/sceneguard/pkg/errors"
)

// Run status values.
const (
	StatusClean    = "clean"    // every element resolved without degradation
	StatusDegraded = "degraded" // at least one unresolved conflict or failed reflow
)

// Run is one stored pipeline execution.
type Run struct {
	ID         string          `json:"id"`
	CreatedAt  time.Time       `json:"created_at"`
	Plan       string          `json:"plan"`
	PlanHash   string          `json:"plan_hash"`
	Status     string          `json:"status"`
	Scenes     int             `json:"scenes"`
	Elements   int             `json:"elements"`
	Collisions int             `json:"collisions"`
	Unresolved int             `json:"unresolved"`
	Reflows    int             `json:"reflows"`
	Result     json.RawMessage `json:"result,omitempty"`
}

// Store persists runs.
//
// Save assigns an ID and creation time when they are empty. List returns the
// newest runs first without their Result payload; a limit ≤ 0 means no limit.
// Get and Delete return an ErrCodeNotFound error for unknown IDs.
type Store interface {
	Save(ctx context.Context, run *Run) error
	Get(ctx context.Context, id string) (*Run, error)
	List(ctx context.Context, limit int) ([]*Run, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

var now = func() time.Time { return time.Now().UTC() }

// prepare fills the generated fields of run and validates its ID.
func prepare(run *Run) error {
	if run == nil {
		return errors.New(errors.ErrCodeInvalidInput, "nil run")
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = now()
	}
	return validateID(run.ID)
}

func validateID(id string) error {
	if err := errors.ValidateKey(id); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "run id %q", id)
	}
	return nil
}

func notFound(id string) error {
	return errors.New(errors.ErrCodeNotFound, "run %q", id)
}
