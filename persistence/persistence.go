package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/credik/underwrite/model"
)

// ErrNotFound is returned by Load when no checkpoint exists for the run id.
var ErrNotFound = errors.New("record not found")

type StorageLayerError struct {
	Message string
}

func (e StorageLayerError) Error() string {
	return fmt.Sprintf("storage layer error %s", e.Message)
}

// CheckpointStore persists Record snapshots between stages. A Save that
// returns nil must be readable by a subsequent Load; the store is expected
// to be safe for use from concurrent runs.
type CheckpointStore interface {
	Save(ctx context.Context, record *model.Record) error
	Load(ctx context.Context, runId string) (*model.Record, error)
}
