package inmem

import (
	"context"
	"sync"

	"github.com/credik/underwrite/model"
	"github.com/credik/underwrite/persistence"
	"github.com/credik/underwrite/util"
)

// inMemCheckpointStore keeps encoded snapshots in a map. Records are
// stored through the codec so loads return independent copies, same as the
// redis store.
type inMemCheckpointStore struct {
	mu             sync.RWMutex
	records        map[string][]byte
	encoderDecoder util.EncoderDecoder[model.Record]
}

var _ persistence.CheckpointStore = new(inMemCheckpointStore)

func NewInMemCheckpointStore(encoderDecoder util.EncoderDecoder[model.Record]) *inMemCheckpointStore {
	return &inMemCheckpointStore{
		records:        make(map[string][]byte),
		encoderDecoder: encoderDecoder,
	}
}

func (s *inMemCheckpointStore) Save(ctx context.Context, record *model.Record) error {
	data, err := s.encoderDecoder.Encode(*record)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.Id] = data
	return nil
}

func (s *inMemCheckpointStore) Load(ctx context.Context, runId string) (*model.Record, error) {
	s.mu.RLock()
	data, ok := s.records[runId]
	s.mu.RUnlock()
	if !ok {
		return nil, persistence.ErrNotFound
	}
	return s.encoderDecoder.Decode(data)
}
