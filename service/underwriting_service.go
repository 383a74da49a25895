package service

import (
	"context"
	"time"

	c "github.com/patrickmn/go-cache"

	"github.com/credik/underwrite/engine"
	"github.com/credik/underwrite/logger"
	"github.com/credik/underwrite/model"
	"github.com/credik/underwrite/persistence"
	"go.uber.org/zap"
)

// UnderwritingService coordinates runs for the API layer and keeps a
// short-lived cache of finished records in front of the checkpoint store.
// In-progress records are never served from cache; the engine owns them.
type UnderwritingService struct {
	engine      *engine.Engine
	store       persistence.CheckpointStore
	recordCache *c.Cache
	rules       model.BusinessRules
}

func NewUnderwritingService(eng *engine.Engine, store persistence.CheckpointStore, rules model.BusinessRules, cacheTtl time.Duration) *UnderwritingService {
	if cacheTtl <= 0 {
		cacheTtl = 5 * time.Minute
	}
	return &UnderwritingService{
		engine:      eng,
		store:       store,
		recordCache: c.New(cacheTtl, 10*time.Minute),
		rules:       rules,
	}
}

func (s *UnderwritingService) StartApplication(ctx context.Context, app *model.LoanApplication) (*model.Record, error) {
	logger.Info("starting application", zap.String("applicant", app.ApplicantName))
	record, err := s.engine.Start(ctx, app, s.rules)
	if err != nil {
		return record, err
	}
	s.cacheIfTerminal(record)
	return record, nil
}

func (s *UnderwritingService) ResumeApplication(ctx context.Context, runId string, userInput map[string]any) (*model.Record, error) {
	s.recordCache.Delete(runId)
	record, err := s.engine.Resume(ctx, runId, userInput)
	if err != nil {
		return record, err
	}
	s.cacheIfTerminal(record)
	return record, nil
}

func (s *UnderwritingService) GetRecord(ctx context.Context, runId string) (*model.Record, error) {
	if cached, found := s.recordCache.Get(runId); found {
		return cached.(*model.Record), nil
	}
	record, err := s.store.Load(ctx, runId)
	if err != nil {
		return nil, err
	}
	s.cacheIfTerminal(record)
	return record, nil
}

func (s *UnderwritingService) cacheIfTerminal(record *model.Record) {
	if record != nil && record.Status.Terminal() {
		s.recordCache.Set(record.Id, record, c.DefaultExpiration)
	}
}
