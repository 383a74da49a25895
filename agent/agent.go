package agent

import (
	"sync"
	"time"

	"github.com/credik/underwrite/config"
	"github.com/credik/underwrite/container"
	"github.com/credik/underwrite/engine"
	"github.com/credik/underwrite/logger"
	"github.com/credik/underwrite/model"
	"github.com/credik/underwrite/rest"
	"github.com/credik/underwrite/router"
	"github.com/credik/underwrite/service"
	"github.com/credik/underwrite/stage"
)

// Agent assembles the whole service: container, stage registry, router,
// engine, underwriting service and HTTP server.
type Agent struct {
	Config              config.Config
	container           *container.DIContainer
	registry            *stage.Registry
	engine              *engine.Engine
	underwritingService *service.UnderwritingService
	httpServer          *rest.Server
	shutdown            bool
	shutdownLock        sync.Mutex
}

func New(conf config.Config) (*Agent, error) {
	a := &Agent{Config: conf}
	setup := []func() error{
		a.setupContainer,
		a.setupRegistry,
		a.setupEngine,
		a.setupUnderwritingService,
		a.setupHttpServer,
	}
	for _, fn := range setup {
		if err := fn(); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *Agent) setupContainer() error {
	a.container = container.NewDiContainer()
	a.container.Init(a.Config)
	return nil
}

func (a *Agent) setupRegistry() error {
	var err error
	a.registry, err = stage.NewRegistry(
		stage.NewDocumentClassificationStage(a.container.GetDocumentService()),
		stage.NewEntityKMPStage(a.container.GetEntityRegistryService()),
		stage.NewVerificationStage(a.container.GetBureauService(), a.container.GetTaxRegistryService()),
		stage.NewFinancialStage(),
		stage.NewBankingStage(),
		stage.NewFinalAssemblyStage(),
	)
	return err
}

func (a *Agent) setupEngine() error {
	var err error
	a.engine, err = engine.New(a.registry, router.New(a.registry), stage.NewRunner(), a.container.GetCheckpointStore())
	return err
}

func (a *Agent) setupUnderwritingService() error {
	cacheTtl := time.Duration(a.Config.RecordCacheTtlSecond) * time.Second
	a.underwritingService = service.NewUnderwritingService(
		a.engine,
		a.container.GetCheckpointStore(),
		model.DefaultBusinessRules(),
		cacheTtl,
	)
	return nil
}

func (a *Agent) setupHttpServer() error {
	var err error
	a.httpServer, err = rest.NewServer(a.Config.HttpPort, a.underwritingService)
	return err
}

func (a *Agent) Start() error {
	go func() {
		if err := a.httpServer.Start(); err != nil {
			logger.Error("http server stopped")
		}
	}()
	return nil
}

func (a *Agent) Shutdown() error {
	a.shutdownLock.Lock()
	defer a.shutdownLock.Unlock()
	if a.shutdown {
		return nil
	}
	a.shutdown = true
	logger.Info("shutting down agent")
	return a.httpServer.Stop()
}
