package container

import (
	"time"

	"github.com/credik/underwrite/config"
	"github.com/credik/underwrite/external"
	"github.com/credik/underwrite/model"
	"github.com/credik/underwrite/persistence"
	"github.com/credik/underwrite/persistence/inmem"
	rd "github.com/credik/underwrite/persistence/redis"
	"github.com/credik/underwrite/util"
)

// DIContainer owns the swappable infrastructure: checkpoint storage, the
// record codec and the external collaborator clients. Everything above it
// (engine, service, rest) takes these as plain values.
type DIContainer struct {
	initialized     bool
	checkpointStore persistence.CheckpointStore
	RecordEncDec    util.EncoderDecoder[model.Record]
	documentService external.DocumentService
	bureauService   external.BureauService
	taxRegistry     external.TaxRegistryService
	entityRegistry  external.EntityRegistryService
}

func NewDiContainer() *DIContainer {
	return &DIContainer{}
}

func (d *DIContainer) Init(conf config.Config) {
	defer func() { d.initialized = true }()

	d.RecordEncDec = util.NewJsonEncoderDecoder[model.Record]()

	switch conf.StorageType {
	case config.STORAGE_TYPE_INMEM:
		d.checkpointStore = inmem.NewInMemCheckpointStore(d.RecordEncDec)
	default:
		rdConf := rd.Config{
			Addrs:     conf.RedisConfig.Addrs,
			Namespace: conf.RedisConfig.Namespace,
		}
		d.checkpointStore = rd.NewRedisCheckpointStore(rdConf, d.RecordEncDec)
	}

	timeout := time.Duration(conf.ExternalCallTimeout) * time.Second
	d.documentService = external.NewHttpDocumentService(conf.DocumentServiceUrl, conf.DocumentServiceKey, timeout)
	d.bureauService = external.NewHttpBureauService(conf.BureauServiceUrl, conf.BureauServiceKey, timeout)
	d.taxRegistry = external.NewHttpTaxRegistryService(conf.TaxRegistryUrl, conf.TaxRegistryKey, timeout)
	d.entityRegistry = external.NewHttpEntityRegistryService(conf.EntityRegistryUrl, conf.EntityRegistryKey, timeout)
}

func (d *DIContainer) GetCheckpointStore() persistence.CheckpointStore {
	if !d.initialized {
		panic("container not initialized")
	}
	return d.checkpointStore
}

func (d *DIContainer) GetDocumentService() external.DocumentService {
	if !d.initialized {
		panic("container not initialized")
	}
	return d.documentService
}

func (d *DIContainer) GetBureauService() external.BureauService {
	if !d.initialized {
		panic("container not initialized")
	}
	return d.bureauService
}

func (d *DIContainer) GetTaxRegistryService() external.TaxRegistryService {
	if !d.initialized {
		panic("container not initialized")
	}
	return d.taxRegistry
}

func (d *DIContainer) GetEntityRegistryService() external.EntityRegistryService {
	if !d.initialized {
		panic("container not initialized")
	}
	return d.entityRegistry
}
