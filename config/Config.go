package config

type StorageType string

const STORAGE_TYPE_REDIS StorageType = "redis"
const STORAGE_TYPE_INMEM StorageType = "memory"

type Config struct {
	RedisConfig          RedisStorageConfig
	HttpPort             int
	StorageType          StorageType
	LogLevel             string
	DocumentServiceUrl   string
	DocumentServiceKey   string
	BureauServiceUrl     string
	BureauServiceKey     string
	TaxRegistryUrl       string
	TaxRegistryKey       string
	EntityRegistryUrl    string
	EntityRegistryKey    string
	ExternalCallTimeout  int
	RecordCacheTtlSecond int
}

type RedisStorageConfig struct {
	Addrs     []string
	Namespace string
}
