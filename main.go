package main

import (
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/credik/underwrite/agent"
	"github.com/credik/underwrite/config"
	"github.com/credik/underwrite/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type cli struct {
	cfg config.Config
}

func setupFlags(cmd *cobra.Command) error {
	cmd.Flags().String("config-file", "", "Path to config file.")
	cmd.Flags().String("redis-addr", "localhost:6379", "comma separated list of redis host:port")
	cmd.Flags().String("namespace", "underwrite", "namespace used in storage")
	cmd.Flags().Int("http-port", 8080, "http port for rest endpoints")
	cmd.Flags().String("storage-impl", "redis", "implementation of checkpoint storage")
	cmd.Flags().String("log-level", "info", "log level")
	cmd.Flags().String("document-service-url", "http://localhost:8001", "document processing service url")
	cmd.Flags().String("document-service-key", "", "document processing service api key")
	cmd.Flags().String("bureau-service-url", "https://api.bureau.example.com", "credit bureau service url")
	cmd.Flags().String("bureau-service-key", "", "credit bureau api key")
	cmd.Flags().String("tax-registry-url", "https://api.taxregistry.example.com", "tax registry service url")
	cmd.Flags().String("tax-registry-key", "", "tax registry api key")
	cmd.Flags().String("entity-registry-url", "https://api.entityregistry.example.com", "entity registry service url")
	cmd.Flags().String("entity-registry-key", "", "entity registry api key")
	cmd.Flags().Int("external-call-timeout", 30, "timeout in seconds for external collaborator calls")
	cmd.Flags().Int("record-cache-ttl", 300, "seconds a finished record stays cached")
	return viper.BindPFlags(cmd.Flags())
}

func (c *cli) setupConfig(cmd *cobra.Command, args []string) error {
	configFile, err := cmd.Flags().GetString("config-file")
	if err != nil {
		return err
	}
	viper.SetConfigFile(configFile)

	if err = viper.ReadInConfig(); err != nil {
		// it's ok if config file doesn't exist
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
	}

	c.cfg.RedisConfig.Addrs = strings.Split(viper.GetString("redis-addr"), ",")
	c.cfg.RedisConfig.Namespace = viper.GetString("namespace")
	c.cfg.HttpPort = viper.GetInt("http-port")
	c.cfg.StorageType = config.StorageType(viper.GetString("storage-impl"))
	c.cfg.LogLevel = viper.GetString("log-level")
	c.cfg.DocumentServiceUrl = viper.GetString("document-service-url")
	c.cfg.DocumentServiceKey = viper.GetString("document-service-key")
	c.cfg.BureauServiceUrl = viper.GetString("bureau-service-url")
	c.cfg.BureauServiceKey = viper.GetString("bureau-service-key")
	c.cfg.TaxRegistryUrl = viper.GetString("tax-registry-url")
	c.cfg.TaxRegistryKey = viper.GetString("tax-registry-key")
	c.cfg.EntityRegistryUrl = viper.GetString("entity-registry-url")
	c.cfg.EntityRegistryKey = viper.GetString("entity-registry-key")
	c.cfg.ExternalCallTimeout = viper.GetInt("external-call-timeout")
	c.cfg.RecordCacheTtlSecond = viper.GetInt("record-cache-ttl")
	return nil
}

func (c *cli) run(cmd *cobra.Command, args []string) error {
	logger.Configure(c.cfg.LogLevel)
	a, err := agent.New(c.cfg)
	if err != nil {
		return err
	}
	if err := a.Start(); err != nil {
		return err
	}
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	return a.Shutdown()
}

func main() {
	cli := &cli{}

	cmd := &cobra.Command{
		Use:     "underwrite",
		PreRunE: cli.setupConfig,
		RunE:    cli.run,
	}

	if err := setupFlags(cmd); err != nil {
		log.Fatal(err)
	}

	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
