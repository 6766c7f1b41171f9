package config

import (
	"fmt"
	"os"

	"github.com/go-yaml/yaml"

	"github.com/totegamma/biblion"
	"github.com/totegamma/biblion/internal/domain"
)

type Config struct {
	NodeInfo NodeInfo `yaml:"nodeInfo"`
	Server   Server   `yaml:"server"`
}

type NodeInfo struct {
	FQDN           string `yaml:"fqdn"`
	PrivateKey     string `yaml:"privatekey"`
	AdminAddress   string `yaml:"adminAddress"` // defaults to the account of privatekey
	MintPolicy     string `yaml:"mintPolicy"`   // owner, open
	CollectionName string `yaml:"collectionName"`
	Symbol         string `yaml:"symbol"`

	// ---
	NodeID string `yaml:"-"`
}

type Server struct {
	ListenAddr    string `yaml:"listenAddr"`
	PostgresDsn   string `yaml:"postgresDsn"`
	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`
	RedisDB       int    `yaml:"redisDB"`
	MemcachedAddr string `yaml:"memcachedAddr"`
	EnableTrace   bool   `yaml:"enableTrace"`
	TraceEndpoint string `yaml:"traceEndpoint"`
}

func Load(path string) (Config, error) {

	file, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer file.Close()

	var config Config
	err = yaml.NewDecoder(file).Decode(&config)
	if err != nil {
		return Config{}, err
	}

	err = config.complete()
	if err != nil {
		return Config{}, err
	}

	return config, nil
}

func (c *Config) complete() error {
	if c.NodeInfo.PrivateKey == "" {
		return fmt.Errorf("nodeInfo.privatekey is required")
	}

	nodeID, err := biblion.PrivKeyToAddr(c.NodeInfo.PrivateKey, biblion.NodePrefix)
	if err != nil {
		return err
	}
	c.NodeInfo.NodeID = nodeID

	if c.NodeInfo.AdminAddress == "" {
		admin, err := biblion.PrivKeyToAddr(c.NodeInfo.PrivateKey, biblion.AccountPrefix)
		if err != nil {
			return err
		}
		c.NodeInfo.AdminAddress = admin
	} else {
		admin, err := biblion.NormalizeAddress(c.NodeInfo.AdminAddress)
		if err != nil {
			return fmt.Errorf("nodeInfo.adminAddress: %w", err)
		}
		c.NodeInfo.AdminAddress = admin
	}

	policy, err := domain.ParseMintPolicy(c.NodeInfo.MintPolicy)
	if err != nil {
		return err
	}
	c.NodeInfo.MintPolicy = string(policy)

	if c.NodeInfo.CollectionName == "" {
		c.NodeInfo.CollectionName = "PublicationNFT"
	}
	if c.NodeInfo.Symbol == "" {
		c.NodeInfo.Symbol = "PUB"
	}
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = ":8000"
	}

	return nil
}

// Domain returns the node settings used by the usecases and handlers.
func (c Config) Domain() domain.Config {
	return domain.Config{
		FQDN:           c.NodeInfo.FQDN,
		PrivateKey:     c.NodeInfo.PrivateKey,
		AdminAddress:   c.NodeInfo.AdminAddress,
		MintPolicy:     c.NodeInfo.MintPolicy,
		CollectionName: c.NodeInfo.CollectionName,
		Symbol:         c.NodeInfo.Symbol,
		NodeID:         c.NodeInfo.NodeID,
	}
}
