package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
nodeInfo:
  fqdn: books.example.com
  privatekey: 4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318
  mintPolicy: open
server:
  postgresDsn: host=db user=postgres password=postgres dbname=postgres port=5432 sslmode=disable
  redisAddr: redis:6379
  memcachedAddr: memcached:11211
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	conf, err := Load(writeConfig(t, testConfig))
	require.NoError(t, err)

	assert.Equal(t, "books.example.com", conf.NodeInfo.FQDN)
	assert.True(t, strings.HasPrefix(conf.NodeInfo.NodeID, "bibn1"))
	assert.True(t, strings.HasPrefix(conf.NodeInfo.AdminAddress, "bib1"))
	assert.Equal(t, "open", conf.NodeInfo.MintPolicy)
	assert.Equal(t, "PublicationNFT", conf.NodeInfo.CollectionName)
	assert.Equal(t, ":8000", conf.Server.ListenAddr)
	assert.Equal(t, "redis:6379", conf.Server.RedisAddr)

	d := conf.Domain()
	assert.Equal(t, conf.NodeInfo.AdminAddress, d.AdminAddress)
	assert.Equal(t, "PUB", d.Symbol)
}

func TestLoadRejectsBadValues(t *testing.T) {
	_, err := Load(writeConfig(t, "nodeInfo:\n  fqdn: x\n"))
	assert.Error(t, err)

	bad := strings.Replace(testConfig, "mintPolicy: open", "mintPolicy: everyone", 1)
	_, err = Load(writeConfig(t, bad))
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
