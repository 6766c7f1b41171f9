package domain

type Config struct {
	FQDN           string `yaml:"fqdn"`
	PrivateKey     string `yaml:"privatekey"`
	AdminAddress   string `yaml:"adminAddress"`
	MintPolicy     string `yaml:"mintPolicy"` // owner, open
	CollectionName string `yaml:"collectionName"`
	Symbol         string `yaml:"symbol"`
	NodeID         string `yaml:"nodeID"`
}
