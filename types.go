package biblion

import (
	"time"
)

const (
	ProofTypeSecp256k1 = "secp256k1"
)

// Document is the signed payload of a commit. Schema selects the operation
// and Value carries its arguments.
type Document[T any] struct {
	Value T `json:"value"`

	Signer string `json:"signer"`

	Schema *string `json:"schema,omitempty"`

	CreatedAt time.Time `json:"createdAt"`

	Memo *string `json:"memo,omitempty"`
}

type Proof struct {
	Type      string `json:"type"`
	Signature string `json:"signature"`
}

type SignedDocument struct {
	Document string `json:"document"`
	Proof    Proof  `json:"proof"`
}

type Endpoint struct {
	Template string    `json:"template"`
	Method   string    `json:"method"`
	Query    *[]string `json:"query,omitempty"`
}

type WellKnownBiblion struct {
	Version    string              `json:"version"`
	Domain     string              `json:"domain"`
	NodeID     string              `json:"nodeID"`
	Collection string              `json:"collection"`
	Endpoints  map[string]Endpoint `json:"endpoints"`
}
