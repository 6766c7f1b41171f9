package domain

import "time"

type EventKind string

const (
	EventMinted           EventKind = "Minted"
	EventTransfer         EventKind = "Transfer"
	EventApproval         EventKind = "Approval"
	EventApprovalForAll   EventKind = "ApprovalForAll"
	EventBurned           EventKind = "Burned"
	EventAdminTransferred EventKind = "AdminTransferred"
	EventMintPolicy       EventKind = "MintPolicyChanged"
)

// Event is an entry of the append-only notification log.
type Event struct {
	ID       string    `json:"id"`
	Kind     EventKind `json:"kind"`
	TokenID  *uint64   `json:"tokenId,omitempty"`
	From     string    `json:"from,omitempty"`
	To       string    `json:"to,omitempty"`
	Title    string    `json:"title,omitempty"`
	Authors  string    `json:"authors,omitempty"`
	Approved *bool     `json:"approved,omitempty"`
	Value    string    `json:"value,omitempty"`
	CommitID string    `json:"commitID,omitempty"`
	CDate    time.Time `json:"cdate"`
}
