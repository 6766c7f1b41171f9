package schemas

const (
	MintURL           string = "https://schema.biblion.dev/publication-mint.json"
	TransferURL       string = "https://schema.biblion.dev/publication-transfer.json"
	BurnURL           string = "https://schema.biblion.dev/publication-burn.json"
	ApproveURL        string = "https://schema.biblion.dev/publication-approve.json"
	ApprovalForAllURL string = "https://schema.biblion.dev/approval-for-all.json"
	AdminTransferURL  string = "https://schema.biblion.dev/admin-transfer.json"
	AdminRenounceURL  string = "https://schema.biblion.dev/admin-renounce.json"
	MintPolicyURL     string = "https://schema.biblion.dev/mint-policy.json"
)

type Mint struct {
	Recipient       string `json:"recipient"`
	Title           string `json:"title"`
	Authors         string `json:"authors"`
	PublicationDate int64  `json:"publicationDate"`
	Identifier      string `json:"identifier"`
	Description     string `json:"description,omitempty"`
	License         string `json:"license,omitempty"`
	Field           string `json:"field,omitempty"`
	Version         string `json:"version,omitempty"`
	MetadataURL     string `json:"metadataUrl"`
	ImageURL        string `json:"imageUrl,omitempty"`
	ExternalURL     string `json:"externalUrl,omitempty"`
}

type Transfer struct {
	TokenID uint64 `json:"tokenId"`
	To      string `json:"to"`
}

type Burn struct {
	TokenID uint64 `json:"tokenId"`
}

// Approve sets the single token approval. An empty Approved clears it.
type Approve struct {
	TokenID  uint64 `json:"tokenId"`
	Approved string `json:"approved"`
}

type ApprovalForAll struct {
	Operator string `json:"operator"`
	Approved bool   `json:"approved"`
}

type AdminTransfer struct {
	NewAdmin string `json:"newAdmin"`
}

type AdminRenounce struct{}

type MintPolicy struct {
	Policy string `json:"policy"`
}
