package domain

import (
	"time"
)

const (
	MaxTitleLength   = 256
	MaxAuthorsLength = 512
)

type MintPolicy string

const (
	// MintPolicyOwner allows only the collection admin to mint.
	MintPolicyOwner MintPolicy = "owner"
	// MintPolicyOpen allows any account to mint.
	MintPolicyOpen MintPolicy = "open"
)

func ParseMintPolicy(s string) (MintPolicy, error) {
	switch MintPolicy(s) {
	case MintPolicyOwner, MintPolicyOpen:
		return MintPolicy(s), nil
	case "":
		return MintPolicyOwner, nil
	default:
		return "", InvalidInputError{Reason: "unknown mint policy " + s}
	}
}

// Publication holds the descriptive fields of a token. They are fixed at mint time.
type Publication struct {
	Title           string `json:"title"`
	Authors         string `json:"authors"`
	PublicationDate int64  `json:"publicationDate"`
	Identifier      string `json:"identifier"`
	Description     string `json:"description"`
	License         string `json:"license"`
	Field           string `json:"field"`
	Version         string `json:"version"`
	MetadataURL     string `json:"metadataUrl"`
	ImageURL        string `json:"imageUrl"`
	ExternalURL     string `json:"externalUrl"`
}

// Validate enforces the stored length limits. Field contents are not inspected otherwise.
func (p Publication) Validate() error {
	if len(p.Title) > MaxTitleLength {
		return FieldTooLongError{Field: "title", Max: MaxTitleLength, Actual: len(p.Title)}
	}
	if len(p.Authors) > MaxAuthorsLength {
		return FieldTooLongError{Field: "authors", Max: MaxAuthorsLength, Actual: len(p.Authors)}
	}
	return nil
}

// Token is a live publication record and its ownership state.
type Token struct {
	ID          uint64      `json:"id"`
	Owner       string      `json:"owner"`
	Approved    string      `json:"approved,omitempty"`
	Creator     string      `json:"creator"`
	CommitID    string      `json:"commitID,omitempty"`
	MintedAt    time.Time   `json:"mintedAt"`
	BurnedAt    *time.Time  `json:"burnedAt,omitempty"`
	Publication Publication `json:"publication"`
}

func (t Token) Burned() bool {
	return t.BurnedAt != nil
}

// Field returns a single attribute of the token by its public name.
func (t Token) Field(name string) (any, bool) {
	p := t.Publication
	switch name {
	case "id":
		return t.ID, true
	case "owner":
		return t.Owner, true
	case "creator":
		return t.Creator, true
	case "approved":
		return t.Approved, true
	case "title":
		return p.Title, true
	case "authors", "author":
		return p.Authors, true
	case "publicationDate":
		return p.PublicationDate, true
	case "identifier", "isbn", "doi":
		return p.Identifier, true
	case "description":
		return p.Description, true
	case "license":
		return p.License, true
	case "field":
		return p.Field, true
	case "version":
		return p.Version, true
	case "metadataUrl", "tokenURI", "url":
		return p.MetadataURL, true
	case "imageUrl":
		return p.ImageURL, true
	case "externalUrl":
		return p.ExternalURL, true
	default:
		return nil, false
	}
}

// Collection is the deployment wide state: the admin gate and the id allocator.
type Collection struct {
	Name        string     `json:"name"`
	Symbol      string     `json:"symbol"`
	Admin       string     `json:"admin"`
	MintPolicy  MintPolicy `json:"mintPolicy"`
	NextTokenID uint64     `json:"nextTokenID"`
}

// Commit is a verified signed document recorded with the mutation it caused.
type Commit struct {
	ID       string `json:"id"`
	Document string `json:"document"`
	Proof    string `json:"proof"`
	Signer   string `json:"signer"`
	Schema   string `json:"schema"`
}
