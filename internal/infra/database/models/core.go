package models

import (
	"time"
)

// Commit is the verified signed document a mutation came from. ID is the
// keccak256 hex of the document, so a replayed document conflicts.
type Commit struct {
	ID       string    `json:"id" gorm:"primaryKey;type:text"`
	Document string    `json:"document" gorm:"type:text"`
	Proof    string    `json:"proof" gorm:"type:text"`
	Signer   string    `json:"signer" gorm:"type:text;index"`
	Schema   string    `json:"schema" gorm:"type:text"`
	CDate    time.Time `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
}

// Collection is a single row. NextTokenID only grows.
type Collection struct {
	ID          string    `json:"id" gorm:"primaryKey;type:text"`
	Name        string    `json:"name" gorm:"type:text"`
	Symbol      string    `json:"symbol" gorm:"type:text"`
	Admin       string    `json:"admin" gorm:"type:text"`
	MintPolicy  string    `json:"mintPolicy" gorm:"type:text;not null;default:'owner'"`
	NextTokenID int64     `json:"nextTokenID" gorm:"not null;default:0"`
	CDate       time.Time `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
	MDate       time.Time `json:"mdate" gorm:"autoUpdateTime"`
}

// Token keeps its row after burn so the id is never handed out again.
type Token struct {
	ID          int64        `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Owner       string       `json:"owner" gorm:"type:text;index"`
	Approved    string       `json:"approved" gorm:"type:text"`
	Creator     string       `json:"creator" gorm:"type:text;index"`
	CommitID    *string      `json:"commitID" gorm:"type:text"`
	Commit      *Commit      `json:"-" gorm:"foreignKey:CommitID;references:ID;constraint:OnDelete:SET NULL;"`
	Burned      bool         `json:"burned" gorm:"not null;default:false;index"`
	MintedAt    time.Time    `json:"mintedAt" gorm:"type:timestamp with time zone;not null"`
	BurnedAt    *time.Time   `json:"burnedAt" gorm:"type:timestamp with time zone"`
	Publication *Publication `json:"publication" gorm:"foreignKey:TokenID;references:ID;constraint:OnDelete:CASCADE;"`
}

// Publication is deleted when its token burns.
type Publication struct {
	TokenID         int64  `json:"tokenID" gorm:"primaryKey;autoIncrement:false"`
	Title           string `json:"title" gorm:"type:varchar(256)"`
	Authors         string `json:"authors" gorm:"type:varchar(512)"`
	PublicationDate int64  `json:"publicationDate"`
	Identifier      string `json:"identifier" gorm:"type:text;index"`
	Description     string `json:"description" gorm:"type:text"`
	License         string `json:"license" gorm:"type:text"`
	Field           string `json:"field" gorm:"type:text"`
	Version         string `json:"version" gorm:"type:text"`
	MetadataURL     string `json:"metadataUrl" gorm:"type:text"`
	ImageURL        string `json:"imageUrl" gorm:"type:text"`
	ExternalURL     string `json:"externalUrl" gorm:"type:text"`
}

type Operator struct {
	Owner    string    `json:"owner" gorm:"primaryKey;type:text"`
	Operator string    `json:"operator" gorm:"primaryKey;type:text"`
	CDate    time.Time `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
}

type Event struct {
	ID       string    `json:"id" gorm:"primaryKey;type:text"`
	Kind     string    `json:"kind" gorm:"type:text;index"`
	TokenID  *int64    `json:"tokenID" gorm:"index"`
	From     string    `json:"from" gorm:"column:from_address;type:text;index"`
	To       string    `json:"to" gorm:"column:to_address;type:text;index"`
	Title    string    `json:"title" gorm:"type:text"`
	Authors  string    `json:"authors" gorm:"type:text"`
	Approved *bool     `json:"approved"`
	Value    string    `json:"value" gorm:"type:text"`
	CommitID *string   `json:"commitID" gorm:"type:text"`
	CDate    time.Time `json:"cdate" gorm:"type:timestamp with time zone;not null;index"`
}
