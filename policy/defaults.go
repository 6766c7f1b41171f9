package policy

import (
	_ "embed"
	"encoding/json"
	"fmt"
)

const (
	ActionMint     = "publication.mint"
	ActionTransfer = "publication.transfer"
	ActionBurn     = "publication.burn"
	ActionApprove  = "publication.approve"
	ActionAdmin    = "collection.admin"
)

//go:embed publication.json
var publicationPolicy []byte

// Publication returns the built-in policy document of the publication collection.
func Publication() PolicyDocument {
	doc, err := Parse(publicationPolicy)
	if err != nil {
		panic(err)
	}
	return doc
}

func Parse(raw []byte) (PolicyDocument, error) {
	var doc PolicyDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return PolicyDocument{}, fmt.Errorf("invalid policy document: %w", err)
	}
	if _, ok := doc.Versions[CurrentVersion]; !ok {
		return PolicyDocument{}, fmt.Errorf("policy %s has no version %s", doc.Name, CurrentVersion)
	}
	return doc, nil
}
