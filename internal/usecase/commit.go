package usecase

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"github.com/totegamma/biblion"
	"github.com/totegamma/biblion/internal/domain"
	"github.com/totegamma/biblion/schemas"
)

// Commit verifies a signed document and applies the operation its schema names.
// The signer recovered from the proof is the caller.
func (uc *PublicationUsecase) Commit(ctx context.Context, sd biblion.SignedDocument) (any, error) {
	ctx, span := tracer.Start(ctx, "Publication.Usecase.Commit")
	defer span.End()

	var doc biblion.Document[json.RawMessage]
	err := json.Unmarshal([]byte(sd.Document), &doc)
	if err != nil {
		span.RecordError(err)
		return nil, domain.InvalidInputError{Reason: "malformed document"}
	}

	if doc.Schema == nil || *doc.Schema == "" {
		return nil, domain.InvalidInputError{Reason: "schema is required"}
	}

	commit, err := verify(sd, doc)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	call := Call{Caller: commit.Signer, Commit: &commit}

	switch *doc.Schema {
	case schemas.MintURL:
		value, err := decodeValue[schemas.Mint](doc.Value)
		if err != nil {
			return nil, err
		}
		return uc.Mint(ctx, call, MintInput{
			Recipient: value.Recipient,
			Publication: domain.Publication{
				Title:           value.Title,
				Authors:         value.Authors,
				PublicationDate: value.PublicationDate,
				Identifier:      value.Identifier,
				Description:     value.Description,
				License:         value.License,
				Field:           value.Field,
				Version:         value.Version,
				MetadataURL:     value.MetadataURL,
				ImageURL:        value.ImageURL,
				ExternalURL:     value.ExternalURL,
			},
		})

	case schemas.TransferURL:
		value, err := decodeValue[schemas.Transfer](doc.Value)
		if err != nil {
			return nil, err
		}
		return uc.Transfer(ctx, call, value.TokenID, value.To)

	case schemas.BurnURL:
		value, err := decodeValue[schemas.Burn](doc.Value)
		if err != nil {
			return nil, err
		}
		return uc.Burn(ctx, call, value.TokenID)

	case schemas.ApproveURL:
		value, err := decodeValue[schemas.Approve](doc.Value)
		if err != nil {
			return nil, err
		}
		return uc.Approve(ctx, call, value.TokenID, value.Approved)

	case schemas.ApprovalForAllURL:
		value, err := decodeValue[schemas.ApprovalForAll](doc.Value)
		if err != nil {
			return nil, err
		}
		err = uc.SetApprovalForAll(ctx, call, value.Operator, value.Approved)
		if err != nil {
			return nil, err
		}
		return value, nil

	case schemas.AdminTransferURL:
		value, err := decodeValue[schemas.AdminTransfer](doc.Value)
		if err != nil {
			return nil, err
		}
		return uc.TransferAdmin(ctx, call, value.NewAdmin)

	case schemas.AdminRenounceURL:
		return uc.RenounceAdmin(ctx, call)

	case schemas.MintPolicyURL:
		value, err := decodeValue[schemas.MintPolicy](doc.Value)
		if err != nil {
			return nil, err
		}
		return uc.SetMintPolicy(ctx, call, value.Policy)

	default:
		return nil, domain.InvalidInputError{Reason: "unknown schema " + *doc.Schema}
	}
}

func verify(sd biblion.SignedDocument, doc biblion.Document[json.RawMessage]) (domain.Commit, error) {
	if sd.Proof.Type != biblion.ProofTypeSecp256k1 {
		return domain.Commit{}, domain.InvalidInputError{Reason: "unsupported proof type " + sd.Proof.Type}
	}

	signature, err := hex.DecodeString(strings.TrimPrefix(sd.Proof.Signature, "0x"))
	if err != nil {
		return domain.Commit{}, domain.InvalidInputError{Reason: "malformed signature"}
	}

	signer, err := normalize("signer", doc.Signer)
	if err != nil {
		return domain.Commit{}, err
	}

	err = biblion.VerifySignature([]byte(sd.Document), signature, signer)
	if err != nil {
		return domain.Commit{}, errors.Wrap(domain.ErrUnauthorized, err.Error())
	}

	proof, err := json.Marshal(sd.Proof)
	if err != nil {
		return domain.Commit{}, err
	}

	return domain.Commit{
		ID:       biblion.GetHashHex([]byte(sd.Document)),
		Document: sd.Document,
		Proof:    string(proof),
		Signer:   signer,
		Schema:   *doc.Schema,
	}, nil
}

func decodeValue[T any](raw json.RawMessage) (T, error) {
	var value T
	if len(raw) == 0 {
		return value, domain.InvalidInputError{Reason: "value is required"}
	}
	err := json.Unmarshal(raw, &value)
	if err != nil {
		return value, domain.InvalidInputError{Reason: "malformed value: " + err.Error()}
	}
	return value, nil
}
