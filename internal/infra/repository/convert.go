package repository

import (
	"github.com/totegamma/biblion/internal/domain"
	"github.com/totegamma/biblion/internal/infra/database/models"
)

func toCollection(row models.Collection) domain.Collection {
	return domain.Collection{
		Name:        row.Name,
		Symbol:      row.Symbol,
		Admin:       row.Admin,
		MintPolicy:  domain.MintPolicy(row.MintPolicy),
		NextTokenID: uint64(row.NextTokenID),
	}
}

func toToken(row models.Token) domain.Token {
	token := domain.Token{
		ID:       uint64(row.ID),
		Owner:    row.Owner,
		Approved: row.Approved,
		Creator:  row.Creator,
		MintedAt: row.MintedAt,
		BurnedAt: row.BurnedAt,
	}
	if row.CommitID != nil {
		token.CommitID = *row.CommitID
	}
	if p := row.Publication; p != nil {
		token.Publication = domain.Publication{
			Title:           p.Title,
			Authors:         p.Authors,
			PublicationDate: p.PublicationDate,
			Identifier:      p.Identifier,
			Description:     p.Description,
			License:         p.License,
			Field:           p.Field,
			Version:         p.Version,
			MetadataURL:     p.MetadataURL,
			ImageURL:        p.ImageURL,
			ExternalURL:     p.ExternalURL,
		}
	}
	return token
}

func fromToken(token domain.Token) (models.Token, models.Publication) {
	row := models.Token{
		ID:       int64(token.ID),
		Owner:    token.Owner,
		Approved: token.Approved,
		Creator:  token.Creator,
		Burned:   token.Burned(),
		MintedAt: token.MintedAt,
		BurnedAt: token.BurnedAt,
	}
	if token.CommitID != "" {
		commitID := token.CommitID
		row.CommitID = &commitID
	}

	p := token.Publication
	publication := models.Publication{
		TokenID:         int64(token.ID),
		Title:           p.Title,
		Authors:         p.Authors,
		PublicationDate: p.PublicationDate,
		Identifier:      p.Identifier,
		Description:     p.Description,
		License:         p.License,
		Field:           p.Field,
		Version:         p.Version,
		MetadataURL:     p.MetadataURL,
		ImageURL:        p.ImageURL,
		ExternalURL:     p.ExternalURL,
	}
	return row, publication
}

func toEvent(row models.Event) domain.Event {
	event := domain.Event{
		ID:       row.ID,
		Kind:     domain.EventKind(row.Kind),
		From:     row.From,
		To:       row.To,
		Title:    row.Title,
		Authors:  row.Authors,
		Approved: row.Approved,
		Value:    row.Value,
		CDate:    row.CDate,
	}
	if row.TokenID != nil {
		id := uint64(*row.TokenID)
		event.TokenID = &id
	}
	if row.CommitID != nil {
		event.CommitID = *row.CommitID
	}
	return event
}

func fromEvent(event domain.Event) models.Event {
	row := models.Event{
		ID:       event.ID,
		Kind:     string(event.Kind),
		From:     event.From,
		To:       event.To,
		Title:    event.Title,
		Authors:  event.Authors,
		Approved: event.Approved,
		Value:    event.Value,
		CDate:    event.CDate,
	}
	if event.TokenID != nil {
		id := int64(*event.TokenID)
		row.TokenID = &id
	}
	if event.CommitID != "" {
		commitID := event.CommitID
		row.CommitID = &commitID
	}
	return row
}
