package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/totegamma/biblion/internal/domain"
	"github.com/totegamma/biblion/internal/infra/database/models"
	"github.com/totegamma/biblion/internal/usecase"
)

const collectionID = "default"

type PublicationRepository struct {
	db *gorm.DB
}

func NewPublicationRepository(db *gorm.DB) *PublicationRepository {
	return &PublicationRepository{db: db}
}

func (r *PublicationRepository) EnsureCollection(ctx context.Context, defaults domain.Collection) (domain.Collection, error) {
	row := models.Collection{
		ID:         collectionID,
		Name:       defaults.Name,
		Symbol:     defaults.Symbol,
		Admin:      defaults.Admin,
		MintPolicy: string(defaults.MintPolicy),
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		DoNothing: true,
	}).Create(&row).Error
	if err != nil {
		return domain.Collection{}, err
	}

	return r.GetCollection(ctx)
}

func (r *PublicationRepository) GetCollection(ctx context.Context) (domain.Collection, error) {
	var row models.Collection
	err := r.db.WithContext(ctx).Where("id = ?", collectionID).Take(&row).Error
	if err != nil {
		return domain.Collection{}, notFound(err, "collection")
	}
	return toCollection(row), nil
}

func (r *PublicationRepository) UpdateCollection(ctx context.Context, commit *domain.Commit, mutate usecase.CollectionMutation) (domain.Collection, domain.Event, error) {
	var (
		result domain.Collection
		event  domain.Event
	)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := recordCommit(tx, commit)
		if err != nil {
			return err
		}

		row, err := lockCollection(tx)
		if err != nil {
			return err
		}

		collection := toCollection(row)
		change, err := mutate(&collection)
		if err != nil {
			return err
		}

		err = tx.Model(&models.Collection{}).
			Where("id = ?", collectionID).
			Updates(map[string]any{
				"admin":       collection.Admin,
				"mint_policy": string(collection.MintPolicy),
			}).Error
		if err != nil {
			return err
		}

		event, err = createEvent(tx, commit, change)
		if err != nil {
			return err
		}

		collection.NextTokenID = uint64(row.NextTokenID)
		result = collection
		return nil
	})

	return result, event, err
}

// Mint allocates the next id under the collection row lock, so concurrent
// mints never observe the same counter.
func (r *PublicationRepository) Mint(ctx context.Context, commit *domain.Commit, token domain.Token, authorize usecase.MintAuthorizer) (domain.Token, domain.Event, error) {
	var event domain.Event

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := recordCommit(tx, commit)
		if err != nil {
			return err
		}

		row, err := lockCollection(tx)
		if err != nil {
			return err
		}

		err = authorize(toCollection(row))
		if err != nil {
			return err
		}

		token.ID = uint64(row.NextTokenID)
		token.MintedAt = time.Now().UTC()
		token.Approved = ""
		token.BurnedAt = nil

		err = tx.Model(&models.Collection{}).
			Where("id = ?", collectionID).
			Update("next_token_id", row.NextTokenID+1).Error
		if err != nil {
			return err
		}

		tokenRow, publicationRow := fromToken(token)
		err = tx.Omit(clause.Associations).Create(&tokenRow).Error
		if err != nil {
			return err
		}
		err = tx.Create(&publicationRow).Error
		if err != nil {
			return err
		}

		id := token.ID
		event, err = createEvent(tx, commit, domain.Event{
			Kind:    domain.EventMinted,
			TokenID: &id,
			From:    token.Creator,
			To:      token.Owner,
			Title:   token.Publication.Title,
			Authors: token.Publication.Authors,
		})
		return err
	})
	if err != nil {
		return domain.Token{}, domain.Event{}, err
	}

	return token, event, nil
}

func (r *PublicationRepository) UpdateToken(ctx context.Context, id uint64, requester string, commit *domain.Commit, mutate usecase.TokenMutation) (domain.Token, domain.Event, error) {
	var (
		result domain.Token
		event  domain.Event
	)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := recordCommit(tx, commit)
		if err != nil {
			return err
		}

		var row models.Token
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND burned = ?", int64(id), false).
			Take(&row).Error
		if err != nil {
			return notFound(err, "publication")
		}

		var publication models.Publication
		err = tx.Where("token_id = ?", row.ID).Take(&publication).Error
		if err != nil {
			return notFound(err, "publication")
		}
		row.Publication = &publication

		var operators int64
		err = tx.Model(&models.Operator{}).
			Where("owner = ? AND operator = ?", row.Owner, requester).
			Count(&operators).Error
		if err != nil {
			return err
		}

		token := toToken(row)
		change, err := mutate(&token, operators > 0)
		if err != nil {
			return err
		}
		token.ID = id
		token.Publication = toToken(row).Publication

		err = tx.Model(&models.Token{}).
			Where("id = ?", row.ID).
			Updates(map[string]any{
				"owner":     token.Owner,
				"approved":  token.Approved,
				"burned":    token.Burned(),
				"burned_at": token.BurnedAt,
			}).Error
		if err != nil {
			return err
		}

		if token.Burned() {
			err = tx.Delete(&models.Publication{}, "token_id = ?", row.ID).Error
			if err != nil {
				return err
			}
			token.Publication = domain.Publication{}
		}

		event, err = createEvent(tx, commit, change)
		if err != nil {
			return err
		}

		result = token
		return nil
	})

	return result, event, err
}

func (r *PublicationRepository) SetApprovalForAll(ctx context.Context, commit *domain.Commit, owner, operator string, approved bool) (domain.Event, error) {
	var event domain.Event

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := recordCommit(tx, commit)
		if err != nil {
			return err
		}

		if approved {
			err = tx.Clauses(clause.OnConflict{
				DoNothing: true,
			}).Create(&models.Operator{Owner: owner, Operator: operator}).Error
		} else {
			err = tx.Delete(&models.Operator{}, "owner = ? AND operator = ?", owner, operator).Error
		}
		if err != nil {
			return err
		}

		event, err = createEvent(tx, commit, domain.Event{
			Kind:     domain.EventApprovalForAll,
			From:     owner,
			To:       operator,
			Approved: &approved,
		})
		return err
	})

	return event, err
}

func (r *PublicationRepository) GetToken(ctx context.Context, id uint64) (domain.Token, error) {
	var row models.Token
	err := r.db.WithContext(ctx).
		Preload("Publication").
		Where("id = ? AND burned = ?", int64(id), false).
		Take(&row).Error
	if err != nil {
		return domain.Token{}, notFound(err, "publication")
	}
	return toToken(row), nil
}

func (r *PublicationRepository) IsOperator(ctx context.Context, owner, operator string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Operator{}).
		Where("owner = ? AND operator = ?", owner, operator).
		Count(&count).Error
	return count > 0, err
}

func (r *PublicationRepository) BalanceOf(ctx context.Context, owner string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Token{}).
		Where("owner = ? AND burned = ?", owner, false).
		Count(&count).Error
	return count, err
}

func (r *PublicationRepository) TokensOf(ctx context.Context, owner string, limit, offset int) ([]domain.Token, error) {
	var rows []models.Token
	err := r.db.WithContext(ctx).
		Preload("Publication").
		Where("owner = ? AND burned = ?", owner, false).
		Order("id ASC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	tokens := make([]domain.Token, 0, len(rows))
	for _, row := range rows {
		tokens = append(tokens, toToken(row))
	}
	return tokens, nil
}

func (r *PublicationRepository) TotalSupply(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Token{}).
		Where("burned = ?", false).
		Count(&count).Error
	return count, err
}

func (r *PublicationRepository) GetEvent(ctx context.Context, id string) (domain.Event, error) {
	var row models.Event
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if err != nil {
		return domain.Event{}, notFound(err, "event")
	}
	return toEvent(row), nil
}

// recordCommit stores the signed document. A conflicting id means the very
// same document was applied before.
func recordCommit(tx *gorm.DB, commit *domain.Commit) error {
	if commit == nil {
		return nil
	}

	result := tx.Clauses(clause.OnConflict{
		DoNothing: true,
	}).Create(&models.Commit{
		ID:       commit.ID,
		Document: commit.Document,
		Proof:    commit.Proof,
		Signer:   commit.Signer,
		Schema:   commit.Schema,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrAlreadyCommitted
	}
	return nil
}

func lockCollection(tx *gorm.DB) (models.Collection, error) {
	var row models.Collection
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", collectionID).
		Take(&row).Error
	if err != nil {
		return models.Collection{}, notFound(err, "collection")
	}
	return row, nil
}

func createEvent(tx *gorm.DB, commit *domain.Commit, event domain.Event) (domain.Event, error) {
	event.ID = uuid.NewString()
	event.CDate = time.Now().UTC()
	if commit != nil {
		event.CommitID = commit.ID
	}

	row := fromEvent(event)
	err := tx.Create(&row).Error
	if err != nil {
		return domain.Event{}, err
	}
	return event, nil
}

func notFound(err error, resource string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.NotFoundError{Resource: resource}
	}
	return err
}

var _ usecase.PublicationRepository = (*PublicationRepository)(nil)
