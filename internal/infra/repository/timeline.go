package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/concrnt/chunkline"
	"gorm.io/gorm"

	"github.com/totegamma/biblion"
	"github.com/totegamma/biblion/internal/domain"
	"github.com/totegamma/biblion/internal/infra/database/models"
	"github.com/totegamma/biblion/internal/usecase"
)

const (
	chunkSize        = 600
	defaultChunkSize = 32
)

// TimelineRepository exposes the event log as chunkline timelines: one per
// token and one for the whole collection.
type TimelineRepository struct {
	db   *gorm.DB
	fqdn string
}

func NewTimelineRepository(db *gorm.DB, fqdn string) *TimelineRepository {
	return &TimelineRepository{db: db, fqdn: fqdn}
}

// scope narrows the events table to the timeline named by uri.
func (r *TimelineRepository) scope(uri string) (func(*gorm.DB) *gorm.DB, error) {
	host, key, err := biblion.ParseURI(uri)
	if err != nil {
		return nil, domain.InvalidInputError{Reason: err.Error()}
	}
	if host != r.fqdn {
		return nil, domain.NotFoundError{Resource: "timeline"}
	}

	if key == biblion.ActivityKey {
		return func(db *gorm.DB) *gorm.DB { return db }, nil
	}

	id, ok := biblion.ParseTokenKey(key)
	if !ok {
		return nil, domain.NotFoundError{Resource: "timeline"}
	}
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("token_id = ?", int64(id))
	}, nil
}

func (r *TimelineRepository) GetManifest(ctx context.Context, uri string) (*chunkline.Manifest, error) {
	scope, err := r.scope(uri)
	if err != nil {
		return nil, err
	}

	_, key, _ := biblion.ParseURI(uri)

	var first models.Event
	err = r.db.WithContext(ctx).
		Scopes(scope).
		Order("c_date ASC").
		Limit(1).
		Take(&first).Error
	if err != nil {
		return nil, notFound(err, "timeline")
	}

	metadata := map[string]any{"kind": "activity"}
	if id, ok := biblion.ParseTokenKey(key); ok {
		metadata = map[string]any{"kind": "publication", "tokenId": id}
		if first.Title != "" {
			metadata["title"] = first.Title
		}
	}
	serialized, err := json.Marshal(metadata)
	if err != nil {
		return nil, err
	}

	return &chunkline.Manifest{
		Version:    "1.0",
		ChunkSize:  chunkSize,
		FirstChunk: first.CDate.Unix() / chunkSize,
		Descending: &chunkline.Endpoint{
			Iterator: "/chunkline/" + key + "/{chunk}/itr",
			Body:     "/chunkline/" + key + "/{chunk}/body",
		},
		Metadata: string(serialized),
	}, nil
}

func (r *TimelineRepository) LookupLocalItrs(ctx context.Context, uris []string, chunkID int64) (map[string]int64, error) {
	cutoff := time.Unix((chunkID+1)*chunkSize, 0)

	type TimelineRow struct {
		MaxCDate *time.Time `gorm:"column:max_c_date"`
	}

	lookup := make(map[string]int64)
	for _, uri := range uris {
		scope, err := r.scope(uri)
		if err != nil {
			continue
		}

		var row TimelineRow
		err = r.db.WithContext(ctx).
			Model(&models.Event{}).
			Scopes(scope).
			Where("c_date <= ?", cutoff).
			Select("MAX(c_date) AS max_c_date").
			Scan(&row).Error
		if err != nil {
			return nil, err
		}
		if row.MaxCDate == nil {
			continue
		}
		lookup[uri] = row.MaxCDate.Unix() / chunkSize
	}
	return lookup, nil
}

func (r *TimelineRepository) LoadLocalBody(ctx context.Context, uri string, chunkID int64) ([]chunkline.BodyItem, error) {
	scope, err := r.scope(uri)
	if err != nil {
		return nil, err
	}

	chunkDate := time.Unix((chunkID+1)*chunkSize, 0)
	prevChunkDate := time.Unix((chunkID-1)*chunkSize, 0)

	var events []models.Event
	err = r.db.WithContext(ctx).
		Scopes(scope).
		Where("c_date <= ?", chunkDate).
		Order("c_date DESC").
		Limit(defaultChunkSize).
		Find(&events).Error
	if err != nil {
		return nil, err
	}

	// a busy chunk holds more than one page, return it whole
	if len(events) == defaultChunkSize && events[len(events)-1].CDate.After(prevChunkDate) {
		err = r.db.WithContext(ctx).
			Scopes(scope).
			Where("c_date <= ? AND c_date > ?", chunkDate, prevChunkDate).
			Order("c_date DESC").
			Find(&events).Error
		if err != nil {
			return nil, err
		}
	}

	items := make([]chunkline.BodyItem, 0, len(events))
	for _, event := range events {
		items = append(items, chunkline.BodyItem{
			Timestamp:   event.CDate,
			Href:        biblion.ComposeURI(r.fqdn, biblion.EventKey(event.ID)),
			ContentType: domain.ContentTypeEvent,
		})
	}
	return items, nil
}

var _ usecase.TimelineRepository = (*TimelineRepository)(nil)
