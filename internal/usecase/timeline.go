package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/concrnt/chunkline"
)

type TimelineUsecase struct {
	repo    TimelineRepository
	gateway TimelineGateway
}

func NewTimelineUsecase(repo TimelineRepository, gateway TimelineGateway) *TimelineUsecase {
	return &TimelineUsecase{
		repo:    repo,
		gateway: gateway,
	}
}

func (uc *TimelineUsecase) GetManifest(ctx context.Context, uri string) (*chunkline.Manifest, error) {
	return uc.repo.GetManifest(ctx, uri)
}

func (uc *TimelineUsecase) LookupLocalItrs(ctx context.Context, uris []string, chunkID int64) (map[string]int64, error) {
	return uc.repo.LookupLocalItrs(ctx, uris, chunkID)
}

func (uc *TimelineUsecase) LoadLocalBody(ctx context.Context, uri string, chunkID int64) ([]chunkline.BodyItem, error) {
	return uc.repo.LoadLocalBody(ctx, uri, chunkID)
}

func (uc *TimelineUsecase) GetRecent(ctx context.Context, uris []string, until time.Time, limit int) ([]chunkline.BodyItem, error) {
	ctx, span := tracer.Start(ctx, "Timeline.Usecase.GetRecent")
	defer span.End()

	if uc.gateway == nil {
		return nil, fmt.Errorf("timeline gateway not configured")
	}

	items, err := uc.gateway.QueryDescending(ctx, uris, until, limit)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to query descending: %w", err)
	}

	return items, nil
}
