package gateway

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/concrnt/chunkline"
	"github.com/patrickmn/go-cache"

	"github.com/totegamma/biblion"
	"github.com/totegamma/biblion/client"
	"github.com/totegamma/biblion/internal/domain"
	"github.com/totegamma/biblion/internal/usecase"
)

// TimelineGateway merges timelines across nodes. Manifests are resolved
// through the resource endpoint of the hosting node.
type TimelineGateway struct {
	resolver *chunkline.Client
}

func NewTimelineGateway(cl *client.Client) *TimelineGateway {
	r := &resolver{
		client: cl,
		cache:  cache.New(10*time.Minute, 15*time.Minute),
	}
	return &TimelineGateway{
		resolver: chunkline.NewClient(r),
	}
}

func (g *TimelineGateway) QueryDescending(ctx context.Context, uris []string, until time.Time, limit int) ([]chunkline.BodyItem, error) {
	return g.resolver.QueryDescending(ctx, uris, until, limit)
}

type remote interface {
	GetResource(ctx context.Context, uri string, accept string, result any) error
	HttpRequest(ctx context.Context, method, host, path string, response any) error
	HttpRequestText(ctx context.Context, method, host, path string) (string, error)
}

type resolver struct {
	client remote
	cache  *cache.Cache
}

func (r *resolver) ResolveTimelines(ctx context.Context, timelines []string) (map[string]chunkline.Manifest, error) {
	result := make(map[string]chunkline.Manifest)

	for _, tl := range timelines {
		if cached, found := r.cache.Get(tl); found {
			result[tl] = cached.(chunkline.Manifest)
			continue
		}

		var manifest chunkline.Manifest
		err := r.client.GetResource(ctx, tl, domain.AcceptChunkline, &manifest)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve timeline %s: %v", tl, err)
		}
		result[tl] = manifest
		r.cache.Set(tl, manifest, cache.DefaultExpiration)
	}
	return result, nil
}

// GetRemovedItems reports nothing: the event log is append only.
func (r *resolver) GetRemovedItems(ctx context.Context, timelines []string) (map[string][]string, error) {
	result := make(map[string][]string)
	for _, tl := range timelines {
		result[tl] = []string{}
	}
	return result, nil
}

func (r *resolver) LookupChunkItrs(ctx context.Context, timelines []string, until time.Time) (map[string]string, error) {
	manifests, err := r.ResolveTimelines(ctx, timelines)
	if err != nil {
		return nil, err
	}

	results := make(map[string]string)
	for _, tl := range timelines {
		manifest := manifests[tl]
		if manifest.Descending == nil || manifest.Descending.Iterator == "" {
			return nil, fmt.Errorf("timeline %s does not support descending iteration", tl)
		}

		host, _, err := biblion.ParseURI(tl)
		if err != nil {
			return nil, fmt.Errorf("failed to parse timeline URI %s: %v", tl, err)
		}

		result, err := r.client.HttpRequestText(
			ctx,
			"GET",
			host,
			strings.ReplaceAll(manifest.Descending.Iterator, "{chunk}", strconv.FormatInt(manifest.Time2Chunk(until), 10)),
		)
		if err != nil {
			return nil, err
		}
		results[tl] = strings.TrimSpace(result)
	}
	return results, nil
}

func (r *resolver) LoadChunkBodies(ctx context.Context, query map[string]string) (map[string]chunkline.BodyChunk, error) {
	uris := make([]string, 0, len(query))
	for tl := range query {
		uris = append(uris, tl)
	}

	manifests, err := r.ResolveTimelines(ctx, uris)
	if err != nil {
		return nil, err
	}

	result := make(map[string]chunkline.BodyChunk)
	for tl, itr := range query {
		manifest := manifests[tl]
		if manifest.Descending == nil {
			return nil, fmt.Errorf("timeline %s does not support descending iteration", tl)
		}

		host, _, err := biblion.ParseURI(tl)
		if err != nil {
			return nil, fmt.Errorf("failed to parse timeline URI %s: %v", tl, err)
		}

		chunkID, err := strconv.ParseInt(itr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid chunk ID %s: %v", itr, err)
		}

		var items []chunkline.BodyItem
		err = r.client.HttpRequest(
			ctx,
			"GET",
			host,
			strings.ReplaceAll(manifest.Descending.Body, "{chunk}", itr),
			&items,
		)
		if err != nil {
			return nil, err
		}

		result[tl] = chunkline.BodyChunk{
			URI:     tl,
			ChunkID: chunkID,
			Items:   items,
		}
	}
	return result, nil
}

var _ usecase.TimelineGateway = (*TimelineGateway)(nil)
