package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/concrnt/chunkline"
	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRemote struct {
	manifests map[string]chunkline.Manifest
	resolved  int
	paths     []string
}

func (f *fakeRemote) GetResource(ctx context.Context, uri string, accept string, result any) error {
	f.resolved++
	manifest, ok := f.manifests[uri]
	if !ok {
		return fmt.Errorf("not found")
	}
	raw, err := json.Marshal(manifest)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, result)
}

func (f *fakeRemote) HttpRequest(ctx context.Context, method, host, path string, response any) error {
	f.paths = append(f.paths, host+path)
	raw, err := json.Marshal([]chunkline.BodyItem{{Href: "bib://" + host + "/events/e1", Timestamp: time.Unix(0, 0).UTC()}})
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, response)
}

func (f *fakeRemote) HttpRequestText(ctx context.Context, method, host, path string) (string, error) {
	f.paths = append(f.paths, host+path)
	return "12\n", nil
}

func newResolver(remote *fakeRemote) *resolver {
	return &resolver{client: remote, cache: cache.New(time.Minute, time.Minute)}
}

func TestResolveTimelinesCaches(t *testing.T) {
	uri := "bib://books.example.com/activity"
	remote := &fakeRemote{manifests: map[string]chunkline.Manifest{
		uri: {Version: "1.0", ChunkSize: 600},
	}}
	r := newResolver(remote)

	for range 2 {
		manifests, err := r.ResolveTimelines(context.Background(), []string{uri})
		require.NoError(t, err)
		assert.Equal(t, "1.0", manifests[uri].Version)
	}
	assert.Equal(t, 1, remote.resolved)

	_, err := r.ResolveTimelines(context.Background(), []string{"bib://books.example.com/tokens/9"})
	assert.Error(t, err)
}

func TestLookupAndLoad(t *testing.T) {
	uri := "bib://books.example.com/tokens/3"
	remote := &fakeRemote{manifests: map[string]chunkline.Manifest{
		uri: {
			Version:   "1.0",
			ChunkSize: 600,
			Descending: &chunkline.Endpoint{
				Iterator: "/chunkline/tokens/3/{chunk}/itr",
				Body:     "/chunkline/tokens/3/{chunk}/body",
			},
		},
	}}
	r := newResolver(remote)

	itrs, err := r.LookupChunkItrs(context.Background(), []string{uri}, time.Unix(600*12+5, 0))
	require.NoError(t, err)
	assert.Equal(t, "12", itrs[uri])

	bodies, err := r.LoadChunkBodies(context.Background(), itrs)
	require.NoError(t, err)
	assert.Equal(t, int64(12), bodies[uri].ChunkID)
	require.Len(t, bodies[uri].Items, 1)
	assert.Contains(t, remote.paths, "books.example.com/chunkline/tokens/3/12/body")

	removed, err := r.GetRemovedItems(context.Background(), []string{uri})
	require.NoError(t, err)
	assert.Empty(t, removed[uri])
}
