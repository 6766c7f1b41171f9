package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/concrnt/chunkline"
)

type mockTimelineRepo struct {
	manifestURI string
}

func (m *mockTimelineRepo) GetManifest(ctx context.Context, uri string) (*chunkline.Manifest, error) {
	m.manifestURI = uri
	return &chunkline.Manifest{Version: "1.0"}, nil
}
func (m *mockTimelineRepo) LookupLocalItrs(ctx context.Context, uris []string, chunkID int64) (map[string]int64, error) {
	return map[string]int64{uris[0]: chunkID}, nil
}
func (m *mockTimelineRepo) LoadLocalBody(ctx context.Context, uri string, chunkID int64) ([]chunkline.BodyItem, error) {
	return []chunkline.BodyItem{{Href: uri}}, nil
}

type mockTimelineGateway struct {
	queries [][]string
}

func (m *mockTimelineGateway) QueryDescending(ctx context.Context, uris []string, until time.Time, limit int) ([]chunkline.BodyItem, error) {
	m.queries = append(m.queries, uris)
	return []chunkline.BodyItem{{Href: uris[0]}}, nil
}

func TestTimelineUsecaseGetRecent(t *testing.T) {
	repo := &mockTimelineRepo{}
	gw := &mockTimelineGateway{}
	uc := NewTimelineUsecase(repo, gw)

	uris := []string{"bib://books.example.com/tokens/0"}
	items, err := uc.GetRecent(context.Background(), uris, time.Now(), 5)
	if err != nil {
		t.Fatalf("get recent failed: %v", err)
	}
	if len(items) != 1 || items[0].Href != uris[0] {
		t.Fatalf("unexpected items %+v", items)
	}
	if len(gw.queries) == 0 {
		t.Fatalf("gateway not invoked")
	}
}

func TestTimelineUsecaseWithoutGateway(t *testing.T) {
	uc := NewTimelineUsecase(&mockTimelineRepo{}, nil)
	if _, err := uc.GetRecent(context.Background(), []string{"bib://x/activity"}, time.Now(), 5); err == nil {
		t.Fatalf("expected error without gateway")
	}

	if _, err := uc.GetManifest(context.Background(), "bib://x/activity"); err != nil {
		t.Fatalf("manifest failed: %v", err)
	}
}
