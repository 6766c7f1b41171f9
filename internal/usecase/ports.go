package usecase

import (
	"context"
	"time"

	"github.com/concrnt/chunkline"

	"github.com/totegamma/biblion/internal/domain"
)

// MintAuthorizer inspects the locked collection before an id is allocated.
type MintAuthorizer func(collection domain.Collection) error

// TokenMutation changes a locked token in place and describes the change.
// operator reports whether the requester is an approved operator of the owner.
type TokenMutation func(token *domain.Token, operator bool) (domain.Event, error)

// CollectionMutation changes the locked collection in place.
type CollectionMutation func(collection *domain.Collection) (domain.Event, error)

// PublicationRepository stores tokens. Every mutating method runs in one
// transaction and records commit, when given, in that same transaction.
type PublicationRepository interface {
	EnsureCollection(ctx context.Context, defaults domain.Collection) (domain.Collection, error)
	GetCollection(ctx context.Context) (domain.Collection, error)
	UpdateCollection(ctx context.Context, commit *domain.Commit, mutate CollectionMutation) (domain.Collection, domain.Event, error)

	Mint(ctx context.Context, commit *domain.Commit, token domain.Token, authorize MintAuthorizer) (domain.Token, domain.Event, error)
	UpdateToken(ctx context.Context, id uint64, requester string, commit *domain.Commit, mutate TokenMutation) (domain.Token, domain.Event, error)
	SetApprovalForAll(ctx context.Context, commit *domain.Commit, owner, operator string, approved bool) (domain.Event, error)

	GetToken(ctx context.Context, id uint64) (domain.Token, error)
	IsOperator(ctx context.Context, owner, operator string) (bool, error)
	BalanceOf(ctx context.Context, owner string) (int64, error)
	TokensOf(ctx context.Context, owner string, limit, offset int) ([]domain.Token, error)
	TotalSupply(ctx context.Context) (int64, error)
	GetEvent(ctx context.Context, id string) (domain.Event, error)
}

// PublicationCache holds token snapshots for the getters.
// Get reports the generation of the token it looked under, and Set stores a
// snapshot under that generation. Invalidate moves the token to a new
// generation, so a snapshot loaded before it is never served afterwards.
type PublicationCache interface {
	Get(ctx context.Context, id uint64) (token domain.Token, generation uint64, ok bool)
	Set(ctx context.Context, token domain.Token, generation uint64)
	Invalidate(ctx context.Context, id uint64)
}

// EventPublisher forwards committed events to realtime listeners.
type EventPublisher interface {
	PublishEvent(ctx context.Context, event domain.Event) error
}

// TimelineRepository serves the local chunkline timelines built from the event log.
type TimelineRepository interface {
	GetManifest(ctx context.Context, uri string) (*chunkline.Manifest, error)
	LookupLocalItrs(ctx context.Context, uris []string, chunkID int64) (map[string]int64, error)
	LoadLocalBody(ctx context.Context, uri string, chunkID int64) ([]chunkline.BodyItem, error)
}

// TimelineGateway merges timelines which may be hosted on other nodes.
type TimelineGateway interface {
	QueryDescending(ctx context.Context, uris []string, until time.Time, limit int) ([]chunkline.BodyItem, error)
}
