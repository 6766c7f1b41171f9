// Package usecasetest provides an in-memory PublicationRepository for tests.
package usecasetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/totegamma/biblion/internal/domain"
	"github.com/totegamma/biblion/internal/usecase"
)

type operatorKey struct {
	owner    string
	operator string
}

// MemoryRepository mirrors the transactional behaviour of the postgres
// repository: a failed mutation leaves no state behind.
type MemoryRepository struct {
	mu         sync.Mutex
	collection *domain.Collection
	tokens     map[uint64]domain.Token
	operators  map[operatorKey]bool
	commits    map[string]domain.Commit
	Events     []domain.Event
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		tokens:    make(map[uint64]domain.Token),
		operators: make(map[operatorKey]bool),
		commits:   make(map[string]domain.Commit),
	}
}

func (r *MemoryRepository) EnsureCollection(ctx context.Context, defaults domain.Collection) (domain.Collection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.collection == nil {
		c := defaults
		c.NextTokenID = 0
		r.collection = &c
	}
	return *r.collection, nil
}

func (r *MemoryRepository) GetCollection(ctx context.Context) (domain.Collection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.collection == nil {
		return domain.Collection{}, domain.NotFoundError{Resource: "collection"}
	}
	return *r.collection, nil
}

func (r *MemoryRepository) checkCommit(commit *domain.Commit) error {
	if commit == nil {
		return nil
	}
	if _, ok := r.commits[commit.ID]; ok {
		return domain.ErrAlreadyCommitted
	}
	return nil
}

func (r *MemoryRepository) record(commit *domain.Commit, event domain.Event) domain.Event {
	if commit != nil {
		r.commits[commit.ID] = *commit
		event.CommitID = commit.ID
	}
	event.ID = uuid.NewString()
	event.CDate = time.Now().UTC()
	r.Events = append(r.Events, event)
	return event
}

func (r *MemoryRepository) UpdateCollection(ctx context.Context, commit *domain.Commit, mutate usecase.CollectionMutation) (domain.Collection, domain.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkCommit(commit); err != nil {
		return domain.Collection{}, domain.Event{}, err
	}
	if r.collection == nil {
		return domain.Collection{}, domain.Event{}, domain.NotFoundError{Resource: "collection"}
	}

	updated := *r.collection
	event, err := mutate(&updated)
	if err != nil {
		return domain.Collection{}, domain.Event{}, err
	}
	updated.NextTokenID = r.collection.NextTokenID
	r.collection = &updated

	return updated, r.record(commit, event), nil
}

func (r *MemoryRepository) Mint(ctx context.Context, commit *domain.Commit, token domain.Token, authorize usecase.MintAuthorizer) (domain.Token, domain.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkCommit(commit); err != nil {
		return domain.Token{}, domain.Event{}, err
	}
	if r.collection == nil {
		return domain.Token{}, domain.Event{}, domain.NotFoundError{Resource: "collection"}
	}
	if err := authorize(*r.collection); err != nil {
		return domain.Token{}, domain.Event{}, err
	}

	token.ID = r.collection.NextTokenID
	token.MintedAt = time.Now().UTC()
	token.BurnedAt = nil
	token.Approved = ""
	r.collection.NextTokenID++
	r.tokens[token.ID] = token

	id := token.ID
	event := r.record(commit, domain.Event{
		Kind:    domain.EventMinted,
		TokenID: &id,
		From:    token.Creator,
		To:      token.Owner,
		Title:   token.Publication.Title,
		Authors: token.Publication.Authors,
	})
	return token, event, nil
}

func (r *MemoryRepository) UpdateToken(ctx context.Context, id uint64, requester string, commit *domain.Commit, mutate usecase.TokenMutation) (domain.Token, domain.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkCommit(commit); err != nil {
		return domain.Token{}, domain.Event{}, err
	}

	current, ok := r.tokens[id]
	if !ok || current.Burned() {
		return domain.Token{}, domain.Event{}, domain.NotFoundError{Resource: "publication"}
	}

	updated := current
	event, err := mutate(&updated, r.operators[operatorKey{current.Owner, requester}])
	if err != nil {
		return domain.Token{}, domain.Event{}, err
	}
	updated.ID = current.ID
	updated.Publication = current.Publication

	if updated.Burned() {
		updated.Publication = domain.Publication{}
	}
	r.tokens[id] = updated

	return updated, r.record(commit, event), nil
}

func (r *MemoryRepository) SetApprovalForAll(ctx context.Context, commit *domain.Commit, owner, operator string, approved bool) (domain.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkCommit(commit); err != nil {
		return domain.Event{}, err
	}

	key := operatorKey{owner, operator}
	if approved {
		r.operators[key] = true
	} else {
		delete(r.operators, key)
	}

	return r.record(commit, domain.Event{
		Kind:     domain.EventApprovalForAll,
		From:     owner,
		To:       operator,
		Approved: &approved,
	}), nil
}

func (r *MemoryRepository) GetToken(ctx context.Context, id uint64) (domain.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	token, ok := r.tokens[id]
	if !ok || token.Burned() {
		return domain.Token{}, domain.NotFoundError{Resource: "publication"}
	}
	return token, nil
}

func (r *MemoryRepository) IsOperator(ctx context.Context, owner, operator string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.operators[operatorKey{owner, operator}], nil
}

func (r *MemoryRepository) live(owner string) []domain.Token {
	var result []domain.Token
	for _, token := range r.tokens {
		if token.Burned() {
			continue
		}
		if owner != "" && token.Owner != owner {
			continue
		}
		result = append(result, token)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

func (r *MemoryRepository) BalanceOf(ctx context.Context, owner string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.live(owner))), nil
}

func (r *MemoryRepository) TokensOf(ctx context.Context, owner string, limit, offset int) ([]domain.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tokens := r.live(owner)
	if offset >= len(tokens) {
		return []domain.Token{}, nil
	}
	tokens = tokens[offset:]
	if limit < len(tokens) {
		tokens = tokens[:limit]
	}
	return tokens, nil
}

func (r *MemoryRepository) TotalSupply(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.live(""))), nil
}

func (r *MemoryRepository) GetEvent(ctx context.Context, id string) (domain.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, event := range r.Events {
		if event.ID == id {
			return event, nil
		}
	}
	return domain.Event{}, domain.NotFoundError{Resource: "event"}
}

var _ usecase.PublicationRepository = (*MemoryRepository)(nil)
