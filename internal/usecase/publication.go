package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/totegamma/biblion"
	"github.com/totegamma/biblion/internal/domain"
	"github.com/totegamma/biblion/policy"
)

var tracer = otel.Tracer("usecase")

// Call identifies who invokes an operation. Commit is the signed document the
// operation came from, nil for internal calls.
type Call struct {
	Caller string
	Commit *domain.Commit
}

type MintInput struct {
	Recipient   string
	Publication domain.Publication
}

type PublicationUsecase struct {
	repo      PublicationRepository
	cache     PublicationCache
	publisher EventPublisher
	policy    policy.PolicyDocument
}

func NewPublicationUsecase(
	repo PublicationRepository,
	cache PublicationCache,
	publisher EventPublisher,
	policydoc policy.PolicyDocument,
) *PublicationUsecase {
	return &PublicationUsecase{
		repo:      repo,
		cache:     cache,
		publisher: publisher,
		policy:    policydoc,
	}
}

// Init creates the collection on first start. An existing collection is left untouched.
func (uc *PublicationUsecase) Init(ctx context.Context, config domain.Config) (domain.Collection, error) {
	mintPolicy, err := domain.ParseMintPolicy(config.MintPolicy)
	if err != nil {
		return domain.Collection{}, err
	}

	return uc.repo.EnsureCollection(ctx, domain.Collection{
		Name:       config.CollectionName,
		Symbol:     config.Symbol,
		Admin:      config.AdminAddress,
		MintPolicy: mintPolicy,
	})
}

func (uc *PublicationUsecase) Mint(ctx context.Context, call Call, input MintInput) (domain.Token, error) {
	ctx, span := tracer.Start(ctx, "Publication.Usecase.Mint")
	defer span.End()

	caller, err := normalize("caller", call.Caller)
	if err != nil {
		span.RecordError(err)
		return domain.Token{}, err
	}

	recipient, err := normalize("recipient", input.Recipient)
	if err != nil {
		span.RecordError(err)
		return domain.Token{}, err
	}

	err = input.Publication.Validate()
	if err != nil {
		span.RecordError(err)
		return domain.Token{}, err
	}

	token := domain.Token{
		Owner:       recipient,
		Creator:     caller,
		Publication: input.Publication,
	}
	if call.Commit != nil {
		token.CommitID = call.Commit.ID
	}

	minted, event, err := uc.repo.Mint(ctx, call.Commit, token, func(collection domain.Collection) error {
		return uc.authorize(policy.ActionMint, policy.RequestContext{
			Requester: caller,
			Admin:     collection.Admin,
			Params: map[string]any{
				"mintPolicy": string(collection.MintPolicy),
			},
		})
	})
	if err != nil {
		span.RecordError(err)
		return domain.Token{}, errors.Wrap(err, "mint failed")
	}

	span.SetAttributes(attribute.Int64("TokenID", int64(minted.ID)))
	uc.publish(ctx, event)

	return minted, nil
}

func (uc *PublicationUsecase) Transfer(ctx context.Context, call Call, id uint64, to string) (domain.Token, error) {
	ctx, span := tracer.Start(ctx, "Publication.Usecase.Transfer")
	defer span.End()
	span.SetAttributes(attribute.Int64("TokenID", int64(id)))

	caller, err := normalize("caller", call.Caller)
	if err != nil {
		span.RecordError(err)
		return domain.Token{}, err
	}

	recipient, err := normalize("to", to)
	if err != nil {
		span.RecordError(err)
		return domain.Token{}, err
	}

	token, event, err := uc.repo.UpdateToken(ctx, id, caller, call.Commit, func(token *domain.Token, operator bool) (domain.Event, error) {
		err := uc.authorize(policy.ActionTransfer, tokenRequest(caller, *token, operator))
		if err != nil {
			return domain.Event{}, err
		}

		from := token.Owner
		token.Owner = recipient
		token.Approved = ""

		return domain.Event{
			Kind:    domain.EventTransfer,
			TokenID: &token.ID,
			From:    from,
			To:      recipient,
		}, nil
	})
	if err != nil {
		span.RecordError(err)
		return domain.Token{}, errors.Wrap(err, "transfer failed")
	}

	uc.invalidate(ctx, id)
	uc.publish(ctx, event)

	return token, nil
}

// Burn removes the token for good. Only the owner may burn, and the id stays allocated.
func (uc *PublicationUsecase) Burn(ctx context.Context, call Call, id uint64) (domain.Token, error) {
	ctx, span := tracer.Start(ctx, "Publication.Usecase.Burn")
	defer span.End()
	span.SetAttributes(attribute.Int64("TokenID", int64(id)))

	caller, err := normalize("caller", call.Caller)
	if err != nil {
		span.RecordError(err)
		return domain.Token{}, err
	}

	token, event, err := uc.repo.UpdateToken(ctx, id, caller, call.Commit, func(token *domain.Token, operator bool) (domain.Event, error) {
		err := uc.authorize(policy.ActionBurn, tokenRequest(caller, *token, operator))
		if err != nil {
			return domain.Event{}, err
		}

		now := time.Now().UTC()
		token.BurnedAt = &now
		token.Approved = ""

		return domain.Event{
			Kind:    domain.EventBurned,
			TokenID: &token.ID,
			From:    token.Owner,
		}, nil
	})
	if err != nil {
		span.RecordError(err)
		return domain.Token{}, errors.Wrap(err, "burn failed")
	}

	uc.invalidate(ctx, id)
	uc.publish(ctx, event)

	return token, nil
}

// Approve grants approved the right to transfer one token. An empty
// approved clears the approval.
func (uc *PublicationUsecase) Approve(ctx context.Context, call Call, id uint64, approved string) (domain.Token, error) {
	ctx, span := tracer.Start(ctx, "Publication.Usecase.Approve")
	defer span.End()

	caller, err := normalize("caller", call.Caller)
	if err != nil {
		span.RecordError(err)
		return domain.Token{}, err
	}

	if approved != "" {
		approved, err = normalize("approved", approved)
		if err != nil {
			span.RecordError(err)
			return domain.Token{}, err
		}
	}

	token, event, err := uc.repo.UpdateToken(ctx, id, caller, call.Commit, func(token *domain.Token, operator bool) (domain.Event, error) {
		err := uc.authorize(policy.ActionApprove, tokenRequest(caller, *token, operator))
		if err != nil {
			return domain.Event{}, err
		}
		if approved == token.Owner {
			return domain.Event{}, domain.InvalidInputError{Reason: "approval to current owner"}
		}

		token.Approved = approved

		return domain.Event{
			Kind:    domain.EventApproval,
			TokenID: &token.ID,
			From:    token.Owner,
			To:      approved,
		}, nil
	})
	if err != nil {
		span.RecordError(err)
		return domain.Token{}, errors.Wrap(err, "approve failed")
	}

	uc.invalidate(ctx, id)
	uc.publish(ctx, event)

	return token, nil
}

// SetApprovalForAll lets operator manage every token of the caller.
func (uc *PublicationUsecase) SetApprovalForAll(ctx context.Context, call Call, operator string, approved bool) error {
	ctx, span := tracer.Start(ctx, "Publication.Usecase.SetApprovalForAll")
	defer span.End()

	caller, err := normalize("caller", call.Caller)
	if err != nil {
		span.RecordError(err)
		return err
	}

	operator, err = normalize("operator", operator)
	if err != nil {
		span.RecordError(err)
		return err
	}

	if operator == caller {
		err := domain.InvalidInputError{Reason: "approve to caller"}
		span.RecordError(err)
		return err
	}

	event, err := uc.repo.SetApprovalForAll(ctx, call.Commit, caller, operator, approved)
	if err != nil {
		span.RecordError(err)
		return errors.Wrap(err, "set approval for all failed")
	}

	uc.publish(ctx, event)
	return nil
}

func (uc *PublicationUsecase) TransferAdmin(ctx context.Context, call Call, newAdmin string) (domain.Collection, error) {
	newAdmin, err := normalize("newAdmin", newAdmin)
	if err != nil {
		return domain.Collection{}, err
	}
	return uc.updateCollection(ctx, call, func(collection *domain.Collection) (domain.Event, error) {
		from := collection.Admin
		collection.Admin = newAdmin
		return domain.Event{Kind: domain.EventAdminTransferred, From: from, To: newAdmin}, nil
	})
}

// RenounceAdmin leaves the collection without an admin. Owner gated minting is
// impossible afterwards.
func (uc *PublicationUsecase) RenounceAdmin(ctx context.Context, call Call) (domain.Collection, error) {
	return uc.updateCollection(ctx, call, func(collection *domain.Collection) (domain.Event, error) {
		from := collection.Admin
		collection.Admin = ""
		return domain.Event{Kind: domain.EventAdminTransferred, From: from}, nil
	})
}

func (uc *PublicationUsecase) SetMintPolicy(ctx context.Context, call Call, value string) (domain.Collection, error) {
	mintPolicy, err := domain.ParseMintPolicy(value)
	if err != nil {
		return domain.Collection{}, err
	}
	return uc.updateCollection(ctx, call, func(collection *domain.Collection) (domain.Event, error) {
		collection.MintPolicy = mintPolicy
		return domain.Event{Kind: domain.EventMintPolicy, From: collection.Admin, Value: string(mintPolicy)}, nil
	})
}

func (uc *PublicationUsecase) updateCollection(ctx context.Context, call Call, mutate CollectionMutation) (domain.Collection, error) {
	ctx, span := tracer.Start(ctx, "Publication.Usecase.UpdateCollection")
	defer span.End()

	caller, err := normalize("caller", call.Caller)
	if err != nil {
		span.RecordError(err)
		return domain.Collection{}, err
	}

	collection, event, err := uc.repo.UpdateCollection(ctx, call.Commit, func(collection *domain.Collection) (domain.Event, error) {
		err := uc.authorize(policy.ActionAdmin, policy.RequestContext{
			Requester: caller,
			Admin:     collection.Admin,
		})
		if err != nil {
			return domain.Event{}, err
		}
		return mutate(collection)
	})
	if err != nil {
		span.RecordError(err)
		return domain.Collection{}, errors.Wrap(err, "collection update failed")
	}

	uc.publish(ctx, event)
	return collection, nil
}

func (uc *PublicationUsecase) GetPublication(ctx context.Context, id uint64) (domain.Token, error) {
	ctx, span := tracer.Start(ctx, "Publication.Usecase.GetPublication")
	defer span.End()

	// the generation has to be read before the database, otherwise a burn
	// landing in between could be cached over
	var generation uint64
	if uc.cache != nil {
		token, gen, ok := uc.cache.Get(ctx, id)
		if ok {
			return token, nil
		}
		generation = gen
	}

	token, err := uc.repo.GetToken(ctx, id)
	if err != nil {
		span.RecordError(err)
		return domain.Token{}, err
	}

	if uc.cache != nil {
		uc.cache.Set(ctx, token, generation)
	}
	return token, nil
}

// GetField returns one attribute of a live token, see domain.Token.Field for the names.
func (uc *PublicationUsecase) GetField(ctx context.Context, id uint64, name string) (any, error) {
	token, err := uc.GetPublication(ctx, id)
	if err != nil {
		return nil, err
	}
	value, ok := token.Field(name)
	if !ok {
		return nil, domain.InvalidInputError{Reason: "unknown field " + name}
	}
	return value, nil
}

func (uc *PublicationUsecase) OwnerOf(ctx context.Context, id uint64) (string, error) {
	token, err := uc.GetPublication(ctx, id)
	if err != nil {
		return "", err
	}
	return token.Owner, nil
}

func (uc *PublicationUsecase) TokenURI(ctx context.Context, id uint64) (string, error) {
	token, err := uc.GetPublication(ctx, id)
	if err != nil {
		return "", err
	}
	return token.Publication.MetadataURL, nil
}

func (uc *PublicationUsecase) GetApproved(ctx context.Context, id uint64) (string, error) {
	token, err := uc.GetPublication(ctx, id)
	if err != nil {
		return "", err
	}
	return token.Approved, nil
}

func (uc *PublicationUsecase) IsApprovedForAll(ctx context.Context, owner, operator string) (bool, error) {
	owner, err := normalize("owner", owner)
	if err != nil {
		return false, err
	}
	operator, err = normalize("operator", operator)
	if err != nil {
		return false, err
	}
	return uc.repo.IsOperator(ctx, owner, operator)
}

func (uc *PublicationUsecase) BalanceOf(ctx context.Context, owner string) (int64, error) {
	owner, err := normalize("owner", owner)
	if err != nil {
		return 0, err
	}
	return uc.repo.BalanceOf(ctx, owner)
}

func (uc *PublicationUsecase) TokensOf(ctx context.Context, owner string, limit, offset int) ([]domain.Token, error) {
	owner, err := normalize("owner", owner)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return uc.repo.TokensOf(ctx, owner, limit, offset)
}

func (uc *PublicationUsecase) TotalSupply(ctx context.Context) (int64, error) {
	return uc.repo.TotalSupply(ctx)
}

func (uc *PublicationUsecase) GetCollection(ctx context.Context) (domain.Collection, error) {
	return uc.repo.GetCollection(ctx)
}

func (uc *PublicationUsecase) GetEvent(ctx context.Context, id string) (domain.Event, error) {
	return uc.repo.GetEvent(ctx, id)
}

func (uc *PublicationUsecase) authorize(action string, request policy.RequestContext) error {
	allowed, err := policy.Allowed(uc.policy, request, action)
	if err != nil {
		return err
	}
	if !allowed {
		return errors.Wrapf(domain.ErrUnauthorized, "%s denied for %v", action, request.Requester)
	}
	return nil
}

func (uc *PublicationUsecase) invalidate(ctx context.Context, id uint64) {
	if uc.cache != nil {
		uc.cache.Invalidate(ctx, id)
	}
}

func (uc *PublicationUsecase) publish(ctx context.Context, event domain.Event) {
	if uc.publisher == nil {
		return
	}
	err := uc.publisher.PublishEvent(ctx, event)
	if err != nil {
		slog.WarnContext(
			ctx, "failed to publish event",
			slog.String("error", err.Error()),
			slog.String("kind", string(event.Kind)),
			slog.String("module", "publication"),
		)
	}
}

func tokenRequest(requester string, token domain.Token, operator bool) policy.RequestContext {
	return policy.RequestContext{
		Requester: requester,
		This: map[string]any{
			"owner":    token.Owner,
			"approved": token.Approved,
			"creator":  token.Creator,
		},
		Params: map[string]any{
			"operator": operator,
		},
	}
}

func normalize(name, address string) (string, error) {
	normalized, err := biblion.NormalizeAddress(address)
	if err != nil {
		return "", domain.InvalidInputError{Reason: name + ": " + err.Error()}
	}
	return normalized, nil
}
