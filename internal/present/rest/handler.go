package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/zeebo/xxh3"

	"github.com/totegamma/biblion"
	"github.com/totegamma/biblion/internal/domain"
	"github.com/totegamma/biblion/internal/present/rest/middleware"
	"github.com/totegamma/biblion/internal/present/rest/presenter"
	"github.com/totegamma/biblion/internal/usecase"
	"github.com/totegamma/biblion/internal/utils"
)

// RealtimeSource streams events of the listened timeline keys.
type RealtimeSource interface {
	Realtime(ctx context.Context, input <-chan []string, output chan<- domain.Event)
}

type Handler struct {
	config      domain.Config
	publication *usecase.PublicationUsecase
	timeline    *usecase.TimelineUsecase
	signal      RealtimeSource
}

func NewHandler(
	config domain.Config,
	publication *usecase.PublicationUsecase,
	timeline *usecase.TimelineUsecase,
	signal RealtimeSource,
) *Handler {
	return &Handler{
		config:      config,
		publication: publication,
		timeline:    timeline,
		signal:      signal,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo, auth *middleware.AuthMiddleware) {
	e.GET("/.well-known/biblion", h.handleWellKnown)
	e.POST("/commit", h.handleCommit)
	e.GET("/collection", h.handleCollection)
	e.GET("/publications/:id", h.handlePublication)
	e.GET("/publications/:id/:field", h.handlePublicationField)
	e.GET("/metadata/:id", h.handleMetadata)
	e.GET("/owners/:address/balance", h.handleBalance)
	e.GET("/owners/:address/publications", h.handleOwnerPublications)
	e.GET("/owners/:address/operators/:operator", h.handleOperator)
	e.GET("/resource/:uri", h.handleResource)
	e.GET("/chunkline/activity/:chunk/itr", h.handleChunklineItr)
	e.GET("/chunkline/activity/:chunk/body", h.handleChunklineBody)
	e.GET("/chunkline/tokens/:id/:chunk/itr", h.handleChunklineItr)
	e.GET("/chunkline/tokens/:id/:chunk/body", h.handleChunklineBody)
	e.GET("/api/v1/timeline/recent", h.handleTimelineRecent)
	e.GET("/realtime", h.handleRealtime)

	me := e.Group("/api/v1/me")
	if auth != nil {
		me.Use(auth.IdentifyIdentity)
	}
	me.GET("/publications", h.handleMyPublications)
}

func (h *Handler) handleWellKnown(c echo.Context) error {
	collection, err := h.publication.GetCollection(c.Request().Context())
	if err != nil {
		return presenter.Error(c, err)
	}

	wellknown := biblion.WellKnownBiblion{
		Version:    "1.0",
		Domain:     h.config.FQDN,
		NodeID:     h.config.NodeID,
		Collection: collection.Name,
		Endpoints: map[string]biblion.Endpoint{
			"biblion.resource": {
				Template: "/resource/{uri}",
				Method:   "GET",
			},
			"biblion.commit": {
				Template: "/commit",
				Method:   "POST",
			},
			"biblion.publication": {
				Template: "/publications/{id}",
				Method:   "GET",
			},
			"biblion.metadata": {
				Template: "/metadata/{id}",
				Method:   "GET",
			},
			"biblion.owner.publications": {
				Template: "/owners/{address}/publications",
				Method:   "GET",
				Query:    &[]string{"limit", "offset"},
			},
			"biblion.timeline.recent": {
				Template: "/api/v1/timeline/recent",
				Method:   "GET",
				Query:    &[]string{"uris", "until", "limit"},
			},
			"biblion.realtime": {
				Template: "/realtime",
				Method:   "GET",
			},
		},
	}
	return presenter.OK(c, wellknown)
}

func (h *Handler) handleCommit(c echo.Context) error {
	ctx := c.Request().Context()

	var sd biblion.SignedDocument
	err := c.Bind(&sd)
	if err != nil {
		return presenter.BadRequest(c, err)
	}

	result, err := h.publication.Commit(ctx, sd)
	if err != nil {
		return presenter.Error(c, err)
	}

	return presenter.OK(c, echo.Map{"status": "ok", "result": result})
}

func (h *Handler) handleCollection(c echo.Context) error {
	ctx := c.Request().Context()

	collection, err := h.publication.GetCollection(ctx)
	if err != nil {
		return presenter.Error(c, err)
	}
	supply, err := h.publication.TotalSupply(ctx)
	if err != nil {
		return presenter.Error(c, err)
	}

	return presenter.OK(c, echo.Map{
		"name":        collection.Name,
		"symbol":      collection.Symbol,
		"admin":       collection.Admin,
		"mintPolicy":  collection.MintPolicy,
		"nextTokenID": collection.NextTokenID,
		"totalSupply": supply,
	})
}

func parseID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return 0, domain.InvalidInputError{Reason: "invalid token id"}
	}
	return id, nil
}

func (h *Handler) handlePublication(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return presenter.BadRequest(c, err)
	}

	token, err := h.publication.GetPublication(c.Request().Context(), id)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, token)
}

func (h *Handler) handlePublicationField(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return presenter.BadRequest(c, err)
	}

	value, err := h.publication.GetField(c.Request().Context(), id, c.Param("field"))
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, echo.Map{"value": value})
}

type attribute struct {
	TraitType string `json:"trait_type"`
	Value     any    `json:"value"`
}

// handleMetadata renders ERC-721 metadata with a stable key order so the
// ETag only changes with the content.
func (h *Handler) handleMetadata(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return presenter.BadRequest(c, err)
	}

	token, err := h.publication.GetPublication(c.Request().Context(), id)
	if err != nil {
		return presenter.Error(c, err)
	}
	p := token.Publication

	attributes := []attribute{
		{TraitType: "Authors", Value: p.Authors},
		{TraitType: "Publication Date", Value: p.PublicationDate},
		{TraitType: "Identifier", Value: p.Identifier},
	}
	for _, optional := range []attribute{
		{TraitType: "License", Value: p.License},
		{TraitType: "Field", Value: p.Field},
		{TraitType: "Version", Value: p.Version},
	} {
		if optional.Value != "" {
			attributes = append(attributes, optional)
		}
	}

	metadata := utils.OrderedMap[any]{
		{Key: "name", Value: p.Title},
		{Key: "description", Value: p.Description},
		{Key: "image", Value: p.ImageURL},
		{Key: "external_url", Value: p.ExternalURL},
		{Key: "attributes", Value: attributes},
	}

	body, err := json.Marshal(metadata)
	if err != nil {
		return presenter.InternalError(c, err)
	}

	etag := fmt.Sprintf(`"%016x"`, xxh3.Hash(body))
	c.Response().Header().Set(echo.HeaderCacheControl, "public, max-age=60")
	c.Response().Header().Set("ETag", etag)
	if c.Request().Header.Get("If-None-Match") == etag {
		return c.NoContent(http.StatusNotModified)
	}

	return c.JSONBlob(http.StatusOK, body)
}

func (h *Handler) handleBalance(c echo.Context) error {
	balance, err := h.publication.BalanceOf(c.Request().Context(), c.Param("address"))
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, echo.Map{"balance": balance})
}

func pagination(c echo.Context) (int, int, error) {
	limit := 20
	if s := c.QueryParam("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid limit parameter")
		}
		limit = v
	}
	offset := 0
	if s := c.QueryParam("offset"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid offset parameter")
		}
		offset = v
	}
	return limit, offset, nil
}

func (h *Handler) handleOwnerPublications(c echo.Context) error {
	limit, offset, err := pagination(c)
	if err != nil {
		return presenter.BadRequest(c, err)
	}

	tokens, err := h.publication.TokensOf(c.Request().Context(), c.Param("address"), limit, offset)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, tokens)
}

func (h *Handler) handleOperator(c echo.Context) error {
	approved, err := h.publication.IsApprovedForAll(c.Request().Context(), c.Param("address"), c.Param("operator"))
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, echo.Map{"approved": approved})
}

func (h *Handler) handleMyPublications(c echo.Context) error {
	ctx := c.Request().Context()

	requester, ok := middleware.Requester(ctx)
	if !ok {
		return presenter.Forbidden(c, "authentication required")
	}

	limit, offset, err := pagination(c)
	if err != nil {
		return presenter.BadRequest(c, err)
	}

	tokens, err := h.publication.TokensOf(ctx, requester, limit, offset)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, tokens)
}

func (h *Handler) handleResource(c echo.Context) error {
	ctx := c.Request().Context()

	escaped := c.Param("uri")
	host, key, err := biblion.ParseURI(escaped)
	if err != nil {
		return presenter.BadRequestMessage(c, err.Error())
	}
	if host != h.config.FQDN {
		return presenter.NotFound(c, "resource is not hosted here")
	}

	if key == "" {
		return h.handleWellKnown(c)
	}

	uri := biblion.ComposeURI(host, key)

	if c.Request().Header.Get("Accept") == domain.AcceptChunkline {
		manifest, err := h.timeline.GetManifest(ctx, uri)
		if err != nil {
			return presenter.Error(c, err)
		}
		return presenter.OK(c, manifest)
	}

	if key == biblion.ActivityKey {
		return h.handleCollection(c)
	}

	if id, ok := biblion.ParseTokenKey(key); ok {
		token, err := h.publication.GetPublication(ctx, id)
		if err != nil {
			return presenter.Error(c, err)
		}
		return presenter.OK(c, token)
	}

	if id, ok := biblion.ParseEventKey(key); ok {
		event, err := h.publication.GetEvent(ctx, id)
		if err != nil {
			return presenter.Error(c, err)
		}
		return presenter.OK(c, event)
	}

	return presenter.NotFound(c, "resource not found")
}

func (h *Handler) chunklineURI(c echo.Context) string {
	if id := c.Param("id"); id != "" {
		return biblion.ComposeURI(h.config.FQDN, "tokens/"+id)
	}
	return biblion.ComposeURI(h.config.FQDN, biblion.ActivityKey)
}

func (h *Handler) handleChunklineItr(c echo.Context) error {
	ctx := c.Request().Context()
	uri := h.chunklineURI(c)

	chunkID, err := strconv.ParseInt(c.Param("chunk"), 10, 64)
	if err != nil {
		return presenter.BadRequestMessage(c, "invalid chunk id")
	}

	results, err := h.timeline.LookupLocalItrs(ctx, []string{uri}, chunkID)
	if err != nil {
		return presenter.Error(c, err)
	}
	itr, ok := results[uri]
	if !ok {
		return presenter.NotFound(c, "no chunk before "+c.Param("chunk"))
	}

	return c.String(http.StatusOK, strconv.FormatInt(itr, 10))
}

func (h *Handler) handleChunklineBody(c echo.Context) error {
	ctx := c.Request().Context()
	uri := h.chunklineURI(c)

	chunkID, err := strconv.ParseInt(c.Param("chunk"), 10, 64)
	if err != nil {
		return presenter.BadRequestMessage(c, "invalid chunk id")
	}
	results, err := h.timeline.LoadLocalBody(ctx, uri, chunkID)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, results)
}

func (h *Handler) handleTimelineRecent(c echo.Context) error {
	ctx := c.Request().Context()

	uriString := c.QueryParam("uris")
	if uriString == "" {
		return presenter.BadRequestMessage(c, "uris parameter is required")
	}
	uris := strings.Split(uriString, ",")

	until := time.Now().UTC()
	if untilStr := c.QueryParam("until"); untilStr != "" {
		untilInt, err := strconv.ParseInt(untilStr, 10, 64)
		if err != nil {
			return presenter.BadRequestMessage(c, "invalid until parameter")
		}
		until = time.Unix(untilInt, 0).UTC()
	}

	limit := 16
	if limitStr := c.QueryParam("limit"); limitStr != "" {
		limitInt, err := strconv.Atoi(limitStr)
		if err != nil {
			return presenter.BadRequestMessage(c, "invalid limit parameter")
		}
		limit = limitInt
	}
	if limit > 64 {
		limit = 64
	}

	results, err := h.timeline.GetRecent(ctx, uris, until, limit)
	if err != nil {
		return presenter.InternalError(c, err)
	}
	return presenter.OK(c, results)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Request struct {
	Type     string   `json:"type"`
	Channels []string `json:"channels"`
}

func (h *Handler) handleRealtime(c echo.Context) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error(
			"Failed to upgrade WebSocket",
			slog.String("error", err.Error()),
			slog.String("module", "socket"),
		)
		return err
	}
	defer ws.Close()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	input := make(chan []string)
	output := make(chan domain.Event)

	go h.signal.Realtime(ctx, input, output)

	quit := make(chan struct{})

	go func() {
		defer close(quit)
		for {
			var req Request
			err := ws.ReadJSON(&req)
			if err != nil {
				wsErr, ok := err.(*websocket.CloseError)
				if ok {
					if !(wsErr.Code == websocket.CloseNormalClosure || wsErr.Code == websocket.CloseGoingAway) {
						slog.DebugContext(
							ctx, "WebSocket closed",
							slog.String("error", wsErr.Error()),
							slog.String("module", "socket"),
						)
					}
				} else {
					slog.ErrorContext(
						ctx, "Error reading message",
						slog.String("error", err.Error()),
						slog.String("module", "socket"),
					)
				}
				return
			}

			switch req.Type {
			case "listen":
				select {
				case input <- req.Channels:
				case <-ctx.Done():
					return
				}
				slog.DebugContext(
					ctx, fmt.Sprintf("Socket subscribe: %s", req.Channels),
					slog.String("module", "socket"),
				)
			case "h": // heartbeat
			default:
				slog.InfoContext(
					ctx, "Unknown request type",
					slog.String("type", req.Type),
					slog.String("module", "socket"),
				)
			}
		}
	}()

	for {
		select {
		case <-quit:
			return nil
		case event := <-output:
			err := ws.WriteJSON(event)
			if err != nil {
				slog.ErrorContext(
					ctx, "Error writing message",
					slog.String("error", err.Error()),
					slog.String("module", "socket"),
				)
				return nil
			}
		}
	}
}
