package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/concrnt/chunkline"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/totegamma/biblion"
	"github.com/totegamma/biblion/internal/domain"
	"github.com/totegamma/biblion/internal/present/rest/middleware"
	"github.com/totegamma/biblion/internal/service"
	"github.com/totegamma/biblion/internal/usecase"
	"github.com/totegamma/biblion/internal/usecase/usecasetest"
	"github.com/totegamma/biblion/jwt"
	"github.com/totegamma/biblion/policy"
	"github.com/totegamma/biblion/schemas"
)

const (
	fqdn     = "books.example.com"
	adminKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
	otherKey = "8da4ef21b864d2cc526dbdb2a120bd2874c36c9d0a1fb7f8c63d7f7a8b41de8f"
)

// --- mocks ---

type mockTimelineRepo struct{}

func (m *mockTimelineRepo) GetManifest(ctx context.Context, uri string) (*chunkline.Manifest, error) {
	return &chunkline.Manifest{Version: "1.0", ChunkSize: 600}, nil
}
func (m *mockTimelineRepo) LookupLocalItrs(ctx context.Context, uris []string, chunkID int64) (map[string]int64, error) {
	return map[string]int64{uris[0]: chunkID - 1}, nil
}
func (m *mockTimelineRepo) LoadLocalBody(ctx context.Context, uri string, chunkID int64) ([]chunkline.BodyItem, error) {
	return []chunkline.BodyItem{{Href: uri, Timestamp: time.Now()}}, nil
}

// --- helpers ---

type testServer struct {
	e     *echo.Echo
	repo  *usecasetest.MemoryRepository
	admin string
	other string
}

func newTestServer(t *testing.T) testServer {
	t.Helper()

	admin, err := biblion.PrivKeyToAddr(adminKey, biblion.AccountPrefix)
	require.NoError(t, err)
	other, err := biblion.PrivKeyToAddr(otherKey, biblion.AccountPrefix)
	require.NoError(t, err)

	config := domain.Config{FQDN: fqdn, AdminAddress: admin, CollectionName: "PublicationNFT", Symbol: "PUB"}

	repo := usecasetest.NewMemoryRepository()
	publication := usecase.NewPublicationUsecase(repo, nil, nil, policy.Publication())
	_, err = publication.Init(context.Background(), config)
	require.NoError(t, err)

	timeline := usecase.NewTimelineUsecase(&mockTimelineRepo{}, nil)

	h := NewHandler(config, publication, timeline, nil)
	e := echo.New()
	h.RegisterRoutes(e, middleware.NewAuthMiddleware(service.NewAuthService(config)))

	return testServer{e: e, repo: repo, admin: admin, other: other}
}

func (s testServer) do(req *http.Request) *httptest.ResponseRecorder {
	res := httptest.NewRecorder()
	s.e.ServeHTTP(res, req)
	return res
}

func (s testServer) get(path string) *httptest.ResponseRecorder {
	return s.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (s testServer) commit(t *testing.T, key, schema string, value any) *httptest.ResponseRecorder {
	t.Helper()

	signer, err := biblion.PrivKeyToAddr(key, biblion.AccountPrefix)
	require.NoError(t, err)

	doc, err := json.Marshal(biblion.Document[any]{
		Value:     value,
		Signer:    signer,
		Schema:    &schema,
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)

	sd, err := biblion.SignDocument(string(doc), key)
	require.NoError(t, err)

	return s.commitSigned(t, sd)
}

func (s testServer) commitSigned(t *testing.T, sd biblion.SignedDocument) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(sd)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/commit", bytes.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return s.do(req)
}

func testMint(recipient string) schemas.Mint {
	return schemas.Mint{
		Recipient:       recipient,
		Title:           "Test Book",
		Authors:         "Test Author",
		PublicationDate: 1700000000,
		Identifier:      "978-0-000000-00-0",
		MetadataURL:     "ipfs://metadata",
		ImageURL:        "ipfs://image",
	}
}

// --- tests ---

func TestCommitMintAndRead(t *testing.T) {
	s := newTestServer(t)

	res := s.commit(t, adminKey, schemas.MintURL, testMint(s.other))
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())

	var minted struct {
		Status string       `json:"status"`
		Result domain.Token `json:"result"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &minted))
	assert.Equal(t, "ok", minted.Status)
	assert.Equal(t, uint64(0), minted.Result.ID)

	res = s.get("/publications/0")
	require.Equal(t, http.StatusOK, res.Code)
	var token domain.Token
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &token))
	assert.Equal(t, "Test Book", token.Publication.Title)
	assert.Equal(t, s.other, token.Owner)

	res = s.get("/publications/0/tokenURI")
	require.Equal(t, http.StatusOK, res.Code)
	assert.JSONEq(t, `{"value":"ipfs://metadata"}`, res.Body.String())

	res = s.get("/owners/" + s.other + "/balance")
	require.Equal(t, http.StatusOK, res.Code)
	assert.JSONEq(t, `{"balance":1}`, res.Body.String())
}

func TestCommitErrors(t *testing.T) {
	s := newTestServer(t)

	res := s.commit(t, otherKey, schemas.MintURL, testMint(s.other))
	assert.Equal(t, http.StatusForbidden, res.Code)

	long := testMint(s.other)
	long.Title = string(bytes.Repeat([]byte("a"), domain.MaxTitleLength+1))
	res = s.commit(t, adminKey, schemas.MintURL, long)
	assert.Equal(t, http.StatusBadRequest, res.Code)

	schema := schemas.MintURL
	doc, err := json.Marshal(biblion.Document[schemas.Mint]{
		Value:     testMint(s.other),
		Signer:    s.admin,
		Schema:    &schema,
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)
	sd, err := biblion.SignDocument(string(doc), adminKey)
	require.NoError(t, err)

	res = s.commitSigned(t, sd)
	require.Equal(t, http.StatusOK, res.Code)
	res = s.commitSigned(t, sd)
	assert.Equal(t, http.StatusConflict, res.Code)

	res = s.get("/publications/1")
	assert.Equal(t, http.StatusNotFound, res.Code)
	res = s.get("/publications/abc")
	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestBurnedPublicationIsGone(t *testing.T) {
	s := newTestServer(t)

	res := s.commit(t, adminKey, schemas.MintURL, testMint(s.other))
	require.Equal(t, http.StatusOK, res.Code)

	res = s.commit(t, otherKey, schemas.BurnURL, schemas.Burn{TokenID: 0})
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())

	for _, path := range []string{"/publications/0", "/publications/0/title", "/metadata/0"} {
		res = s.get(path)
		assert.Equal(t, http.StatusNotFound, res.Code, path)
	}

	// the event log is append only, the mint event keeps its title
	require.NotEmpty(t, s.repo.Events)
	minted := s.repo.Events[0]
	require.Equal(t, domain.EventMinted, minted.Kind)
	res = s.get("/resource/" + url.QueryEscape(biblion.ComposeURI(fqdn, biblion.EventKey(minted.ID))))
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "Test Book")
}

func TestMetadata(t *testing.T) {
	s := newTestServer(t)

	res := s.commit(t, adminKey, schemas.MintURL, testMint(s.other))
	require.Equal(t, http.StatusOK, res.Code)

	res = s.get("/metadata/0")
	require.Equal(t, http.StatusOK, res.Code)
	assert.Regexp(t, `^\{"name":"Test Book","description":"","image":"ipfs://image","external_url":"","attributes":\[`, res.Body.String())

	etag := res.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req := httptest.NewRequest(http.MethodGet, "/metadata/0", nil)
	req.Header.Set("If-None-Match", etag)
	res = s.do(req)
	assert.Equal(t, http.StatusNotModified, res.Code)
}

func TestResource(t *testing.T) {
	s := newTestServer(t)

	res := s.commit(t, adminKey, schemas.MintURL, testMint(s.other))
	require.Equal(t, http.StatusOK, res.Code)

	uri := biblion.ComposeURI(fqdn, biblion.TokenKey(0))
	res = s.get("/resource/" + url.QueryEscape(uri))
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "Test Book")

	req := httptest.NewRequest(http.MethodGet, "/resource/"+url.QueryEscape(uri), nil)
	req.Header.Set("Accept", domain.AcceptChunkline)
	res = s.do(req)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "1.0")

	res = s.get("/resource/" + url.QueryEscape(biblion.ComposeURI("elsewhere.example.com", biblion.ActivityKey)))
	assert.Equal(t, http.StatusNotFound, res.Code)
}

func TestChunkline(t *testing.T) {
	s := newTestServer(t)

	res := s.get("/chunkline/tokens/0/100/itr")
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "99", res.Body.String())

	res = s.get("/chunkline/activity/100/body")
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), biblion.ComposeURI(fqdn, biblion.ActivityKey))
}

func TestMyPublications(t *testing.T) {
	s := newTestServer(t)

	res := s.commit(t, adminKey, schemas.MintURL, testMint(s.other))
	require.Equal(t, http.StatusOK, res.Code)

	res = s.get("/api/v1/me/publications")
	assert.Equal(t, http.StatusForbidden, res.Code)

	token, err := jwt.Create(jwt.Claims{
		Issuer:         s.other,
		Subject:        "biblion",
		Audience:       fqdn,
		ExpirationTime: strconv.FormatInt(time.Now().Add(time.Hour).Unix(), 10),
	}, otherKey)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me/publications", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	res = s.do(req)
	require.Equal(t, http.StatusOK, res.Code)

	var tokens []domain.Token
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &tokens))
	require.Len(t, tokens, 1)
	assert.Equal(t, "Test Book", tokens[0].Publication.Title)
}

func TestWellKnown(t *testing.T) {
	s := newTestServer(t)

	res := s.get("/.well-known/biblion")
	require.Equal(t, http.StatusOK, res.Code)

	var wkb biblion.WellKnownBiblion
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &wkb))
	assert.Equal(t, fqdn, wkb.Domain)
	assert.Equal(t, "PublicationNFT", wkb.Collection)
	assert.Contains(t, wkb.Endpoints, "biblion.resource")
}
