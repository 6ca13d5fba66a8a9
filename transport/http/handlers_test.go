package http

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/dvarapala/adapters/store"
	"github.com/layer-3/dvarapala/adapters/tokenizer"
	"github.com/layer-3/dvarapala/adapters/verifier"
	"github.com/layer-3/dvarapala/service"
)

type nopPublisher struct{}

func (nopPublisher) PublishLogin(ctx context.Context, address string, nonceID uuid.UUID) error {
	return nil
}

func (nopPublisher) PublishLogout(ctx context.Context, address string, tokenID string) error {
	return nil
}

func setupTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	mem := store.NewMemoryStore()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	svc := service.NewAuthService(
		mem, mem, mem,
		verifier.NewEd25519Verifier(),
		tokenizer.NewJWTTokenizer(key),
		nopPublisher{},
		log,
		service.Config{Domain: "example.com", Statement: "Sign in"},
	)
	return SetupRouter(svc)
}

func postJSON(router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestChallengeEndpoint(t *testing.T) {
	router := setupTestRouter(t)
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	w := postJSON(router, "/auth/challenge", gin.H{"address": base58.Encode(pub)})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		NonceID string `json:"nonce_id"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	_, err = uuid.Parse(resp.NonceID)
	assert.NoError(t, err)
	assert.Contains(t, resp.Message, "example.com wants you to sign in with your account:")
}

func TestChallengeEndpointInvalidAddress(t *testing.T) {
	router := setupTestRouter(t)

	w := postJSON(router, "/auth/challenge", gin.H{"address": "bogus"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postJSON(router, "/auth/challenge", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoginEndpoint(t *testing.T) {
	router := setupTestRouter(t)
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	address := base58.Encode(pub)

	w := postJSON(router, "/auth/challenge", gin.H{"address": address})
	require.Equal(t, http.StatusOK, w.Code)

	var challenge struct {
		NonceID string `json:"nonce_id"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &challenge))

	signature := base58.Encode(ed25519.Sign(priv, []byte(challenge.Message)))

	w = postJSON(router, "/auth/login", gin.H{"nonce_id": challenge.NonceID, "signature": signature})
	require.Equal(t, http.StatusOK, w.Code)

	var tokens struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		Address      string `json:"address"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tokens))
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)
	assert.Equal(t, address, tokens.Address)

	// Replaying the consumed nonce is rejected.
	w = postJSON(router, "/auth/login", gin.H{"nonce_id": challenge.NonceID, "signature": signature})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// The minted access token opens the protected routes.
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), address)
}

func TestLoginEndpointUnknownNonce(t *testing.T) {
	router := setupTestRouter(t)
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	signature := base58.Encode(ed25519.Sign(priv, []byte("anything")))
	w := postJSON(router, "/auth/login", gin.H{"nonce_id": uuid.New().String(), "signature": signature})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLoginEndpointBadSignature(t *testing.T) {
	router := setupTestRouter(t)
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	_, wrongPriv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	w := postJSON(router, "/auth/challenge", gin.H{"address": base58.Encode(pub)})
	require.Equal(t, http.StatusOK, w.Code)

	var challenge struct {
		NonceID string `json:"nonce_id"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &challenge))

	signature := base58.Encode(ed25519.Sign(wrongPriv, []byte(challenge.Message)))
	w = postJSON(router, "/auth/login", gin.H{"nonce_id": challenge.NonceID, "signature": signature})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTerminateEndpointRevokesSessions(t *testing.T) {
	router := setupTestRouter(t)
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	address := base58.Encode(pub)

	w := postJSON(router, "/auth/challenge", gin.H{"address": address})
	require.Equal(t, http.StatusOK, w.Code)

	var challenge struct {
		NonceID string `json:"nonce_id"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &challenge))

	signature := base58.Encode(ed25519.Sign(priv, []byte(challenge.Message)))
	w = postJSON(router, "/auth/login", gin.H{"nonce_id": challenge.NonceID, "signature": signature})
	require.Equal(t, http.StatusOK, w.Code)

	var tokens struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tokens))

	req := httptest.NewRequest(http.MethodPost, "/api/terminate", nil)
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	// The token that authorized the termination is revoked with the rest.
	req = httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	router := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
