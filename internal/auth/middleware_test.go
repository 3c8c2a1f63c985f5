package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bugchan/bountyd/internal/storage"
)

type fakeKeyStore struct {
	valid map[string]*storage.APIKey
}

func (f *fakeKeyStore) CreateAPIKey(ctx context.Context, name string) (string, error) {
	return "", nil
}

func (f *fakeKeyStore) ValidateAPIKey(ctx context.Context, key string) (*storage.APIKey, error) {
	if k, ok := f.valid[key]; ok {
		return k, nil
	}
	return nil, storage.ErrNotFound
}

func (f *fakeKeyStore) ListAPIKeys(ctx context.Context) ([]storage.APIKey, error) { return nil, nil }
func (f *fakeKeyStore) RevokeAPIKey(ctx context.Context, id string) error         { return nil }

func testWriteError(w http.ResponseWriter, status int, code, message string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"code": code})
}

func TestMiddleware(t *testing.T) {
	store := &fakeKeyStore{valid: map[string]*storage.APIKey{
		"bd_key_good": {ID: "k1", Name: "ci"},
	}}

	var gotKey *storage.APIKey
	handler := Middleware(store, testWriteError)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = GetAPIKeyFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("missing key", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("POST", "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("invalid key", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/", nil)
		req.Header.Set("X-API-Key", "bd_key_bad")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid header key", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/", nil)
		req.Header.Set("X-API-Key", "bd_key_good")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, gotKey)
		assert.Equal(t, "k1", gotKey.ID)
	})

	t.Run("bearer token", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/", nil)
		req.Header.Set("Authorization", "Bearer bd_key_good")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
