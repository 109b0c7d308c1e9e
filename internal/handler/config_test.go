package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cfadmin/internal/model"
)

type fakeConfigStore struct {
	loginKey    string
	apiToken    string
	lastUpdated *time.Time

	checkCalls  int
	updatedKey  string
	updateCalls int
}

func (s *fakeConfigStore) GetCredentials() (*model.Credentials, error) {
	return &model.Credentials{
		LoginKeyHash: "ignored",
		APIToken:     s.apiToken,
		LastUpdated:  s.lastUpdated,
	}, nil
}

func (s *fakeConfigStore) CheckLoginKey(key string) (bool, error) {
	s.checkCalls++
	return key == s.loginKey, nil
}

func (s *fakeConfigStore) UpdateAPIToken(token string) error {
	s.apiToken = token
	return nil
}

func (s *fakeConfigStore) UpdateLoginKey(newKey string) error {
	s.updateCalls++
	s.updatedKey = newKey
	s.loginKey = newKey
	return nil
}

type nopAudit struct{}

func (nopAudit) LogAudit(model.AuditEntry) error { return nil }

func putLoginKey(t *testing.T, h *ConfigHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPut, "/api/config/login-key", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.SetLoginKey(w, req)
	return w
}

func TestSetLoginKeyConfirmMismatch(t *testing.T) {
	store := &fakeConfigStore{loginKey: "old-key-1234"}
	h := NewConfigHandler(store, nil, nopAudit{})

	w := putLoginKey(t, h, `{"currentKey":"old-key-1234","newKey":"new-key-1234","confirmKey":"different"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	// Rejected at the boundary, before the store is consulted
	if store.checkCalls != 0 || store.updateCalls != 0 {
		t.Fatalf("store was touched: checks=%d updates=%d", store.checkCalls, store.updateCalls)
	}
}

func TestSetLoginKeyWrongCurrentKey(t *testing.T) {
	store := &fakeConfigStore{loginKey: "old-key-1234"}
	h := NewConfigHandler(store, nil, nopAudit{})

	w := putLoginKey(t, h, `{"currentKey":"wrong","newKey":"new-key-1234","confirmKey":"new-key-1234"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if store.updateCalls != 0 {
		t.Fatal("login key must not rotate on a current-key mismatch")
	}
	// Original key still valid
	if ok, _ := store.CheckLoginKey("old-key-1234"); !ok {
		t.Fatal("original key no longer accepted")
	}
}

func TestSetLoginKeySuccess(t *testing.T) {
	store := &fakeConfigStore{loginKey: "old-key-1234"}
	h := NewConfigHandler(store, nil, nopAudit{})

	w := putLoginKey(t, h, `{"currentKey":"old-key-1234","newKey":"new-key-1234","confirmKey":"new-key-1234"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if store.updatedKey != "new-key-1234" {
		t.Fatalf("expected rotation to new key, got %q", store.updatedKey)
	}
}

func TestSetLoginKeyTooShort(t *testing.T) {
	store := &fakeConfigStore{loginKey: "old-key-1234"}
	h := NewConfigHandler(store, nil, nopAudit{})

	w := putLoginKey(t, h, `{"currentKey":"old-key-1234","newKey":"short","confirmKey":"short"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if store.updateCalls != 0 {
		t.Fatal("store must not be touched")
	}
}

func TestGetConfigNeverReturnsToken(t *testing.T) {
	updated := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	store := &fakeConfigStore{apiToken: "super-secret", lastUpdated: &updated}
	h := NewConfigHandler(store, nil, nopAudit{})

	req := httptest.NewRequest(http.MethodGet, "/api/config", nil)
	w := httptest.NewRecorder()
	h.GetConfig(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "super-secret") {
		t.Fatal("raw API token leaked in config response")
	}

	var resp struct {
		HasAPIToken bool   `json:"hasApiToken"`
		LastUpdated string `json:"lastUpdated"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.HasAPIToken {
		t.Fatal("expected hasApiToken true")
	}
	if resp.LastUpdated != "2026-08-30T12:00:00Z" {
		t.Fatalf("unexpected lastUpdated %q", resp.LastUpdated)
	}
}

func TestSetAPITokenValidation(t *testing.T) {
	store := &fakeConfigStore{}
	h := NewConfigHandler(store, nil, nopAudit{})

	req := httptest.NewRequest(http.MethodPut, "/api/config/cloudflare-token", strings.NewReader(`{"apiToken":"  "}`))
	w := httptest.NewRecorder()
	h.SetAPIToken(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank token, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodPut, "/api/config/cloudflare-token", strings.NewReader(`{"apiToken":"cf-token"}`))
	w = httptest.NewRecorder()
	h.SetAPIToken(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if store.apiToken != "cf-token" {
		t.Fatalf("token not stored, got %q", store.apiToken)
	}
}
