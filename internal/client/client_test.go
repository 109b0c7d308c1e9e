package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cfadmin/internal/model"
)

func validSession() *Session {
	return &Session{
		Token:     "session-token",
		User:      model.User{ID: "admin"},
		ExpiresAt: time.Now().Add(time.Hour).UnixMilli(),
	}
}

func TestRequestAttachesBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, `{"result":[{"id":"z1","name":"example.com"}]}`)
	}))
	defer srv.Close()

	store := &MemorySessionStore{}
	_ = store.Save(validSession())
	c := New(srv.URL, store, nil)

	zones, err := c.Zones(context.Background())
	if err != nil {
		t.Fatalf("Zones: %v", err)
	}
	if gotAuth != "Bearer session-token" {
		t.Fatalf("expected bearer header, got %q", gotAuth)
	}
	if len(zones) != 1 || zones[0].ID != "z1" {
		t.Fatalf("unexpected zones %v", zones)
	}
}

func TestExpiredSessionBlocksRequest(t *testing.T) {
	serverHit := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		serverHit = true
	}))
	defer srv.Close()

	store := &MemorySessionStore{}
	_ = store.Save(&Session{
		Token:     "stale-token",
		ExpiresAt: time.Now().Add(-time.Minute).UnixMilli(),
	})

	var signOutReason string
	c := New(srv.URL, store, func(reason string) { signOutReason = reason })

	_, err := c.Zones(context.Background())
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	if serverHit {
		t.Fatal("request must not be sent once the local expiry has passed")
	}
	if signOutReason == "" {
		t.Fatal("expected the sign-out callback to fire")
	}
	if sess, _ := store.Load(); sess != nil {
		t.Fatal("session should be cleared")
	}
}

func TestServer401SignsOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":"Invalid token."}`)
	}))
	defer srv.Close()

	store := &MemorySessionStore{}
	// Locally the session still looks fresh; the server disagrees
	_ = store.Save(validSession())

	signedOut := false
	c := New(srv.URL, store, func(string) { signedOut = true })

	_, err := c.Zones(context.Background())
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	if !signedOut {
		t.Fatal("401 must trigger sign-out even when the local expiry check passed")
	}
	if sess, _ := store.Load(); sess != nil {
		t.Fatal("session should be cleared after a 401")
	}
}

func TestNotLoggedIn(t *testing.T) {
	c := New("http://unused", &MemorySessionStore{}, nil)
	if _, err := c.Zones(context.Background()); !errors.Is(err, ErrNotLoggedIn) {
		t.Fatalf("expected ErrNotLoggedIn, got %v", err)
	}
}

func TestLoginStoresSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/login" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprintf(w, `{"token":"fresh-token","user":{"id":"admin","forceKeyChange":true},"expiresAt":%d}`,
			time.Now().Add(24*time.Hour).UnixMilli())
	}))
	defer srv.Close()

	store := &MemorySessionStore{}
	c := New(srv.URL, store, nil)

	sess, err := c.Login(context.Background(), "the-key")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if sess.Token != "fresh-token" || !sess.User.ForceKeyChange {
		t.Fatalf("unexpected session %+v", sess)
	}
	stored, _ := store.Load()
	if stored == nil || stored.Token != "fresh-token" {
		t.Fatalf("session not persisted: %+v", stored)
	}
}

func TestLogoutClearsLocallyDespiteServerFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	store := &MemorySessionStore{}
	_ = store.Save(validSession())
	c := New(srv.URL, store, nil)

	if err := c.Logout(context.Background()); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if sess, _ := store.Load(); sess != nil {
		t.Fatal("local session should be cleared regardless of the server")
	}
}

func TestCheckExpiry(t *testing.T) {
	store := &MemorySessionStore{}
	c := New("http://unused", store, nil)

	if c.CheckExpiry() {
		t.Fatal("no session should mean no sign-out")
	}

	_ = store.Save(validSession())
	if c.CheckExpiry() {
		t.Fatal("fresh session should not sign out")
	}

	_ = store.Save(&Session{Token: "t", ExpiresAt: time.Now().Add(-time.Second).UnixMilli()})
	if !c.CheckExpiry() {
		t.Fatal("expired session should sign out")
	}
	if sess, _ := store.Load(); sess != nil {
		t.Fatal("session should be cleared")
	}
}

func TestFileSessionStoreRoundTrip(t *testing.T) {
	path := t.TempDir() + "/session.json"
	store := NewFileSessionStore(path)

	if sess, err := store.Load(); err != nil || sess != nil {
		t.Fatalf("expected empty store, got %v, %v", sess, err)
	}

	want := validSession()
	if err := store.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Token != want.Token || got.ExpiresAt != want.ExpiresAt || got.User != want.User {
		t.Fatalf("round trip mismatch: %+v vs %+v", got, want)
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if sess, _ := store.Load(); sess != nil {
		t.Fatal("expected cleared store")
	}
}
