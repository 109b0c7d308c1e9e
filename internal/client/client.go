// Package client is the API client with managed login state. It
// persists the session token and its expiry, attaches the token to
// every request, refuses to send once the expiry has passed, and signs
// out on any 401 from the server regardless of what the local clock
// says.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"cfadmin/internal/model"
)

const expiryCheckInterval = 60 * time.Second

var (
	ErrNotLoggedIn    = errors.New("not logged in")
	ErrSessionExpired = errors.New("session expired, please login again")
)

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %s (status %d)", e.Message, e.Status)
}

type Client struct {
	baseURL  string
	http     *http.Client
	sessions SessionStore

	// onSignOut is invoked whenever the session is torn down, whether
	// by a local expiry check or a 401 from the server. Injected so the
	// owning application decides what sign-out means.
	onSignOut func(reason string)
}

func New(baseURL string, sessions SessionStore, onSignOut func(reason string)) *Client {
	if onSignOut == nil {
		onSignOut = func(string) {}
	}
	return &Client{
		baseURL:   baseURL,
		http:      http.DefaultClient,
		sessions:  sessions,
		onSignOut: onSignOut,
	}
}

// Login authenticates with the shared key and persists the returned
// session.
func (c *Client) Login(ctx context.Context, loginKey string) (*Session, error) {
	body, _ := json.Marshal(map[string]string{"loginKey": loginKey})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/auth/login", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp)
	}

	var result struct {
		Token     string     `json:"token"`
		User      model.User `json:"user"`
		ExpiresAt int64      `json:"expiresAt"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	sess := &Session{Token: result.Token, User: result.User, ExpiresAt: result.ExpiresAt}
	if err := c.sessions.Save(sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Logout clears the local session first, then notifies the server on a
// best-effort basis. Server failures are ignored; the token simply
// ages out.
func (c *Client) Logout(ctx context.Context) error {
	sess, err := c.sessions.Load()
	if err != nil {
		return err
	}
	c.signOut("logout")
	if sess == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/auth/logout", nil)
	if err != nil {
		return nil
	}
	req.Header.Set("Authorization", "Bearer "+sess.Token)
	if resp, err := c.http.Do(req); err == nil {
		resp.Body.Close()
	}
	return nil
}

// StartExpiryWatcher signs out opportunistically once the stored expiry
// passes, even when no request is in flight. Runs until ctx is done.
func (c *Client) StartExpiryWatcher(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(expiryCheckInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.CheckExpiry()
			}
		}
	}()
}

// CheckExpiry signs out if the stored session has already expired.
// Returns true when a sign-out happened.
func (c *Client) CheckExpiry() bool {
	sess, err := c.sessions.Load()
	if err != nil || sess == nil {
		return false
	}
	if time.Now().UnixMilli() >= sess.ExpiresAt {
		c.signOut("session expired")
		return true
	}
	return false
}

func (c *Client) signOut(reason string) {
	_ = c.sessions.Clear()
	c.onSignOut(reason)
}

// do sends an authenticated request. An already-expired local session
// blocks the request entirely; a 401 from the server signs out even
// when the local check passed.
func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	sess, err := c.sessions.Load()
	if err != nil {
		return err
	}
	if sess == nil {
		return ErrNotLoggedIn
	}
	if time.Now().UnixMilli() >= sess.ExpiresAt {
		c.signOut("session expired")
		return ErrSessionExpired
	}

	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+sess.Token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.signOut("server rejected session")
		return ErrSessionExpired
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	msg := "request failed"
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		if body.Error != "" {
			msg = body.Error
		} else if body.Message != "" {
			msg = body.Message
		}
	}
	return &APIError{Status: resp.StatusCode, Message: msg}
}

type ConfigInfo struct {
	HasAPIToken bool    `json:"hasApiToken"`
	LastUpdated *string `json:"lastUpdated"`
}

type TestResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type AuditPage struct {
	Entries []AuditEntry `json:"entries"`
	Total   int          `json:"total"`
}

type AuditEntry struct {
	ID         int64  `json:"id"`
	Subject    string `json:"subject"`
	Action     string `json:"action"`
	ZoneID     string `json:"zoneId"`
	RecordName string `json:"recordName"`
	RecordType string `json:"recordType"`
	Detail     string `json:"detail"`
	IPAddress  string `json:"ipAddress"`
	CreatedAt  string `json:"createdAt"`
}

func (c *Client) Zones(ctx context.Context) ([]model.Zone, error) {
	var result struct {
		Result []model.Zone `json:"result"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/dns/zones", nil, &result); err != nil {
		return nil, err
	}
	return result.Result, nil
}

func (c *Client) Records(ctx context.Context, zoneID string) ([]model.DNSRecord, error) {
	var result struct {
		Result []model.DNSRecord `json:"result"`
	}
	path := "/api/dns/zones/" + zoneID + "/records"
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return result.Result, nil
}

func (c *Client) CreateRecord(ctx context.Context, zoneID string, fields model.RecordFields) (model.DNSRecord, error) {
	var rec model.DNSRecord
	path := "/api/dns/zones/" + zoneID + "/records"
	err := c.do(ctx, http.MethodPost, path, fields, &rec)
	return rec, err
}

func (c *Client) UpdateRecord(ctx context.Context, zoneID, recordID string, fields model.RecordFields) (model.DNSRecord, error) {
	var rec model.DNSRecord
	path := "/api/dns/zones/" + zoneID + "/records/" + recordID
	err := c.do(ctx, http.MethodPut, path, fields, &rec)
	return rec, err
}

func (c *Client) DeleteRecord(ctx context.Context, zoneID, recordID string) error {
	path := "/api/dns/zones/" + zoneID + "/records/" + recordID
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) ToggleProxied(ctx context.Context, zoneID, recordID string) (model.DNSRecord, error) {
	var rec model.DNSRecord
	path := "/api/dns/zones/" + zoneID + "/records/" + recordID + "/toggle-proxied"
	err := c.do(ctx, http.MethodPost, path, nil, &rec)
	return rec, err
}

func (c *Client) Config(ctx context.Context) (ConfigInfo, error) {
	var info ConfigInfo
	err := c.do(ctx, http.MethodGet, "/api/config", nil, &info)
	return info, err
}

func (c *Client) SetAPIToken(ctx context.Context, token string) error {
	body := map[string]string{"apiToken": token}
	return c.do(ctx, http.MethodPut, "/api/config/cloudflare-token", body, nil)
}

// SetLoginKey rotates the shared login key, then signs out locally: the
// old token stays cryptographically valid, so the client limits the
// window by discarding it immediately.
func (c *Client) SetLoginKey(ctx context.Context, currentKey, newKey, confirmKey string) error {
	body := map[string]string{
		"currentKey": currentKey,
		"newKey":     newKey,
		"confirmKey": confirmKey,
	}
	if err := c.do(ctx, http.MethodPut, "/api/config/login-key", body, nil); err != nil {
		return err
	}
	c.signOut("login key rotated")
	return nil
}

func (c *Client) TestConnection(ctx context.Context) (TestResult, error) {
	var result TestResult
	err := c.do(ctx, http.MethodPost, "/api/config/test-cloudflare", nil, &result)
	return result, err
}

func (c *Client) Audit(ctx context.Context, limit, offset int) (AuditPage, error) {
	var page AuditPage
	path := "/api/audit?limit=" + strconv.Itoa(limit) + "&offset=" + strconv.Itoa(offset)
	err := c.do(ctx, http.MethodGet, path, nil, &page)
	return page, err
}
