package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"cfadmin/internal/model"
)

const DefaultAPIBase = "https://api.cloudflare.com/client/v4"

// Records of type AAAA pointing at the sentinel address are backed by
// an edge worker. Listings present them under a synthetic type with the
// record's own name as content. The remap is read-side only; writes
// send whatever the caller supplied.
const (
	workerSentinel = "100::"
	workerType     = "Worker"
)

// ErrNoAPIToken is returned when no provider token has been configured.
var ErrNoAPIToken = errors.New("no Cloudflare API token configured")

// ProviderError carries a non-success response from the provider,
// surfaced to the caller verbatim. Single attempt, no retries.
type ProviderError struct {
	Status  int
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("cloudflare: %s (status %d)", e.Message, e.Status)
}

// TokenSource yields the stored provider token. The token is mutable at
// runtime, so it is fetched per call rather than captured at startup.
type TokenSource interface {
	GetAPIToken() (string, error)
}

type DNSService struct {
	baseURL string
	tokens  TokenSource
	client  *http.Client
}

func NewDNSService(tokens TokenSource, baseURL string) *DNSService {
	if baseURL == "" {
		baseURL = DefaultAPIBase
	}
	return &DNSService{
		baseURL: baseURL,
		tokens:  tokens,
		client:  http.DefaultClient,
	}
}

type apiMessage struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type apiEnvelope struct {
	Success  bool            `json:"success"`
	Errors   []apiMessage    `json:"errors"`
	Messages []apiMessage    `json:"messages"`
	Result   json.RawMessage `json:"result"`
}

func (s *DNSService) ListZones(ctx context.Context) ([]model.Zone, error) {
	var zones []model.Zone
	if err := s.do(ctx, http.MethodGet, "/zones?per_page=50", nil, &zones); err != nil {
		return nil, err
	}
	return zones, nil
}

// ListRecords fetches every record in a zone, remapping sentinel AAAA
// records to the synthetic worker type. All other records pass through
// unchanged.
func (s *DNSService) ListRecords(ctx context.Context, zoneID string) ([]model.DNSRecord, error) {
	if zoneID == "" {
		return nil, errors.New("zone id is required")
	}
	var records []model.DNSRecord
	path := fmt.Sprintf("/zones/%s/dns_records?per_page=100", zoneID)
	if err := s.do(ctx, http.MethodGet, path, nil, &records); err != nil {
		return nil, err
	}
	for i, rec := range records {
		if rec.Type == "AAAA" && rec.Content == workerSentinel {
			records[i].Type = workerType
			records[i].Content = rec.Name
		}
	}
	return records, nil
}

func (s *DNSService) GetRecord(ctx context.Context, zoneID, recordID string) (model.DNSRecord, error) {
	var rec model.DNSRecord
	if zoneID == "" || recordID == "" {
		return rec, errors.New("zone id and record id are required")
	}
	path := fmt.Sprintf("/zones/%s/dns_records/%s", zoneID, recordID)
	err := s.do(ctx, http.MethodGet, path, nil, &rec)
	return rec, err
}

func (s *DNSService) CreateRecord(ctx context.Context, zoneID string, fields model.RecordFields) (model.DNSRecord, error) {
	var rec model.DNSRecord
	if zoneID == "" {
		return rec, errors.New("zone id is required")
	}
	path := fmt.Sprintf("/zones/%s/dns_records", zoneID)
	err := s.do(ctx, http.MethodPost, path, fields, &rec)
	return rec, err
}

func (s *DNSService) UpdateRecord(ctx context.Context, zoneID, recordID string, fields model.RecordFields) (model.DNSRecord, error) {
	var rec model.DNSRecord
	if zoneID == "" || recordID == "" {
		return rec, errors.New("zone id and record id are required")
	}
	path := fmt.Sprintf("/zones/%s/dns_records/%s", zoneID, recordID)
	err := s.do(ctx, http.MethodPut, path, fields, &rec)
	return rec, err
}

func (s *DNSService) DeleteRecord(ctx context.Context, zoneID, recordID string) error {
	if zoneID == "" || recordID == "" {
		return errors.New("zone id and record id are required")
	}
	path := fmt.Sprintf("/zones/%s/dns_records/%s", zoneID, recordID)
	return s.do(ctx, http.MethodDelete, path, nil, nil)
}

// ToggleProxied reads the current record, flips the proxied flag and
// re-issues a full update. The provider rejects partial update bodies.
func (s *DNSService) ToggleProxied(ctx context.Context, zoneID, recordID string) (model.DNSRecord, error) {
	rec, err := s.GetRecord(ctx, zoneID, recordID)
	if err != nil {
		return model.DNSRecord{}, err
	}
	fields := model.RecordFields{
		Type:    rec.Type,
		Name:    rec.Name,
		Content: rec.Content,
		TTL:     rec.TTL,
		Proxied: !rec.Proxied,
	}
	return s.UpdateRecord(ctx, zoneID, recordID, fields)
}

// VerifyToken issues a lightweight call against the provider to confirm
// the stored token is usable. Returns the provider's status message.
func (s *DNSService) VerifyToken(ctx context.Context) (string, error) {
	token, err := s.tokens.GetAPIToken()
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", ErrNoAPIToken
	}
	env, err := s.roundTrip(ctx, http.MethodGet, "/user/tokens/verify", token, nil)
	if err != nil {
		return "", err
	}
	if len(env.Messages) > 0 {
		return env.Messages[0].Message, nil
	}
	return "Token is valid and active", nil
}

func (s *DNSService) do(ctx context.Context, method, path string, body any, out any) error {
	token, err := s.tokens.GetAPIToken()
	if err != nil {
		return err
	}
	if token == "" {
		return ErrNoAPIToken
	}
	env, err := s.roundTrip(ctx, method, path, token, body)
	if err != nil {
		return err
	}
	if out != nil && len(env.Result) > 0 {
		if err := json.Unmarshal(env.Result, out); err != nil {
			return fmt.Errorf("failed to decode cloudflare result: %w", err)
		}
	}
	return nil
}

func (s *DNSService) roundTrip(ctx context.Context, method, path, token string, body any) (*apiEnvelope, error) {
	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cloudflare request failed: %w", err)
	}
	defer resp.Body.Close()

	var env apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil, fmt.Errorf("failed to decode cloudflare response: %w", err)
		}
		return nil, &ProviderError{Status: resp.StatusCode, Message: "Cloudflare API request failed"}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !env.Success {
		msg := "Cloudflare API request failed"
		if len(env.Errors) > 0 && env.Errors[0].Message != "" {
			msg = env.Errors[0].Message
		}
		return nil, &ProviderError{Status: resp.StatusCode, Message: msg}
	}
	return &env, nil
}
