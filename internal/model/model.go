package model

import "time"

type Zone struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type DNSRecord struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Name    string `json:"name"`
	Content string `json:"content"`
	TTL     int    `json:"ttl"`
	Proxied bool   `json:"proxied"`
}

// RecordFields is the writable subset of a DNS record. The provider
// requires every field on updates, not just the changed ones.
type RecordFields struct {
	Type    string `json:"type"`
	Name    string `json:"name"`
	Content string `json:"content"`
	TTL     int    `json:"ttl"`
	Proxied bool   `json:"proxied"`
}

type User struct {
	ID             string `json:"id"`
	ForceKeyChange bool   `json:"forceKeyChange"`
}

// Credentials is the singleton credential record: the hashed login key
// plus the remote provider API token. Exactly one row exists per
// deployment.
type Credentials struct {
	LoginKeyHash   string
	APIToken       string
	ForceKeyChange bool
	LastUpdated    *time.Time
}

type AuditEntry struct {
	ID         int64
	Subject    string
	Action     string
	ZoneID     string
	RecordName string
	RecordType string
	Detail     string
	IPAddress  string
	CreatedAt  time.Time
}
