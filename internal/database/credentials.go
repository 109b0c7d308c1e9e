package database

import (
	"database/sql"
	"log"

	"golang.org/x/crypto/bcrypt"

	"cfadmin/internal/model"
)

// GetCredentials returns the singleton credential record, or nil when
// the deployment has not been seeded yet.
func (db *DB) GetCredentials() (*model.Credentials, error) {
	c := &model.Credentials{}
	var apiToken sql.NullString
	var lastUpdated sql.NullTime
	err := db.conn.QueryRow(
		"SELECT login_key_hash, api_token, force_key_change, last_updated FROM credentials WHERE id = 1",
	).Scan(&c.LoginKeyHash, &apiToken, &c.ForceKeyChange, &lastUpdated)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c.APIToken = apiToken.String
	if lastUpdated.Valid {
		t := lastUpdated.Time
		c.LastUpdated = &t
	}
	return c, nil
}

// SeedCredentials creates the credential record on first run with the
// bootstrap login key. The key is flagged for forced rotation. Does
// nothing when the record already exists.
func (db *DB) SeedCredentials(loginKey string) error {
	existing, err := db.GetCredentials()
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(loginKey), 12)
	if err != nil {
		return err
	}
	_, err = db.conn.Exec(
		"INSERT INTO credentials (id, login_key_hash, force_key_change) VALUES (1, $1, TRUE)",
		string(hash),
	)
	if err == nil {
		log.Println("Seeded credential record with bootstrap login key")
	}
	return err
}

// CheckLoginKey compares a submitted login key against the stored hash.
func (db *DB) CheckLoginKey(key string) (bool, error) {
	c, err := db.GetCredentials()
	if err != nil || c == nil {
		return false, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(c.LoginKeyHash), []byte(key)); err != nil {
		return false, nil
	}
	return true, nil
}

func (db *DB) GetAPIToken() (string, error) {
	var token sql.NullString
	err := db.conn.QueryRow("SELECT api_token FROM credentials WHERE id = 1").Scan(&token)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return token.String, err
}

func (db *DB) UpdateAPIToken(token string) error {
	_, err := db.conn.Exec(
		"UPDATE credentials SET api_token = $1, last_updated = NOW() WHERE id = 1",
		token,
	)
	return err
}

// UpdateLoginKey rotates the shared login key. last_updated tracks the
// API token only, so it is left alone here.
func (db *DB) UpdateLoginKey(newKey string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(newKey), 12)
	if err != nil {
		return err
	}
	_, err = db.conn.Exec(
		"UPDATE credentials SET login_key_hash = $1, force_key_change = FALSE WHERE id = 1",
		string(hash),
	)
	return err
}
