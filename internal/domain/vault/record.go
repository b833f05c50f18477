// Package vault holds the VaultRecord entity and its access-log line
// (spec.md §3). The PAN itself never lives in this package; only
// envelope-encrypted ciphertext and card metadata do.
package vault

import "time"

// Record is the metadata kept alongside one tokenized PAN. It never
// contains the PAN or its ciphertext — those live in a separate
// ciphertext store keyed by the same token.
type Record struct {
	Token          string    `json:"token" example:"tok_1a2b3c4d5e6f7a8b9c0d1e2f"`
	BIN            string    `json:"bin"`
	LastFour       string    `json:"last_four"`
	Expiry         string    `json:"expiry"`
	CardBrand      string    `json:"card_brand"`
	CardholderName string    `json:"cardholder_name,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Ciphertext is the envelope-encrypted PAN for one token, stored
// separately from Record so a metadata read never touches key material.
type Ciphertext struct {
	Token     string `json:"token"`
	KeyID     int    `json:"key_id"`
	Nonce     string `json:"nonce"` // hex
	Data      string `json:"data"`  // hex, AES-GCM sealed box
}

// AccessLogLine is one append-only vault access-log entry, written on
// every read and write of a token.
type AccessLogLine struct {
	Timestamp     time.Time `json:"timestamp"`
	Action        string    `json:"action"` // tokenize, detokenize, charge_token, rotate_keys
	Token         string    `json:"token,omitempty"`
	Requester     string    `json:"requester"`
	Purpose       string    `json:"purpose"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// KeyRing is the persisted list of envelope-encryption keys, newest
// first. Index 0 is always used for new encryptions; any index may still
// be used to decrypt older ciphertexts (spec.md §4.13 rotate_keys).
type KeyRing struct {
	Keys []Key `json:"keys"`
}

// Key is one 32-byte AES-256 key, hex-encoded, with a stable ID so
// ciphertexts can name the key that sealed them.
type Key struct {
	ID        int    `json:"id"`
	Hex       string `json:"hex"`
	CreatedAt time.Time `json:"created_at"`
}
