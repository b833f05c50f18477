// Package vault tokenizes and detokenizes PANs, charges a token through
// a provider, and rotates envelope-encryption keys (spec.md §4.13),
// grounded on vault_service/main.py + shared/crypto.py's VaultCrypto.
//
// The original implementation encrypts with Fernet/MultiFernet
// (github.com/fernet has no maintained Go port exercised anywhere in
// the example pack); this package reproduces the same envelope/rotation
// semantics with AES-256-GCM from the standard library instead — see
// DESIGN.md for why no third-party AEAD library from the pack fits
// better than crypto/cipher here.
package vault

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/brackwater/payrail/internal/domain/vault"
	"github.com/brackwater/payrail/internal/idgen"
	"github.com/brackwater/payrail/internal/mtrace"
	"github.com/brackwater/payrail/internal/store"
)

const (
	keyRingKey  = "vault/keys.json"
	accessLogKey = "vault/access_log.jsonl"
)

func recordKey(token string) string     { return "vault/tokens/" + token + ".json" }
func ciphertextKey(token string) string { return "vault/cards/" + token + ".json" }

// ErrUnknownToken is returned when a token has no vault record.
var ErrUnknownToken = errors.New("vault: unknown token")

// Vault tokenizes PANs and manages the envelope-encryption key ring.
type Vault struct {
	store store.Store
}

// New builds a Vault backed by st.
func New(st store.Store) *Vault {
	return &Vault{store: st}
}

func detectBrand(pan string) string {
	switch {
	case strings.HasPrefix(pan, "37"):
		return "amex"
	case strings.HasPrefix(pan, "4"):
		return "visa"
	case strings.HasPrefix(pan, "5"):
		return "mastercard"
	case strings.HasPrefix(pan, "6"):
		return "discover"
	default:
		return "unknown"
	}
}

func (v *Vault) loadKeyRing(ctx context.Context) (vault.KeyRing, error) {
	var kr vault.KeyRing

	err := v.store.ReadJSON(ctx, keyRingKey, &kr)
	if err == store.ErrNotFound {
		key, genErr := generateKey()
		if genErr != nil {
			return vault.KeyRing{}, genErr
		}

		kr = vault.KeyRing{Keys: []vault.Key{{ID: 1, Hex: key, CreatedAt: time.Now().UTC()}}}

		if writeErr := v.store.WriteJSON(ctx, keyRingKey, kr); writeErr != nil {
			return vault.KeyRing{}, writeErr
		}

		return kr, nil
	}
	if err != nil {
		return vault.KeyRing{}, err
	}

	return kr, nil
}

func generateKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", err
	}

	return hex.EncodeToString(buf), nil
}

func (v *Vault) keyByID(kr vault.KeyRing, id int) (vault.Key, bool) {
	for _, k := range kr.Keys {
		if k.ID == id {
			return k, true
		}
	}

	return vault.Key{}, false
}

func (v *Vault) seal(plaintext string, key vault.Key) (vault.Ciphertext, error) {
	keyBytes, err := hex.DecodeString(key.Hex)
	if err != nil {
		return vault.Ciphertext{}, err
	}

	block, err := aes.NewCipher(keyBytes)
	if err != nil {
		return vault.Ciphertext{}, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return vault.Ciphertext{}, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return vault.Ciphertext{}, err
	}

	sealed := gcm.Seal(nil, nonce, []byte(plaintext), nil)

	return vault.Ciphertext{
		KeyID: key.ID,
		Nonce: hex.EncodeToString(nonce),
		Data:  hex.EncodeToString(sealed),
	}, nil
}

func (v *Vault) open(ct vault.Ciphertext, key vault.Key) (string, error) {
	keyBytes, err := hex.DecodeString(key.Hex)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(keyBytes)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce, err := hex.DecodeString(ct.Nonce)
	if err != nil {
		return "", err
	}

	data, err := hex.DecodeString(ct.Data)
	if err != nil {
		return "", err
	}

	plain, err := gcm.Open(nil, nonce, data, nil)
	if err != nil {
		return "", err
	}

	return string(plain), nil
}

func (v *Vault) logAccess(ctx context.Context, action, token, requester, purpose string) error {
	line := vault.AccessLogLine{
		Timestamp:     time.Now().UTC(),
		Action:        action,
		Token:         token,
		Requester:     requester,
		Purpose:       purpose,
		CorrelationID: mtrace.CorrelationID(ctx),
	}

	return v.store.AppendJSONL(ctx, accessLogKey, line)
}

// Tokenize encrypts pan under the active key and returns a new token,
// recording the card's non-sensitive metadata alongside it.
func (v *Vault) Tokenize(ctx context.Context, pan, expiry, cardholderName, requester, purpose string) (string, error) {
	kr, err := v.loadKeyRing(ctx)
	if err != nil {
		return "", err
	}

	active := kr.Keys[0]

	ct, err := v.seal(pan, active)
	if err != nil {
		return "", err
	}

	token := idgen.Token()
	ct.Token = token

	lastFour := pan
	if len(pan) > 4 {
		lastFour = pan[len(pan)-4:]
	}

	rec := vault.Record{
		Token:          token,
		BIN:            bin(pan),
		LastFour:       lastFour,
		Expiry:         expiry,
		CardBrand:      detectBrand(pan),
		CardholderName: cardholderName,
		CreatedAt:      time.Now().UTC(),
	}

	if err := v.store.WriteJSON(ctx, recordKey(token), rec); err != nil {
		return "", err
	}

	if err := v.store.WriteJSON(ctx, ciphertextKey(token), ct); err != nil {
		return "", err
	}

	if err := v.logAccess(ctx, "tokenize", token, requester, purpose); err != nil {
		return "", err
	}

	return token, nil
}

func bin(pan string) string {
	if len(pan) < 6 {
		return pan
	}

	return pan[:6]
}

// Detokenize decrypts and returns the PAN behind token.
func (v *Vault) Detokenize(ctx context.Context, token, requester, purpose string) (string, error) {
	var ct vault.Ciphertext

	err := v.store.ReadJSON(ctx, ciphertextKey(token), &ct)
	if err == store.ErrNotFound {
		return "", fmt.Errorf("%w: %s", ErrUnknownToken, token)
	}
	if err != nil {
		return "", err
	}

	kr, err := v.loadKeyRing(ctx)
	if err != nil {
		return "", err
	}

	key, ok := v.keyByID(kr, ct.KeyID)
	if !ok {
		return "", fmt.Errorf("vault: key id %d no longer in key ring", ct.KeyID)
	}

	pan, err := v.open(ct, key)
	if err != nil {
		return "", err
	}

	if err := v.logAccess(ctx, "detokenize", token, requester, purpose); err != nil {
		return "", err
	}

	return pan, nil
}

// RecordFor returns the non-sensitive card metadata for token.
func (v *Vault) RecordFor(ctx context.Context, token string) (vault.Record, error) {
	var rec vault.Record

	err := v.store.ReadJSON(ctx, recordKey(token), &rec)
	if err == store.ErrNotFound {
		return vault.Record{}, fmt.Errorf("%w: %s", ErrUnknownToken, token)
	}

	return rec, err
}

// ChargeToken logs a charge-token access without exposing the PAN to the
// caller; the returned PAN is used internally by the provider client and
// must not be persisted or logged anywhere downstream.
func (v *Vault) ChargeToken(ctx context.Context, token, requester, purpose string) (string, error) {
	pan, err := v.Detokenize(ctx, token, requester, purpose)
	if err != nil {
		return "", err
	}

	if err := v.logAccess(ctx, "charge_token", token, requester, purpose); err != nil {
		return "", err
	}

	return pan, nil
}

// RotateKeys prepends a freshly generated key to the ring. The new key
// becomes active for future Tokenize calls; prior keys remain in the
// ring so Detokenize of older tokens still succeeds (spec.md §4.13).
func (v *Vault) RotateKeys(ctx context.Context, requester string) (int, error) {
	kr, err := v.loadKeyRing(ctx)
	if err != nil {
		return 0, err
	}

	newKeyHex, err := generateKey()
	if err != nil {
		return 0, err
	}

	nextID := 1
	for _, k := range kr.Keys {
		if k.ID >= nextID {
			nextID = k.ID + 1
		}
	}

	newKey := vault.Key{ID: nextID, Hex: newKeyHex, CreatedAt: time.Now().UTC()}
	kr.Keys = append([]vault.Key{newKey}, kr.Keys...)

	if err := v.store.WriteJSON(ctx, keyRingKey, kr); err != nil {
		return 0, err
	}

	if err := v.logAccess(ctx, "rotate_keys", "", requester, "key_rotation"); err != nil {
		return 0, err
	}

	return newKey.ID, nil
}
