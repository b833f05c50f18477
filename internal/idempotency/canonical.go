package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// ComputeHash is SHA-256 over a canonical JSON serialization of body:
// object keys sorted, nested values normalized recursively (spec.md
// §4.3). body is typically a map[string]any decoded from the raw
// request. encoding/json already emits map[string]any keys in sorted
// order, so canonicalize's job is just to walk nested maps/slices
// consistently regardless of how body was constructed.
func ComputeHash(body any) string {
	buf, _ := json.Marshal(canonicalize(body))

	sum := sha256.Sum256(buf)

	return hex.EncodeToString(sum[:])
}

func canonicalize(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, vv := range val {
			out[k] = canonicalize(vv)
		}

		return out
	case []any:
		out := make([]any, len(val))
		for i, vv := range val {
			out[i] = canonicalize(vv)
		}

		return out
	default:
		return val
	}
}
