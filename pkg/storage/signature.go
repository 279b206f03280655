package storage

import (
	"crypto/sha1" //nolint:gosec
	"encoding/hex"
	"sort"
	"strings"
)

// unsignedParams never take part in a request signature.
var unsignedParams = map[string]struct{}{
	"file":          {},
	"api_key":       {},
	"resource_type": {},
	"cloud_name":    {},
	"signature":     {},
}

// SignParams produces the provider request signature: non-empty params sorted by key,
// joined as k=v pairs with '&', suffixed with the secret, SHA-1, lowercase hex.
func SignParams(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v == "" {
			continue
		}
		if _, skip := unsignedParams[k]; skip {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}

	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + secret)) //nolint:gosec
	return hex.EncodeToString(sum[:])
}
