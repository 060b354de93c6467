/*
Copyright © 2025 BlackEyes Artisan.

Released under MIT license.
*/

package cloudinary

import (
	"crypto/sha1" //nolint:gosec // Cloudinary signs requests with SHA-1.
	"encoding/hex"
	"sort"
	"strings"
)

// Parameters that are sent but never signed.
var unsignedParams = map[string]bool{
	"file":          true,
	"api_key":       true,
	"cloud_name":    true,
	"resource_type": true,
	"signature":     true,
}

// Sign computes the signature of the request parameters:
// non-empty params sorted by name, joined as "k1=v1&k2=v2", followed by the secret, hashed with SHA-1.
func Sign(params map[string]string, apiSecret string) string {
	names := make([]string, 0, len(params))
	for name, value := range params {
		if value == "" || unsignedParams[name] {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	for i, name := range names {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(name)
		sb.WriteByte('=')
		sb.WriteString(params[name])
	}
	sb.WriteString(apiSecret)

	sum := sha1.Sum([]byte(sb.String())) //nolint:gosec
	return hex.EncodeToString(sum[:])
}
