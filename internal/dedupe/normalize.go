// Package dedupe partitions candidate batches into unique items and
// duplicates, using exact content hashing and fuzzy text/URL similarity
// against a rolling corpus of previously seen records.
package dedupe

import (
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
)

// trackingParams are query parameters stripped during URL normalization.
// utm_* is handled as a prefix match.
var trackingParams = map[string]bool{
	"ref":    true,
	"fbclid": true,
}

// NormalizeURL canonicalizes a URL so that variants of the same resource
// compare equal: lowercase scheme and host, no www. prefix, no trailing
// slash, tracking query parameters removed. The path and remaining query
// string are preserved. Normalization is idempotent.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", eris.New("dedupe: empty url")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", eris.Wrapf(err, "dedupe: parse url %q", raw)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", eris.Errorf("dedupe: url %q has no scheme or host", raw)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Host)
	host = strings.TrimPrefix(host, "www.")
	u.Host = host

	u.Path = strings.TrimSuffix(u.Path, "/")
	u.Fragment = ""

	if u.RawQuery != "" {
		q := u.Query()
		for key := range q {
			if trackingParams[key] || strings.HasPrefix(key, "utm_") {
				q.Del(key)
			}
		}
		// Encode sorts keys, which keeps normalization stable regardless of
		// the original parameter order.
		u.RawQuery = q.Encode()
	}

	return u.String(), nil
}
