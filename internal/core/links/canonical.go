package links

import (
	"net/url"
	"sort"
	"strings"
)

const wwwPrefix = "www."

// trackingParams are dropped from canonical URLs. Entries ending in "_" match by prefix.
var trackingParams = []string{
	"utm_",
	"mc_",
	"fbclid",
	"gclid",
	"dclid",
	"yclid",
	"igshid",
	"ref",
	"ref_src",
	"cmpid",
	"spm",
}

// Canonical normalizes a URL into the stable identity key used for dedup and caching:
// lowercase scheme and host, no fragment, no tracking parameters, sorted query, no trailing slash.
// Unparseable input is returned trimmed.
func Canonical(raw string) string {
	raw = strings.TrimSpace(raw)

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.TrimSuffix(raw, "/")
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""

	if u.RawQuery != "" {
		u.RawQuery = canonicalQuery(u.Query())
	}

	u.Path = strings.TrimSuffix(u.Path, "/")
	u.RawPath = strings.TrimSuffix(u.RawPath, "/")

	return u.String()
}

func canonicalQuery(values url.Values) string {
	keys := make([]string, 0, len(values))

	for key := range values {
		if isTrackingParam(key) {
			continue
		}

		keys = append(keys, key)
	}

	if len(keys) == 0 {
		return ""
	}

	sort.Strings(keys)

	kept := url.Values{}
	for _, key := range keys {
		kept[key] = values[key]
	}

	return kept.Encode()
}

func isTrackingParam(key string) bool {
	key = strings.ToLower(key)

	for _, param := range trackingParams {
		if strings.HasSuffix(param, "_") {
			if strings.HasPrefix(key, param) {
				return true
			}

			continue
		}

		if key == param {
			return true
		}
	}

	return false
}

// Host returns the normalized host of a URL without port and "www." prefix.
func Host(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}

	return normalizeDomain(u.Hostname())
}

// HostMatches reports whether host equals domain or is a subdomain of it.
func HostMatches(host, domain string) bool {
	host = normalizeDomain(host)
	domain = normalizeDomain(domain)

	if host == "" || domain == "" {
		return false
	}

	return host == domain || strings.HasSuffix(host, "."+domain)
}

func normalizeDomain(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	host = strings.TrimPrefix(host, wwwPrefix)

	return host
}
