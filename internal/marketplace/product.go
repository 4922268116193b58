// Package marketplace extracts product identifiers from marketplace product URLs.
package marketplace

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/octobees/brandintel/internal/entity"
)

var (
	domainPattern = regexp.MustCompile(`(?i)amazon\.([a-z.]+)$`)
	// A product id is exactly ten alphanumerics with at least one digit.
	// Matching is done on whole path segments or whole query values so a
	// longer token is rejected instead of truncated.
	idPattern = regexp.MustCompile(`^[A-Z0-9]{10}$`)
	digit     = regexp.MustCompile(`[0-9]`)
)

// ExtractProduct returns the product id and regional domain code of a product URL.
// The id is taken from the segment after /dp/ or /product/, then from an asin
// query parameter, then from the first path segment shaped like a product id.
// Every source is normalised to upper case.
func ExtractProduct(raw string) (entity.ProductTarget, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return entity.ProductTarget{}, false
	}

	m := domainPattern.FindStringSubmatch(strings.ToLower(u.Hostname()))
	if m == nil {
		return entity.ProductTarget{}, false
	}
	domain := strings.Trim(m[1], ".")
	if domain == "" {
		return entity.ProductTarget{}, false
	}

	asin, ok := productID(u)
	if !ok {
		return entity.ProductTarget{}, false
	}
	return entity.ProductTarget{ASIN: asin, Domain: domain}, true
}

func productID(u *url.URL) (string, bool) {
	segments := strings.Split(u.Path, "/")

	for i, segment := range segments[:max(0, len(segments)-1)] {
		switch strings.ToLower(segment) {
		case "dp", "product":
			if id, ok := normalizeID(segments[i+1]); ok {
				return id, true
			}
		}
	}
	if id, ok := normalizeID(u.Query().Get("asin")); ok {
		return id, true
	}
	for _, segment := range segments {
		if id, ok := normalizeID(segment); ok {
			return id, true
		}
	}
	return "", false
}

func normalizeID(token string) (string, bool) {
	id := strings.ToUpper(strings.TrimSpace(token))
	if !idPattern.MatchString(id) || !digit.MatchString(id) {
		return "", false
	}
	return id, true
}

// Targets extracts and deduplicates product targets from urls, preserving first-seen order.
// URLs that cannot be parsed are returned separately.
func Targets(urls []string) (targets []entity.ProductTarget, rejected []string) {
	seen := make(map[entity.ProductTarget]struct{}, len(urls))
	for _, raw := range urls {
		target, ok := ExtractProduct(raw)
		if !ok {
			rejected = append(rejected, raw)
			continue
		}
		if _, dup := seen[target]; dup {
			continue
		}
		seen[target] = struct{}{}
		targets = append(targets, target)
	}
	return targets, rejected
}
