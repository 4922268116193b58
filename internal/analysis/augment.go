package analysis

import (
	"fmt"
	"strings"
	"time"

	"github.com/octobees/brandintel/internal/entity"
)

const (
	newAdWindow    = 7 * 24 * time.Hour
	maxNewAds      = 5
	adPreviewChars = 100
)

// Augment supplements the generated competitive lists from stored data.
//
// Each competitor without a steal-this entry gets one pointing at its most
// liked post; the first post seen wins ties. Ads started within the last
// seven days become watch-this entries, at most five, unless the generated
// list already names that competitor. Competitor names compare case-insensitively.
func Augment(in *entity.Insights, posts []entity.CompetitorPost, ads []entity.CompetitorAd, now time.Time) {
	in.StealThis = augmentSteal(in.StealThis, posts)
	in.WatchThis = augmentWatch(in.WatchThis, ads, now)
}

func augmentSteal(existing []entity.StealThis, posts []entity.CompetitorPost) []entity.StealThis {
	seen := make(map[string]bool, len(existing))
	for _, s := range existing {
		seen[nameKey(s.CompetitorName)] = true
	}

	var order []string
	top := make(map[string]entity.CompetitorPost)
	for _, p := range posts {
		key := nameKey(p.CompetitorName)
		best, ok := top[key]
		if !ok {
			order = append(order, key)
			top[key] = p
			continue
		}
		if p.Likes > best.Likes {
			top[key] = p
		}
	}

	for _, key := range order {
		if seen[key] {
			continue
		}
		p := top[key]
		existing = append(existing, entity.StealThis{
			CompetitorName: p.CompetitorName,
			PostURL:        p.URL,
			WhyItWorks:     fmt.Sprintf("High engagement: %d likes, %d comments", p.Likes, p.Comments),
		})
	}
	return existing
}

func augmentWatch(existing []entity.WatchThis, ads []entity.CompetitorAd, now time.Time) []entity.WatchThis {
	seen := make(map[string]bool, len(existing))
	for _, w := range existing {
		seen[nameKey(w.CompetitorName)] = true
	}

	cutoff := now.Add(-newAdWindow)
	added := 0
	for _, ad := range ads {
		if added == maxNewAds {
			break
		}
		if ad.StartedAt == nil || !ad.StartedAt.After(cutoff) {
			continue
		}
		name := ad.CompetitorName
		if name == "" {
			name = "Unknown"
		}
		if seen[nameKey(name)] {
			continue
		}
		body := ""
		if ad.Body != nil {
			body = truncate(*ad.Body, adPreviewChars)
		}
		existing = append(existing, entity.WatchThis{
			CompetitorName: name,
			AdPreview:      body,
			Observation:    "New ad started " + ad.StartedAt.UTC().Format("2006-01-02"),
		})
		added++
	}
	return existing
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
