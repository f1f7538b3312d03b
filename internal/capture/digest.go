package capture

import (
	"sort"
	"time"

	"github.com/phrazzld/scry-capture/internal/analysis"
)

// Library digest limits.
const (
	DigestMaxItems    = 100
	DigestMaxTitle    = 80
	DigestMaxConcepts = 12
)

// ContentItem is one previously captured item.
type ContentItem struct {
	ID        string
	URL       string
	Title     string
	Concepts  []string
	CreatedAt time.Time
}

// BuildDigest reduces items to the most recently shared ones that have at
// least one concept, newest first. Titles are truncated by rune.
func BuildDigest(items []ContentItem) []analysis.DigestItem {
	eligible := make([]ContentItem, 0, len(items))
	for _, item := range items {
		if len(item.Concepts) > 0 {
			eligible = append(eligible, item)
		}
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].CreatedAt.After(eligible[j].CreatedAt)
	})
	if len(eligible) > DigestMaxItems {
		eligible = eligible[:DigestMaxItems]
	}

	digest := make([]analysis.DigestItem, 0, len(eligible))
	for _, item := range eligible {
		concepts := item.Concepts
		if len(concepts) > DigestMaxConcepts {
			concepts = concepts[:DigestMaxConcepts]
		}
		digest = append(digest, analysis.DigestItem{
			ID:        item.ID,
			Title:     truncateRunes(item.Title, DigestMaxTitle),
			Concepts:  append([]string(nil), concepts...),
			CreatedAt: item.CreatedAt,
		})
	}
	return digest
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
