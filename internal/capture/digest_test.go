package capture

import (
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDigest(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	var items []ContentItem
	for i := 0; i < 130; i++ {
		items = append(items, ContentItem{
			ID:        fmt.Sprintf("item-%d", i),
			Title:     fmt.Sprintf("Title %d", i),
			Concepts:  []string{"concept"},
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
	items = append(items, ContentItem{
		ID:        "no-concepts",
		Title:     "Newest but empty",
		CreatedAt: base.Add(24 * time.Hour),
	})

	digest := BuildDigest(items)

	require.Len(t, digest, DigestMaxItems)
	assert.Equal(t, "item-129", digest[0].ID, "newest first")
	assert.Equal(t, "item-30", digest[len(digest)-1].ID)
	for _, d := range digest {
		assert.NotEqual(t, "no-concepts", d.ID)
	}
}

func TestBuildDigestTruncates(t *testing.T) {
	concepts := make([]string, 20)
	for i := range concepts {
		concepts[i] = fmt.Sprintf("c%d", i)
	}
	title := strings.Repeat("é", 100)

	digest := BuildDigest([]ContentItem{{ID: "x", Title: title, Concepts: concepts, CreatedAt: time.Now()}})

	require.Len(t, digest, 1)
	assert.Equal(t, DigestMaxTitle, utf8.RuneCountInString(digest[0].Title))
	assert.True(t, utf8.ValidString(digest[0].Title))
	assert.Len(t, digest[0].Concepts, DigestMaxConcepts)
	assert.Equal(t, "c0", digest[0].Concepts[0])
}

func TestBuildDigestEmpty(t *testing.T) {
	assert.Empty(t, BuildDigest(nil))
	assert.Empty(t, BuildDigest([]ContentItem{{ID: "x", Title: "no concepts"}}))
}

func TestHashUserID(t *testing.T) {
	a := HashUserID("user-1")

	assert.Len(t, a, 64)
	assert.Equal(t, a, HashUserID("user-1"))
	assert.NotEqual(t, a, HashUserID("user-2"))
	assert.NotContains(t, a, "user-1")
}
