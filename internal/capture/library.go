package capture

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-capture/internal/store"
)

const (
	// LibraryKey is the store key holding the capture library.
	LibraryKey = "capture:library"

	// DefaultLibrarySize bounds how many captures the library keeps.
	DefaultLibrarySize = 5 * DigestMaxItems
)

// libraryItem is the persisted form of a ContentItem.
type libraryItem struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	Concepts  []string  `json:"concepts"`
	CreatedAt time.Time `json:"created_at"`
}

// KVContentStore is a ContentStore persisted as one JSON document in a
// store.KVStore, so the library digest survives restarts. The oldest
// captures are dropped beyond its size.
type KVContentStore struct {
	kv   store.KVStore
	size int

	mu     sync.Mutex
	loaded bool
	items  []libraryItem
}

var _ ContentStore = (*KVContentStore)(nil)

// NewKVContentStore creates a KVContentStore. A non-positive size uses
// DefaultLibrarySize.
func NewKVContentStore(kv store.KVStore, size int) (*KVContentStore, error) {
	if kv == nil {
		return nil, errors.New("store cannot be nil")
	}
	if size <= 0 {
		size = DefaultLibrarySize
	}
	return &KVContentStore{kv: kv, size: size}, nil
}

// RecentItems implements ContentStore.
func (s *KVContentStore) RecentItems(ctx context.Context, limit int) ([]ContentItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(ctx); err != nil {
		return nil, err
	}

	items := make([]ContentItem, 0, len(s.items))
	for i := len(s.items) - 1; i >= 0; i-- {
		it := s.items[i]
		items = append(items, ContentItem{
			ID:        it.ID,
			URL:       it.URL,
			Title:     it.Title,
			Concepts:  append([]string(nil), it.Concepts...),
			CreatedAt: it.CreatedAt,
		})
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	if limit >= 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// SaveCapture implements ContentStore. The URL doubles as the title. When
// the write fails the capture is not kept.
func (s *KVContentStore) SaveCapture(ctx context.Context, c Capture) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(ctx); err != nil {
		return "", err
	}

	id := uuid.New().String()
	next := append(append([]libraryItem(nil), s.items...), libraryItem{
		ID:        id,
		URL:       c.URL,
		Title:     c.URL,
		Concepts:  append([]string(nil), c.Concepts...),
		CreatedAt: c.CreatedAt,
	})
	if over := len(next) - s.size; over > 0 {
		next = next[over:]
	}

	data, err := json.Marshal(next)
	if err != nil {
		return "", fmt.Errorf("encode capture library: %w", err)
	}
	if err := s.kv.Put(ctx, LibraryKey, data); err != nil {
		return "", fmt.Errorf("save capture library: %w", err)
	}
	s.items = next
	return id, nil
}

func (s *KVContentStore) loadLocked(ctx context.Context) error {
	if s.loaded {
		return nil
	}

	data, err := s.kv.Get(ctx, LibraryKey)
	switch {
	case store.IsNotFoundError(err):
		s.items = nil
	case err != nil:
		return fmt.Errorf("load capture library: %w", err)
	default:
		var items []libraryItem
		if err := json.Unmarshal(data, &items); err != nil {
			// A corrupt library only degrades the digest; start over.
			items = nil
		}
		s.items = items
	}
	s.loaded = true
	return nil
}
