package syncclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/scry-capture/internal/outbox"
	"github.com/phrazzld/scry-capture/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCredentials is a Credentials backed by functions.
type fakeCredentials struct {
	ResolveFn   func(ctx context.Context) (string, error)
	invalidated int
}

func (f *fakeCredentials) Resolve(ctx context.Context) (string, error) {
	if f.ResolveFn == nil {
		return "test-token", nil
	}
	return f.ResolveFn(ctx)
}

func (f *fakeCredentials) Invalidate() {
	f.invalidated++
}

// ingestServer records every delivered body and answers with statusFn.
type ingestServer struct {
	mu       sync.Mutex
	bodies   []string
	headers  []http.Header
	statusFn func(body string) int
	delay    time.Duration
}

func (s *ingestServer) handle(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-r.Context().Done():
			return
		}
	}

	s.mu.Lock()
	s.bodies = append(s.bodies, string(body))
	s.headers = append(s.headers, r.Header.Clone())
	s.mu.Unlock()

	status := http.StatusAccepted
	if s.statusFn != nil {
		status = s.statusFn(string(body))
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (s *ingestServer) received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.bodies))
	copy(out, s.bodies)
	return out
}

func newServer(t *testing.T, ingest *ingestServer) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	r.Post("/telemetry", ingest.handle)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func newQueue(t *testing.T, kv store.KVStore, items ...string) *outbox.Outbox {
	t.Helper()
	q, err := outbox.New("telemetry", kv)
	require.NoError(t, err)
	require.NoError(t, q.Load(context.Background()))
	for _, item := range items {
		q.Enqueue(context.Background(), []byte(item))
	}
	return q
}

func queued(q *outbox.Outbox) []string {
	var out []string
	for _, e := range q.Entries() {
		out = append(out, string(e.Payload))
	}
	return out
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient("not a url", &fakeCredentials{})
	assert.Error(t, err)

	_, err = NewClient("https://api.example.com", nil)
	assert.Error(t, err)

	c, err := NewClient("https://api.example.com/", &fakeCredentials{})
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com", c.baseURL)
}

func TestDrainDeliversInOrder(t *testing.T) {
	ingest := &ingestServer{}
	srv := newServer(t, ingest)
	client, err := NewClient(srv.URL, &fakeCredentials{})
	require.NoError(t, err)
	q := newQueue(t, store.NewMemoryKVStore(), `{"n":1}`, `{"n":2}`, `{"n":3}`)

	delivered, err := client.Drain(context.Background(), q, "/telemetry")

	require.NoError(t, err)
	assert.Equal(t, 3, delivered)
	assert.Equal(t, []string{`{"n":1}`, `{"n":2}`, `{"n":3}`}, ingest.received())
	assert.Equal(t, 0, q.Len())
}

func TestDrainSetsHeaders(t *testing.T) {
	ingest := &ingestServer{}
	srv := newServer(t, ingest)
	client, err := NewClient(srv.URL, &fakeCredentials{}, WithUserAgent("scry-test/2"))
	require.NoError(t, err)
	q := newQueue(t, store.NewMemoryKVStore(), `{}`)

	_, err = client.Drain(context.Background(), q, "/telemetry")
	require.NoError(t, err)

	require.Len(t, ingest.headers, 1)
	h := ingest.headers[0]
	assert.Equal(t, "Bearer test-token", h.Get("Authorization"))
	assert.Equal(t, "application/json", h.Get("Content-Type"))
	assert.Equal(t, "scry-test/2", h.Get("User-Agent"))
	assert.Equal(t, "telemetry", h.Get(HeaderOutboxName))
}

func TestDrainEmptyQueue(t *testing.T) {
	ingest := &ingestServer{}
	srv := newServer(t, ingest)
	client, err := NewClient(srv.URL, &fakeCredentials{})
	require.NoError(t, err)

	delivered, err := client.Drain(context.Background(), newQueue(t, store.NewMemoryKVStore()), "/telemetry")

	require.NoError(t, err)
	assert.Equal(t, 0, delivered)
	assert.Empty(t, ingest.received())
}

func TestDrainStopsAtFirstFailure(t *testing.T) {
	ingest := &ingestServer{statusFn: func(body string) int {
		if body == "b" {
			return http.StatusInternalServerError
		}
		return http.StatusOK
	}}
	srv := newServer(t, ingest)
	client, err := NewClient(srv.URL, &fakeCredentials{})
	require.NoError(t, err)
	q := newQueue(t, store.NewMemoryKVStore(), "a", "b", "c")

	delivered, err := client.Drain(context.Background(), q, "/telemetry")

	assert.Equal(t, 1, delivered)
	var serverErr *ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, http.StatusInternalServerError, serverErr.StatusCode)
	assert.Equal(t, "telemetry", serverErr.Outbox)
	assert.Equal(t, []string{"a", "b"}, ingest.received(), "c is never attempted")
	assert.Equal(t, []string{"b", "c"}, queued(q))
}

func TestDrainResumesInOrderAfterFailure(t *testing.T) {
	var failing atomic.Bool
	failing.Store(true)
	ingest := &ingestServer{statusFn: func(body string) int {
		if body == "c" && failing.Load() {
			return http.StatusBadGateway
		}
		return http.StatusOK
	}}
	srv := newServer(t, ingest)
	client, err := NewClient(srv.URL, &fakeCredentials{})
	require.NoError(t, err)
	kv := store.NewMemoryKVStore()
	q := newQueue(t, kv, "a", "b", "c", "d", "e")

	delivered, err := client.Drain(context.Background(), q, "/telemetry")

	assert.Equal(t, 2, delivered)
	var serverErr *ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, http.StatusBadGateway, serverErr.StatusCode)
	assert.Equal(t, []string{"c", "d", "e"}, queued(q))

	failing.Store(false)
	reloaded := newQueue(t, kv)
	require.Equal(t, []string{"c", "d", "e"}, queued(reloaded))

	delivered, err = client.Drain(context.Background(), reloaded, "/telemetry")

	require.NoError(t, err)
	assert.Equal(t, 3, delivered)
	assert.Equal(t, []string{"a", "b", "c", "c", "d", "e"}, ingest.received())
	assert.Equal(t, 0, reloaded.Len())
}

func TestDrainWithoutCredential(t *testing.T) {
	ingest := &ingestServer{}
	srv := newServer(t, ingest)
	creds := &fakeCredentials{ResolveFn: func(context.Context) (string, error) {
		return "", ErrNoCredential
	}}
	client, err := NewClient(srv.URL, creds)
	require.NoError(t, err)
	q := newQueue(t, store.NewMemoryKVStore(), "a")

	delivered, err := client.Drain(context.Background(), q, "/telemetry")

	assert.ErrorIs(t, err, ErrNoCredential)
	assert.Equal(t, 0, delivered)
	assert.Empty(t, ingest.received())
	assert.Equal(t, 1, q.Len())
}

func TestDrainCredentialFailure(t *testing.T) {
	boom := errors.New("keychain locked")
	client, err := NewClient("https://api.example.com", &fakeCredentials{ResolveFn: func(context.Context) (string, error) {
		return "", boom
	}})
	require.NoError(t, err)

	_, err = client.Drain(context.Background(), newQueue(t, store.NewMemoryKVStore(), "a"), "/telemetry")

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, 0, authErr.StatusCode)
	assert.ErrorIs(t, err, boom)
}

func TestDrainRejectedCredential(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			ingest := &ingestServer{statusFn: func(string) int { return status }}
			srv := newServer(t, ingest)
			creds := &fakeCredentials{}
			client, err := NewClient(srv.URL, creds)
			require.NoError(t, err)
			q := newQueue(t, store.NewMemoryKVStore(), "a", "b")

			delivered, err := client.Drain(context.Background(), q, "/telemetry")

			assert.Equal(t, 0, delivered)
			var authErr *AuthError
			require.ErrorAs(t, err, &authErr)
			assert.Equal(t, status, authErr.StatusCode)
			assert.Equal(t, 1, creds.invalidated)
			assert.Equal(t, 2, q.Len())
		})
	}
}

func TestDrainTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client, err := NewClient(url, &fakeCredentials{})
	require.NoError(t, err)
	q := newQueue(t, store.NewMemoryKVStore(), "a")

	delivered, err := client.Drain(context.Background(), q, "/telemetry")

	assert.Equal(t, 0, delivered)
	var transportErr *TransportError
	assert.ErrorAs(t, err, &transportErr)
	assert.Equal(t, 1, q.Len())
}

func TestDrainRequestTimeout(t *testing.T) {
	ingest := &ingestServer{delay: time.Second}
	srv := newServer(t, ingest)
	client, err := NewClient(srv.URL, &fakeCredentials{}, WithTimeout(50*time.Millisecond))
	require.NoError(t, err)
	q := newQueue(t, store.NewMemoryKVStore(), "a")

	delivered, err := client.Drain(context.Background(), q, "/telemetry")

	assert.Equal(t, 0, delivered)
	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, []string{"a"}, queued(q))
}

func TestDrainCancellationKeepsUnacknowledgedEntry(t *testing.T) {
	ingest := &ingestServer{delay: time.Second}
	srv := newServer(t, ingest)
	client, err := NewClient(srv.URL, &fakeCredentials{})
	require.NoError(t, err)
	q := newQueue(t, store.NewMemoryKVStore(), "a", "b")

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	delivered, err := client.Drain(ctx, q, "/telemetry")

	assert.Equal(t, 0, delivered)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"a", "b"}, queued(q))
}

func TestDrainCommitFailureHalts(t *testing.T) {
	ingest := &ingestServer{}
	srv := newServer(t, ingest)
	client, err := NewClient(srv.URL, &fakeCredentials{})
	require.NoError(t, err)
	kv := store.NewMemoryKVStore()
	q := newQueue(t, kv, "a", "b")
	kv.PutFn = func(context.Context, string, []byte) error { return errors.New("disk full") }

	delivered, err := client.Drain(context.Background(), q, "/telemetry")

	assert.ErrorIs(t, err, outbox.ErrPersistence)
	assert.Equal(t, 0, delivered)
	assert.Equal(t, []string{"a"}, ingest.received())
	assert.Equal(t, []string{"a", "b"}, queued(q), "uncommitted entry is delivered again next cycle")
}
