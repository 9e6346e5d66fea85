package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opsboard/internal/client/creds"
	"opsboard/internal/logging"
)

type memStore struct {
	mu   sync.Mutex
	pair creds.Pair
}

func (m *memStore) Get() creds.Pair {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pair
}

func (m *memStore) Set(p creds.Pair) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !p.Valid() {
		p = creds.Pair{}
	}
	m.pair = p
	return nil
}

func (m *memStore) Clear() error {
	return m.Set(creds.Pair{})
}

func (m *memStore) IsAuthenticated() bool {
	return m.Get().Valid()
}

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))
}

func newTestGateway(t *testing.T, handler http.Handler, pair creds.Pair) (*Gateway, *memStore) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	store := &memStore{pair: pair}
	return NewGateway(srv.URL, 5*time.Second, store, testLogger()), store
}

func TestCall_UnwrapsEnvelope(t *testing.T) {
	g, _ := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"id":"t1"}}`))
	}), creds.Pair{AccessToken: "acc", RefreshToken: "ref"})

	raw, err := g.Call(context.Background(), http.MethodGet, "/api/v1/tasks/t1", CallOptions{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"t1"}`, string(raw))
}

func TestCall_PassesThroughBareBody(t *testing.T) {
	g, _ := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"t1"}`))
	}), creds.Pair{AccessToken: "acc", RefreshToken: "ref"})

	raw, err := g.Call(context.Background(), http.MethodGet, "/api/v1/tasks/t1", CallOptions{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"t1"}`, string(raw))
}

func TestCall_AttachesBearerToken(t *testing.T) {
	var gotAuth string
	g, _ := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"data":{}}`))
	}), creds.Pair{AccessToken: "acc", RefreshToken: "ref"})

	_, err := g.Call(context.Background(), http.MethodGet, "/api/v1/users/me", CallOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Bearer acc", gotAuth)
}

func TestCall_NoAuthSkipsHeader(t *testing.T) {
	var gotAuth string
	g, _ := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"data":{}}`))
	}), creds.Pair{AccessToken: "acc", RefreshToken: "ref"})

	_, err := g.Call(context.Background(), http.MethodPost, "/api/v1/auth/login", CallOptions{NoAuth: true})
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestCall_ErrorMessagePrecedence(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"nested error message", `{"error":{"code":"conflict","message":"task already claimed"},"message":"outer"}`, "task already claimed"},
		{"top level message", `{"message":"not yours"}`, "not yours"},
		{"string error", `{"error":"broken"}`, "broken"},
		{"message beats string error", `{"error":"boom","message":"msg"}`, "msg"},
		{"fallback to status text", `not json at all`, "Conflict"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, _ := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusConflict)
				_, _ = w.Write([]byte(tt.body))
			}), creds.Pair{AccessToken: "acc", RefreshToken: "ref"})

			_, err := g.Call(context.Background(), http.MethodPost, "/api/v1/tasks/t1/claim", CallOptions{})
			var apiErr *Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, http.StatusConflict, apiErr.Status)
			assert.Equal(t, tt.want, apiErr.Message)
		})
	}
}

func TestCall_TransportErrorIsGeneric(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing is listening anymore

	store := &memStore{pair: creds.Pair{AccessToken: "acc", RefreshToken: "ref"}}
	g := NewGateway(srv.URL, time.Second, store, testLogger())

	_, err := g.Call(context.Background(), http.MethodGet, "/api/v1/tasks", CallOptions{})
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Zero(t, apiErr.Status)
	assert.Equal(t, "service unavailable", apiErr.Message)
}

func refreshingHandler(t *testing.T, refreshCalls *atomic.Int32) http.Handler {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		body, _ := io.ReadAll(r.Body)
		var req struct {
			RefreshToken string `json:"refreshToken"`
		}
		require.NoError(t, json.Unmarshal(body, &req))
		if req.RefreshToken != "ref-old" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"invalid refresh token"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"data":{"accessToken":"acc-new","refreshToken":"ref-new"}}`))
	})
	mux.HandleFunc("/api/v1/tasks", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer acc-new" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"token expired"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"data":{"items":[],"total":0}}`))
	})
	return mux
}

func TestCall_RefreshesAndRetriesOn401(t *testing.T) {
	var refreshCalls atomic.Int32
	g, store := newTestGateway(t, refreshingHandler(t, &refreshCalls),
		creds.Pair{AccessToken: "acc-old", RefreshToken: "ref-old"})

	raw, err := g.Call(context.Background(), http.MethodGet, "/api/v1/tasks", CallOptions{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"items":[],"total":0}`, string(raw))

	assert.Equal(t, int32(1), refreshCalls.Load())
	assert.Equal(t, creds.Pair{AccessToken: "acc-new", RefreshToken: "ref-new"}, store.Get())
}

func TestCall_ConcurrentExpiryTriggersOneRefresh(t *testing.T) {
	const workers = 5

	var refreshCalls atomic.Int32
	var expiredSeen atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		// let every rejected caller join the in-flight refresh
		for expiredSeen.Load() < workers {
			time.Sleep(time.Millisecond)
		}
		time.Sleep(20 * time.Millisecond)
		_, _ = w.Write([]byte(`{"data":{"accessToken":"acc-new","refreshToken":"ref-new"}}`))
	})
	mux.HandleFunc("/api/v1/tasks", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer acc-new" {
			expiredSeen.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"data":{"items":[],"total":0}}`))
	})

	g, store := newTestGateway(t, mux, creds.Pair{AccessToken: "acc-old", RefreshToken: "ref-old"})

	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = g.Call(context.Background(), http.MethodGet, "/api/v1/tasks", CallOptions{})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "worker %d", i)
	}
	assert.Equal(t, int32(1), refreshCalls.Load())
	assert.Equal(t, "acc-new", store.Get().AccessToken)
}

func TestCall_RefreshFailureClearsCredentials(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid refresh token"}}`))
	})
	mux.HandleFunc("/api/v1/tasks", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	g, store := newTestGateway(t, mux, creds.Pair{AccessToken: "acc", RefreshToken: "ref"})

	_, err := g.Call(context.Background(), http.MethodGet, "/api/v1/tasks", CallOptions{})
	require.ErrorIs(t, err, ErrAuthExpired)
	assert.False(t, store.IsAuthenticated())
}

func TestCall_RetryRejectedAgainClearsCredentials(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"accessToken":"acc-new","refreshToken":"ref-new"}}`))
	})
	var taskCalls atomic.Int32
	mux.HandleFunc("/api/v1/tasks", func(w http.ResponseWriter, r *http.Request) {
		taskCalls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})

	g, store := newTestGateway(t, mux, creds.Pair{AccessToken: "acc", RefreshToken: "ref"})

	_, err := g.Call(context.Background(), http.MethodGet, "/api/v1/tasks", CallOptions{})
	require.ErrorIs(t, err, ErrAuthExpired)
	assert.False(t, store.IsAuthenticated())
	// exactly one retry, never a loop
	assert.Equal(t, int32(2), taskCalls.Load())
}

func TestCall_NoRefreshTokenMeansLoggedOut(t *testing.T) {
	var refreshCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
	})
	mux.HandleFunc("/api/v1/tasks", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	g, _ := newTestGateway(t, mux, creds.Pair{})

	_, err := g.Call(context.Background(), http.MethodGet, "/api/v1/tasks", CallOptions{})
	require.ErrorIs(t, err, ErrAuthExpired)
	assert.Zero(t, refreshCalls.Load())
}

func TestLogin_PersistsPair(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"accessToken":"acc","refreshToken":"ref","user":{"id":"u1","username":"ann","roles":["member"]}}}`))
	})

	g, store := newTestGateway(t, mux, creds.Pair{})

	user, err := g.Login(context.Background(), "ann", "pass")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, creds.Pair{AccessToken: "acc", RefreshToken: "ref"}, store.Get())
}

func TestLogout_AlwaysClearsCredentials(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	g, store := newTestGateway(t, mux, creds.Pair{AccessToken: "acc", RefreshToken: "ref"})

	require.NoError(t, g.Logout(context.Background()))
	assert.False(t, store.IsAuthenticated())
}
