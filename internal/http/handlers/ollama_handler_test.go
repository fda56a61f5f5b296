package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vrmchat/go-chat-backend/internal/auth"
	"github.com/vrmchat/go-chat-backend/internal/http/middleware"
	"github.com/vrmchat/go-chat-backend/internal/ollama"
	"github.com/vrmchat/go-chat-backend/internal/services"
)

// ---------- test plumbing ----------

type stubProxy struct {
	update func(ctx context.Context, userID int64, raw string) error
	check  func(ctx context.Context, userID int64) error
	relay  func(ctx context.Context, userID int64, model string, turns []ollama.Turn) (*ollama.Stream, error)
}

func (s stubProxy) UpdateEndpoint(ctx context.Context, uid int64, raw string) error {
	return s.update(ctx, uid, raw)
}

func (s stubProxy) CheckEndpoint(ctx context.Context, uid int64) error { return s.check(ctx, uid) }

func (s stubProxy) Relay(ctx context.Context, uid int64, model string, turns []ollama.Turn) (*ollama.Stream, error) {
	return s.relay(ctx, uid, model, turns)
}

// newChatUpstream fakes an Ollama chat endpoint streaming the given fragments
// as NDJSON chunks followed by a done marker.
func newChatUpstream(t *testing.T, fragments ...string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/x-ndjson")
		enc := json.NewEncoder(w)
		for _, f := range fragments {
			_ = enc.Encode(map[string]any{"message": map[string]string{"role": "assistant", "content": f}, "done": false})
		}
		_ = enc.Encode(map[string]any{"done": true})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newProxyRouter(mgr *auth.Manager, proxy ProxyService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := New(nil, nil, nil, proxy, nil, Options{})
	r := gin.New()
	r.Use(middleware.Authenticate(mgr))
	r.POST("/api/ollama/ask", h.RelayChat)
	r.PUT("/api/ollama/endpoint", h.UpdateEndpoint)
	r.GET("/api/ollama/endpoint/check", h.CheckEndpoint)
	return r
}

func doProxy(r *gin.Engine, method, path, authz, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	r.ServeHTTP(w, req)
	return w
}

// ---------- RelayChat ----------

func TestRelayChat_StreamsFragments(t *testing.T) {
	upstream := newChatUpstream(t, "Hel", "lo", "!")
	client := ollama.NewClient("/api/version", time.Second)

	mgr := newTestManager()
	var sawModel string
	r := newProxyRouter(mgr, stubProxy{
		relay: func(ctx context.Context, uid int64, model string, turns []ollama.Turn) (*ollama.Stream, error) {
			sawModel = model
			if uid != 42 {
				t.Fatalf("uid = %d", uid)
			}
			if len(turns) != 2 || turns[1].Role != "assistant" {
				t.Fatalf("turns not forwarded: %#v", turns)
			}
			return client.Chat(ctx, upstream.URL, model, turns)
		},
	})

	body := `{"model":"llama3","messages":[{"role":"user","content":"hi"},{"role":"assistant","content":"yo"}]}`
	w := doProxy(r, http.MethodPost, "/api/ollama/ask", bearerFor(t, mgr, 42), body)

	if w.Code != http.StatusOK {
		t.Fatalf("relay -> %d body=%s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}
	if w.Header().Get("X-Accel-Buffering") != "no" {
		t.Fatal("streaming responses must disable proxy buffering")
	}
	if got := w.Body.String(); got != "Hello!" {
		t.Fatalf("streamed body = %q", got)
	}
	if sawModel != "llama3" {
		t.Fatalf("model = %q", sawModel)
	}
}

func TestRelayChat_AuthValidationAndPreflight(t *testing.T) {
	mgr := newTestManager()
	r := newProxyRouter(mgr, stubProxy{
		relay: func(context.Context, int64, string, []ollama.Turn) (*ollama.Stream, error) {
			return nil, services.ErrEndpointUnreachable
		},
	})
	authz := bearerFor(t, mgr, 1)
	body := `{"model":"llama3","messages":[{"role":"user","content":"hi"}]}`

	// anonymous
	if w := doProxy(r, http.MethodPost, "/api/ollama/ask", "", body); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous -> %d", w.Code)
	}

	// binding: history role vocabulary ("ai") is not the upstream one
	bad := `{"model":"llama3","messages":[{"role":"ai","content":"hi"}]}`
	if w := doProxy(r, http.MethodPost, "/api/ollama/ask", authz, bad); w.Code != http.StatusBadRequest {
		t.Fatalf("bad role -> %d", w.Code)
	}
	if w := doProxy(r, http.MethodPost, "/api/ollama/ask", authz, `{"model":"llama3","messages":[]}`); w.Code != http.StatusBadRequest {
		t.Fatalf("empty messages -> %d", w.Code)
	}

	// pre-flight probe failure
	w := doProxy(r, http.MethodPost, "/api/ollama/ask", authz, body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("preflight -> %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "endpoint unreachable") {
		t.Fatalf("body: %s", w.Body.String())
	}
}

// ---------- UpdateEndpoint ----------

func TestUpdateEndpoint_StatusMapping(t *testing.T) {
	mgr := newTestManager()
	authz := bearerFor(t, mgr, 1)

	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"ok", nil, http.StatusNoContent},
		{"invalid_url", services.ErrInvalidEndpointURL, http.StatusUnprocessableEntity},
		{"unreachable", services.ErrEndpointUnreachable, http.StatusBadRequest},
		{"storage", context.DeadlineExceeded, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newProxyRouter(mgr, stubProxy{
				update: func(_ context.Context, _ int64, raw string) error {
					if raw != "http://up.example:11434" {
						t.Fatalf("url not forwarded: %q", raw)
					}
					return tc.err
				},
			})
			w := doProxy(r, http.MethodPut, "/api/ollama/endpoint", authz, `{"url":"http://up.example:11434"}`)
			if w.Code != tc.status {
				t.Fatalf("status %d, want %d (body=%s)", w.Code, tc.status, w.Body.String())
			}
		})
	}

	// missing url fails binding with 422
	r := newProxyRouter(mgr, stubProxy{})
	if w := doProxy(r, http.MethodPut, "/api/ollama/endpoint", authz, `{}`); w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("missing url -> %d", w.Code)
	}
}

// ---------- CheckEndpoint ----------

func TestCheckEndpoint_OKAndFailure(t *testing.T) {
	mgr := newTestManager()
	authz := bearerFor(t, mgr, 1)

	r := newProxyRouter(mgr, stubProxy{
		check: func(context.Context, int64) error { return nil },
	})
	w := doProxy(r, http.MethodGet, "/api/ollama/endpoint/check", authz, "")
	if w.Code != http.StatusOK {
		t.Fatalf("check -> %d", w.Code)
	}
	var resp EndpointCheckResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp.Status != "ok" {
		t.Fatalf("body %s err=%v", w.Body.String(), err)
	}

	r = newProxyRouter(mgr, stubProxy{
		check: func(context.Context, int64) error { return services.ErrEndpointUnreachable },
	})
	if w := doProxy(r, http.MethodGet, "/api/ollama/endpoint/check", authz, ""); w.Code != http.StatusBadRequest {
		t.Fatalf("failed check -> %d", w.Code)
	}

	if w := doProxy(r, http.MethodGet, "/api/ollama/endpoint/check", "", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous -> %d", w.Code)
	}
}
