package companion_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/kindredapp/companion/backend/internal/auth"
	"github.com/kindredapp/companion/backend/internal/handler"
	"github.com/kindredapp/companion/backend/internal/model/companion"
	"github.com/kindredapp/companion/backend/internal/service/ai"
	companionService "github.com/kindredapp/companion/backend/internal/service/companion"
	"github.com/kindredapp/companion/backend/internal/service/gate"
	"github.com/kindredapp/companion/backend/internal/service/ratelimit"
	"github.com/kindredapp/companion/backend/internal/store"
)

type stubGenerator struct {
	reply ai.Reply
	err   error
}

func (s *stubGenerator) Generate(_ context.Context, _ []string) (ai.Reply, error) {
	return s.reply, s.err
}

type env struct {
	router http.Handler
	store  *store.MemoryStore
	gen    *stubGenerator
	token  string
}

// newEnv builds the full HTTP stack with a seeded pairing: the caller is
// paired with a partner who has been inactive for 15 minutes and has a
// calm/short/low style summary.
func newEnv(t *testing.T) *env {
	t.Helper()
	st := store.NewMemoryStore()
	st.AddPairing("alice", "bob")
	lastActive := time.Now().Add(-15 * time.Minute)
	st.PutProfile(companion.Profile{
		UserID:     "bob",
		LastActive: &lastActive,
		StyleSummary: &companion.StyleSummary{
			Tone:       "calm",
			AvgLength:  "short",
			EmojiUsage: "low",
		},
	})
	st.PutSession("session-token", "alice")

	gen := &stubGenerator{reply: ai.Reply{Text: "I'm here. Tell me more."}}
	svc := companionService.NewService(
		gate.New(st, 10*time.Minute),
		ratelimit.NewSlidingWindow(20, time.Hour),
		gen,
	)
	router := handler.NewRouter(auth.NewSessionAuthenticator(st), svc)
	return &env{router: router, store: st, gen: gen, token: "session-token"}
}

func (e *env) post(t *testing.T, body companion.Request, token string) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal err: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/companion/message", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	e.router.ServeHTTP(resp, req)
	return resp
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) companion.Error {
	t.Helper()
	var apiErr companion.Error
	if err := json.Unmarshal(resp.Body.Bytes(), &apiErr); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return apiErr
}

func TestMessageSuccess(t *testing.T) {
	e := newEnv(t)

	resp := e.post(t, companion.Request{Message: strings.Repeat("h", 50)}, e.token)
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", resp.Code, resp.Body.String())
	}

	var body companion.Response
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Reply == "" {
		t.Fatal("expected non-empty reply")
	}
	if !strings.Contains(body.Disclaimer, "Companion is an AI, not your partner") {
		t.Fatalf("unexpected disclaimer: %q", body.Disclaimer)
	}

	if got := resp.Header().Get("X-RateLimit-Remaining"); got != "19" {
		t.Fatalf("X-RateLimit-Remaining = %q, want 19", got)
	}
	if got := resp.Header().Get("X-RateLimit-Limit"); got != "20" {
		t.Fatalf("X-RateLimit-Limit = %q, want 20", got)
	}
	if got := resp.Header().Get("X-RateLimit-Window-Ms"); got != "3600000" {
		t.Fatalf("X-RateLimit-Window-Ms = %q, want 3600000", got)
	}
}

func TestMessageRateLimited(t *testing.T) {
	e := newEnv(t)

	for i := 0; i < 20; i++ {
		if resp := e.post(t, companion.Request{Message: "hello"}, e.token); resp.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, resp.Code)
		}
	}

	resp := e.post(t, companion.Request{Message: "one more"}, e.token)
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", resp.Code)
	}
	apiErr := decodeError(t, resp)
	if apiErr.Code != companion.CodeRateLimited {
		t.Fatalf("code = %s, want RATE_LIMITED", apiErr.Code)
	}
	retryAfter, err := strconv.Atoi(resp.Header().Get("Retry-After"))
	if err != nil || retryAfter <= 0 {
		t.Fatalf("Retry-After = %q, want positive integer seconds", resp.Header().Get("Retry-After"))
	}
	if resp.Header().Get("X-RateLimit-Remaining") != "" {
		t.Fatal("rejected request must not advertise remaining quota")
	}
}

func TestMessageUnauthenticated(t *testing.T) {
	e := newEnv(t)

	for _, token := range []string{"", "unknown-token"} {
		resp := e.post(t, companion.Request{Message: "hello"}, token)
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("token %q: status = %d, want 401", token, resp.Code)
		}
		if apiErr := decodeError(t, resp); apiErr.Code != companion.CodeUnauthorized {
			t.Fatalf("token %q: code = %s, want UNAUTHORIZED", token, apiErr.Code)
		}
	}
}

func TestMessageNoPairing(t *testing.T) {
	e := newEnv(t)
	e.store.PutSession("lonely-token", "mallory")

	resp := e.post(t, companion.Request{Message: "hello"}, "lonely-token")
	if resp.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.Code)
	}
	if apiErr := decodeError(t, resp); apiErr.Code != companion.CodeUnauthorized {
		t.Fatalf("code = %s, want UNAUTHORIZED", apiErr.Code)
	}
}

func TestMessagePartnerActive(t *testing.T) {
	e := newEnv(t)
	lastActive := time.Now().Add(-3 * time.Minute)
	e.store.PutProfile(companion.Profile{UserID: "bob", LastActive: &lastActive})

	resp := e.post(t, companion.Request{Message: "hello"}, e.token)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.Code)
	}
	if apiErr := decodeError(t, resp); apiErr.Code != companion.CodePartnerActive {
		t.Fatalf("code = %s, want PARTNER_ACTIVE", apiErr.Code)
	}
}

func TestMessageInvalidInput(t *testing.T) {
	e := newEnv(t)

	cases := []struct {
		name    string
		message string
	}{
		{"whitespace only", "   "},
		{"too long", strings.Repeat("a", 1001)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := e.post(t, companion.Request{Message: tc.message}, e.token)
			if resp.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", resp.Code)
			}
			if apiErr := decodeError(t, resp); apiErr.Code != companion.CodeInvalidInput {
				t.Fatalf("code = %s, want INVALID_INPUT", apiErr.Code)
			}
		})
	}
}

func TestMessageMaxLengthAccepted(t *testing.T) {
	e := newEnv(t)

	resp := e.post(t, companion.Request{Message: strings.Repeat("a", 1000)}, e.token)
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", resp.Code, resp.Body.String())
	}
}

func TestMessageMalformedJSON(t *testing.T) {
	e := newEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/companion/message", strings.NewReader("{not json"))
	req.Header.Set("Authorization", "Bearer "+e.token)
	resp := httptest.NewRecorder()
	e.router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.Code)
	}
	if apiErr := decodeError(t, resp); apiErr.Code != companion.CodeInvalidInput {
		t.Fatalf("code = %s, want INVALID_INPUT", apiErr.Code)
	}
}

func TestMessageSafetyBlocked(t *testing.T) {
	e := newEnv(t)
	e.gen.reply = ai.Reply{Blocked: true}

	resp := e.post(t, companion.Request{Message: "hello"}, e.token)
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", resp.Code)
	}
	if apiErr := decodeError(t, resp); apiErr.Code != companion.CodeGenerationFailed {
		t.Fatalf("code = %s, want GENERATION_FAILED", apiErr.Code)
	}
}

func TestMessageProviderError(t *testing.T) {
	e := newEnv(t)
	e.gen.err = context.DeadlineExceeded

	resp := e.post(t, companion.Request{Message: "hello"}, e.token)
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.Code)
	}
	if apiErr := decodeError(t, resp); apiErr.Code != companion.CodeGenerationFailed {
		t.Fatalf("code = %s, want GENERATION_FAILED", apiErr.Code)
	}
}

func TestMessageMethodNotAllowed(t *testing.T) {
	e := newEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/companion/message", nil)
	req.Header.Set("Authorization", "Bearer "+e.token)
	resp := httptest.NewRecorder()
	e.router.ServeHTTP(resp, req)

	if resp.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", resp.Code)
	}
}

func TestHealth(t *testing.T) {
	e := newEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	resp := httptest.NewRecorder()
	e.router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.Code)
	}
}
