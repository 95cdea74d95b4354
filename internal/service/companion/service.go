// Package companion orchestrates the request pipeline: input validation,
// access gating, rate limiting, prompt assembly, and the model call.
package companion

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kindredapp/companion/backend/internal/model/companion"
	"github.com/kindredapp/companion/backend/internal/service/ai"
	"github.com/kindredapp/companion/backend/internal/service/gate"
	"github.com/kindredapp/companion/backend/internal/service/prompt"
	"github.com/kindredapp/companion/backend/internal/service/ratelimit"
)

const (
	maxMessageRunes = 1000
	maxMoodRunes    = 100
)

// Service runs the companion pipeline. All collaborators are injected so the
// pipeline can be exercised end to end in tests.
type Service struct {
	gate      *gate.Gate
	limiter   ratelimit.Limiter
	generator ai.Generator
}

// NewService wires the pipeline.
func NewService(g *gate.Gate, limiter ratelimit.Limiter, generator ai.Generator) *Service {
	return &Service{gate: g, limiter: limiter, generator: generator}
}

// Limit exposes the configured quota for advisory response headers.
func (s *Service) Limit() int { return s.limiter.Limit() }

// Window exposes the configured window for advisory response headers.
func (s *Service) Window() time.Duration { return s.limiter.Window() }

// Handle processes one companion request for the authenticated user. It
// returns either a success response or a typed error; the rate result is
// non-nil once the limiter has run, so the handler can attach quota headers
// to both outcomes. Every step short-circuits: a request rejected before
// admission never mutates limiter state, and a rejected request never
// reaches the model.
func (s *Service) Handle(ctx context.Context, userID string, req companion.Request) (*companion.Response, *ratelimit.Result, *companion.Error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, nil, &companion.Error{
			Message: "Message is required.",
			Code:    companion.CodeInvalidInput,
			Status:  http.StatusBadRequest,
		}
	}
	if utf8.RuneCountInString(message) > maxMessageRunes {
		return nil, nil, &companion.Error{
			Message: "Message exceeds 1000 characters.",
			Code:    companion.CodeInvalidInput,
			Status:  http.StatusBadRequest,
		}
	}
	mood := truncateRunes(strings.TrimSpace(req.Mood), maxMoodRunes)

	decision, err := s.gate.Authorize(ctx, userID)
	if err != nil {
		return nil, nil, gateError(err)
	}

	rate, err := s.limiter.Admit(ctx, userID)
	if err != nil {
		log.Printf("[companion] rate limiter error: %v", err)
		return nil, nil, internalError()
	}
	if !rate.Allowed {
		minutes := int(math.Ceil(rate.RetryAfter.Minutes()))
		return nil, &rate, &companion.Error{
			Message:    fmt.Sprintf("Too many requests. Please wait %d minutes.", minutes),
			Code:       companion.CodeRateLimited,
			Status:     http.StatusTooManyRequests,
			RetryAfter: rate.RetryAfter,
		}
	}

	contextBlock := prompt.BuildContextBlock(decision.Style, mood)
	parts := prompt.BuildParts(contextBlock, message)

	reply, err := s.generator.Generate(ctx, parts)
	if err != nil {
		log.Printf("[companion] generation error: %v", err)
		return nil, &rate, internalError()
	}
	if reply.Blocked {
		return nil, &rate, &companion.Error{
			Message: "Response could not be generated safely. Please try rephrasing.",
			Code:    companion.CodeGenerationFailed,
			Status:  http.StatusUnprocessableEntity,
		}
	}

	text := strings.TrimSpace(reply.Text)
	if text == "" {
		log.Printf("[companion] empty response from model")
		return nil, &rate, internalError()
	}

	return &companion.Response{Reply: text, Disclaimer: prompt.Disclaimer}, &rate, nil
}

func gateError(err error) *companion.Error {
	switch {
	case errors.Is(err, gate.ErrNoPairing):
		return &companion.Error{
			Message: "No active pair found.",
			Code:    companion.CodeUnauthorized,
			Status:  http.StatusForbidden,
		}
	case errors.Is(err, gate.ErrPartnerNotJoined):
		return &companion.Error{
			Message: "Partner has not joined yet.",
			Code:    companion.CodeUnauthorized,
			Status:  http.StatusForbidden,
		}
	case errors.Is(err, gate.ErrPartnerActive):
		return &companion.Error{
			Message: "Your partner is active. Companion Mode is only available when your partner is away.",
			Code:    companion.CodePartnerActive,
			Status:  http.StatusForbidden,
		}
	default:
		log.Printf("[companion] access gate error: %v", err)
		return internalError()
	}
}

// internalError is the catch-all for unexpected failures; internal detail is
// never surfaced to the caller.
func internalError() *companion.Error {
	return &companion.Error{
		Message: "AI generation failed. Please try again.",
		Code:    companion.CodeGenerationFailed,
		Status:  http.StatusInternalServerError,
	}
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
