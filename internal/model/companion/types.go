package companion

import "time"

// Request is the body accepted by POST /api/companion/message.
type Request struct {
	Message string `json:"message"`
	// Mood is an optional self-reported mood, e.g. "anxious", "happy", "sad".
	Mood string `json:"mood,omitempty"`
}

// Response is the success payload. The disclaimer is always present and is
// shown in the UI to remind the user the companion is an AI, not their partner.
type Response struct {
	Reply      string `json:"reply"`
	Disclaimer string `json:"disclaimer"`
}

// ErrorCode is the closed set of failure codes exposed to clients.
type ErrorCode string

const (
	CodeInvalidInput     ErrorCode = "INVALID_INPUT"
	CodeUnauthorized     ErrorCode = "UNAUTHORIZED"
	CodePartnerActive    ErrorCode = "PARTNER_ACTIVE"
	CodeRateLimited      ErrorCode = "RATE_LIMITED"
	CodeGenerationFailed ErrorCode = "GENERATION_FAILED"
)

// Error is the typed failure outcome of the request pipeline. Status carries
// the HTTP status the handler should respond with; RetryAfter is set only for
// RATE_LIMITED.
type Error struct {
	Message    string        `json:"error"`
	Code       ErrorCode     `json:"code"`
	Status     int           `json:"-"`
	RetryAfter time.Duration `json:"-"`
}

func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Message
}

// StyleSummary is the partner's precomputed communication style. All fields
// are small closed enumerations; ResponseSpeed is stored but not consumed by
// prompt construction.
type StyleSummary struct {
	AvgLength     string `json:"avg_length"`     // short | medium | long
	EmojiUsage    string `json:"emoji_usage"`    // low | medium | high
	Tone          string `json:"tone"`           // playful | calm | serious
	ResponseSpeed string `json:"response_speed"` // fast | slow
}

// Pairing links a user to their partner. PartnerID is empty until the partner
// has joined.
type Pairing struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	PartnerID string `json:"partnerId"`
}

// Profile holds the per-user fields the companion pipeline reads: the last
// observed activity (nil means never seen) and the optional style summary.
type Profile struct {
	UserID       string        `json:"userId"`
	LastActive   *time.Time    `json:"lastActive,omitempty"`
	StyleSummary *StyleSummary `json:"styleSummary,omitempty"`
}
