package generator

import (
	"slices"
	"strconv"
	"strings"
	"time"
)

// Audience 目标读者。
type Audience string

const (
	AudienceGeneral                 Audience = "general"
	AudienceTechProfessionals       Audience = "tech_professionals"
	AudienceBusinessLeaders         Audience = "business_leaders"
	AudienceHealthcareProfessionals Audience = "healthcare_professionals"
	AudienceStudents                Audience = "students"
	AudienceMarketers               Audience = "marketers"
)

// Tone is the voice requested from the generator.
type Tone string

const (
	ToneProfessional   Tone = "professional"
	ToneCasual         Tone = "casual"
	ToneFriendly       Tone = "friendly"
	ToneAuthoritative  Tone = "authoritative"
	ToneCreative       Tone = "creative"
	ToneConversational Tone = "conversational"
)

// Length is the coarse size of the generated text.
type Length string

const (
	LengthShort  Length = "short"
	LengthMedium Length = "medium"
	LengthLong   Length = "long"
)

// KindText is the only request kind the service accepts today.
const KindText = "text"

var (
	audiences = []Audience{AudienceGeneral, AudienceTechProfessionals, AudienceBusinessLeaders, AudienceHealthcareProfessionals, AudienceStudents, AudienceMarketers}
	tones     = []Tone{ToneProfessional, ToneCasual, ToneFriendly, ToneAuthoritative, ToneCreative, ToneConversational}
	lengths   = []Length{LengthShort, LengthMedium, LengthLong}
)

// StyleGuide 控制语气和篇幅。
type StyleGuide struct {
	Tone   Tone   `json:"tone"`
	Length Length `json:"length"`
}

// GenerationRequest is the payload posted to /generate-and-govern.
type GenerationRequest struct {
	Kind           string     `json:"type"`
	Topic          string     `json:"topic"`
	TargetAudience Audience   `json:"target_audience"`
	StyleGuide     StyleGuide `json:"style_guide"`
}

// NewRequest builds a text request, filling empty fields with defaults.
func NewRequest(topic string, audience Audience, tone Tone, length Length) GenerationRequest {
	if audience == "" {
		audience = AudienceGeneral
	}
	if tone == "" {
		tone = ToneProfessional
	}
	if length == "" {
		length = LengthMedium
	}
	return GenerationRequest{
		Kind:           KindText,
		Topic:          topic,
		TargetAudience: audience,
		StyleGuide:     StyleGuide{Tone: tone, Length: length},
	}
}

// Validate checks the request before it is allowed on the wire.
func (r GenerationRequest) Validate() error {
	if r.Kind != KindText {
		return &ValidationError{Field: "type", Reason: "unsupported request kind " + strconv.Quote(r.Kind)}
	}
	if strings.TrimSpace(r.Topic) == "" {
		return &ValidationError{Field: "topic", Reason: "topic is required"}
	}
	if !slices.Contains(audiences, r.TargetAudience) {
		return &ValidationError{Field: "target_audience", Reason: "unknown audience " + strconv.Quote(string(r.TargetAudience))}
	}
	if !slices.Contains(tones, r.StyleGuide.Tone) {
		return &ValidationError{Field: "style_guide.tone", Reason: "unknown tone " + strconv.Quote(string(r.StyleGuide.Tone))}
	}
	if !slices.Contains(lengths, r.StyleGuide.Length) {
		return &ValidationError{Field: "style_guide.length", Reason: "unknown length " + strconv.Quote(string(r.StyleGuide.Length))}
	}
	return nil
}

func ParseAudience(s string) (Audience, error) {
	return parseEnum("target_audience", s, audiences)
}

func ParseTone(s string) (Tone, error) {
	return parseEnum("style_guide.tone", s, tones)
}

func ParseLength(s string) (Length, error) {
	return parseEnum("style_guide.length", s, lengths)
}

// Decision values the governance pass is known to emit.
const (
	DecisionApproved      = "Approved"
	DecisionNeedsRevision = "Needs Revision"
	DecisionRejected      = "Rejected"
)

// FinalDecision is the governance verdict. Every field is optional on the
// wire; missing ones stay at their zero value (Score stays nil).
type FinalDecision struct {
	Decision  string
	Summary   []string
	Score     *float64
	Timestamp time.Time
}

// GeneratedResult is the normalized `data` payload of a generation call.
// It is read-only once built by ParseResult.
type GeneratedResult struct {
	Body          string
	FinalDecision *FinalDecision

	raw []byte
}

// Raw returns a copy of the canonical JSON payload.
func (r *GeneratedResult) Raw() []byte {
	out := make([]byte, len(r.raw))
	copy(out, r.raw)
	return out
}

// MarshalJSON emits the canonical payload, including fields the client does
// not model, so exports carry everything the service returned.
func (r *GeneratedResult) MarshalJSON() ([]byte, error) {
	if len(r.raw) == 0 {
		return []byte("null"), nil
	}
	return r.Raw(), nil
}

func parseEnum[T ~string](field, s string, allowed []T) (T, error) {
	v := T(strings.TrimSpace(strings.ToLower(s)))
	if v == "" {
		return v, nil
	}
	if !slices.Contains(allowed, v) {
		return "", &ValidationError{Field: field, Reason: "unknown value " + strconv.Quote(s)}
	}
	return v, nil
}
