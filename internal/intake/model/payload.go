package model

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	errx "github.com/hospitalbot-poc/server/internal/core/error"
)

// Webhook payload shape sent by the intent engine. Only the fields the
// router consumes are modelled; everything else in the body is carried as
// the raw blob for transcript logging.
type WebhookRequest struct {
	Session     string      `json:"session"`
	QueryResult QueryResult `json:"queryResult"`
}

type QueryResult struct {
	QueryText  string         `json:"queryText"`
	Parameters map[string]any `json:"parameters"`
	Intent     Intent         `json:"intent"`
}

type Intent struct {
	DisplayName string `json:"displayName"`
}

// Turn is one parsed request/response exchange. It is transient: the router
// builds it per call and never persists it as its own record.
type Turn struct {
	Intent     string
	SessionID  string
	Utterance  string
	Parameters Parameters
	Raw        []byte
}

// EntityParameters implements ParameterSource.
func (t *Turn) EntityParameters() Parameters {
	return t.Parameters
}

// Fulfillment is the response body returned to the intent engine.
type Fulfillment struct {
	FulfillmentText string `json:"fulfillmentText"`
	Source          string `json:"source,omitempty"`

	// Parameters is set when the responder re-parses structured parameters
	// into the outgoing object. The merge engine reads whichever object
	// actually carries them.
	Parameters Parameters `json:"-"`
}

// EntityParameters implements ParameterSource.
func (f *Fulfillment) EntityParameters() Parameters {
	return f.Parameters
}

// ParameterSource is any object carrying structured entity parameters for a
// turn. Both the inbound Turn and the outgoing Fulfillment qualify.
type ParameterSource interface {
	EntityParameters() Parameters
}

// Parameters maps an entity name to the sequence of raw values the intent
// engine extracted for it. Engines return sequences even for singular slots.
type Parameters map[string][]string

// First returns the first value for the named entity, or "" when the slot is
// unfilled or its first value is blank. Guards against engines returning
// [""] or [null].
func (p Parameters) First(name string) string {
	seq := p[name]
	if len(seq) == 0 || strings.TrimSpace(seq[0]) == "" {
		return ""
	}
	return seq[0]
}

// MRN coerces the "mrn" parameter to an integer medical record number.
// The intent engine delivers numbers as floats, so "12345.0" and 12345 both
// normalise to "12345". Non-numeric input is a malformed-parameter error.
func (p Parameters) MRN() (string, error) {
	raw := p.First("mrn")
	if raw == "" {
		return "", errx.New(errx.ErrMalformedParameter, http.StatusBadRequest, MalformedMRNDetail(raw))
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return "", errx.New(errx.ErrMalformedParameter, http.StatusBadRequest, MalformedMRNDetail(raw))
	}
	return strconv.Itoa(int(f)), nil
}

// MalformedMRNDetail names the offending value in the error message without
// echoing unbounded input.
func MalformedMRNDetail(raw string) string {
	if len(raw) > 32 {
		raw = raw[:32]
	}
	return fmt.Sprintf("%s: mrn=%q", errx.MalformedParameterMessage, raw)
}

// NormalizeParameters flattens the duck-typed JSON parameter map into value
// sequences. Scalars become single-element sequences, nulls become empty
// ones, and numbers are rendered without a trailing fraction.
func NormalizeParameters(raw map[string]any) Parameters {
	if len(raw) == 0 {
		return Parameters{}
	}
	params := make(Parameters, len(raw))
	for name, value := range raw {
		params[name] = normalizeValue(value)
	}
	return params
}

func normalizeValue(value any) []string {
	switch v := value.(type) {
	case nil:
		return []string{}
	case string:
		return []string{v}
	case float64:
		return []string{strconv.FormatFloat(v, 'f', -1, 64)}
	case bool:
		return []string{strconv.FormatBool(v)}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			// A null inside a sequence stays as a "" placeholder so it
			// marks the slot unfilled the same way a literal "" does.
			if item == nil {
				out = append(out, "")
				continue
			}
			out = append(out, normalizeValue(item)...)
		}
		return out
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return []string{}
		}
		return []string{string(b)}
	}
}

// ParseWebhookRequest is the tagged parse step producing a typed Turn.
// It fails fast with the malformed-payload kind instead of deep-indexing an
// untyped map downstream.
func ParseWebhookRequest(body []byte) (*Turn, error) {
	var req WebhookRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, errx.New(errx.ErrMalformedPayload, http.StatusBadRequest, errx.MalformedPayloadMessage)
	}
	if req.QueryResult.Intent.DisplayName == "" {
		return nil, errx.New(errx.ErrMalformedPayload, http.StatusBadRequest, errx.MalformedPayloadMessage)
	}
	return &Turn{
		Intent:     req.QueryResult.Intent.DisplayName,
		SessionID:  SessionIDFromPath(req.Session),
		Utterance:  req.QueryResult.QueryText,
		Parameters: NormalizeParameters(req.QueryResult.Parameters),
		Raw:        body,
	}, nil
}

// SalvageTurn recovers whatever fields an unparseable-for-dispatch payload
// still carries so the attempt can be logged. Returns nil when not even the
// envelope decodes.
func SalvageTurn(body []byte) *Turn {
	var req WebhookRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil
	}
	return &Turn{
		Intent:     req.QueryResult.Intent.DisplayName,
		SessionID:  SessionIDFromPath(req.Session),
		Utterance:  req.QueryResult.QueryText,
		Parameters: NormalizeParameters(req.QueryResult.Parameters),
		Raw:        body,
	}
}

// SessionIDFromPath extracts the session identifier from the intent engine's
// resource path ("projects/<p>/agent/sessions/<id>"). Bare identifiers pass
// through unchanged; an empty path falls back to "default-session".
func SessionIDFromPath(session string) string {
	if session == "" {
		return "default-session"
	}
	if idx := strings.LastIndex(session, "/"); idx >= 0 {
		session = session[idx+1:]
	}
	if session == "" {
		return "default-session"
	}
	return session
}
