package model

import (
	"errors"
	"testing"

	errx "github.com/hospitalbot-poc/server/internal/core/error"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWebhookRequest(t *testing.T) {
	body := []byte(`{
        "session": "projects/hospitalbot/agent/sessions/abc-123",
        "queryResult": {
            "queryText": "I have a fever",
            "parameters": {"symptom": ["fever"], "duration": "3 days"},
            "intent": {"displayName": "add_symptom"}
        }
    }`)

	turn, err := ParseWebhookRequest(body)
	require.NoError(t, err)
	assert.Equal(t, "add_symptom", turn.Intent)
	assert.Equal(t, "abc-123", turn.SessionID)
	assert.Equal(t, "I have a fever", turn.Utterance)
	assert.Equal(t, "fever", turn.Parameters.First("symptom"))
	assert.Equal(t, "3 days", turn.Parameters.First("duration"))
	assert.Equal(t, body, turn.Raw)
}

func TestParseWebhookRequestMalformed(t *testing.T) {
	cases := map[string][]byte{
		"invalid json":   []byte(`{"queryResult":`),
		"missing intent": []byte(`{"session": "s", "queryResult": {"queryText": "hi"}}`),
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseWebhookRequest(body)
			assert.True(t, errors.Is(err, errx.ErrMalformedPayload))
		})
	}
}

func TestSalvageTurn(t *testing.T) {
	body := []byte(`{"session": "projects/p/agent/sessions/s-1", "queryResult": {"queryText": "hello"}}`)
	turn := SalvageTurn(body)
	require.NotNil(t, turn)
	assert.Equal(t, "s-1", turn.SessionID)
	assert.Equal(t, "hello", turn.Utterance)

	assert.Nil(t, SalvageTurn([]byte(`not json`)))
}

func TestSessionIDFromPath(t *testing.T) {
	assert.Equal(t, "abc", SessionIDFromPath("projects/p/agent/sessions/abc"))
	assert.Equal(t, "abc", SessionIDFromPath("abc"))
	assert.Equal(t, "default-session", SessionIDFromPath(""))
	assert.Equal(t, "default-session", SessionIDFromPath("projects/p/agent/sessions/"))
}

func TestNormalizeParameters(t *testing.T) {
	params := NormalizeParameters(map[string]any{
		"symptom":  []any{"fever", "cough"},
		"mrn":      12345.0,
		"confirm":  true,
		"empty":    nil,
		"nullSeq":  []any{nil},
		"freeText": "three days",
	})

	assert.Equal(t, []string{"fever", "cough"}, params["symptom"])
	assert.Equal(t, []string{"12345"}, params["mrn"])
	assert.Equal(t, []string{"true"}, params["confirm"])
	assert.Empty(t, params["empty"])
	assert.Equal(t, []string{""}, params["nullSeq"], "a sequence null is kept as a placeholder")
	assert.Equal(t, []string{"three days"}, params["freeText"])
}

func TestNormalizeParametersNullHeadKeepsSlotUnfilled(t *testing.T) {
	params := NormalizeParameters(map[string]any{
		"symptom": []any{nil, "fever"},
	})

	assert.Equal(t, []string{"", "fever"}, params["symptom"])
	assert.Equal(t, "", params.First("symptom"), "a null head means the slot is unfilled")
}

func TestParametersFirst(t *testing.T) {
	params := Parameters{
		"filled":  {"fever"},
		"blank":   {""},
		"spaced":  {"   ", "cough"},
		"missing": nil,
	}

	assert.Equal(t, "fever", params.First("filled"))
	assert.Equal(t, "", params.First("blank"))
	assert.Equal(t, "", params.First("spaced"), "blank first element means the slot is unfilled")
	assert.Equal(t, "", params.First("missing"))
	assert.Equal(t, "", params.First("absent"))
}

func TestParametersMRN(t *testing.T) {
	mrn, err := Parameters{"mrn": {"12345"}}.MRN()
	require.NoError(t, err)
	assert.Equal(t, "12345", mrn)

	// Engines deliver numbers as floats.
	mrn, err = Parameters{"mrn": {"12345.0"}}.MRN()
	require.NoError(t, err)
	assert.Equal(t, "12345", mrn)

	_, err = Parameters{"mrn": {"not-a-number"}}.MRN()
	assert.True(t, errors.Is(err, errx.ErrMalformedParameter))

	_, err = Parameters{}.MRN()
	assert.True(t, errors.Is(err, errx.ErrMalformedParameter))
}
