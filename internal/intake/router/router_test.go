package router

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/hospitalbot-poc/server/internal/intake/lock"
	"github.com/hospitalbot-poc/server/internal/intake/model"
	"github.com/hospitalbot-poc/server/internal/intake/repo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (*Router, *repo.Store) {
	t.Helper()
	store, err := repo.NewStore(model.StoreConfig{DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return New(store, lock.NewLocalLocker()), store
}

func webhookBody(t *testing.T, intent, sessionID, queryText string, params map[string]any) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"session": "projects/hospitalbot/agent/sessions/" + sessionID,
		"queryResult": map[string]any{
			"queryText":  queryText,
			"parameters": params,
			"intent":     map[string]any{"displayName": intent},
		},
	})
	require.NoError(t, err)
	return body
}

func TestWelcomeIntent(t *testing.T) {
	r, _ := newTestRouter(t)

	resp, status := r.HandleTurn(context.Background(),
		webhookBody(t, IntentWelcome, "s-1", "hi", nil))

	assert.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, resp.FulfillmentText)
	assert.Equal(t, "default", resp.Source)
}

func TestUnknownIntent(t *testing.T) {
	r, _ := newTestRouter(t)

	resp, status := r.HandleTurn(context.Background(),
		webhookBody(t, "Order Pizza", "s-1", "pizza please", nil))

	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, defaultNotFoundText, resp.FulfillmentText)
}

func TestConsultIntent(t *testing.T) {
	r, _ := newTestRouter(t)

	resp, status := r.HandleTurn(context.Background(),
		webhookBody(t, IntentConsult, "s-1", "check my order", nil))

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, consultText, resp.FulfillmentText)
}

func TestProvideMRNMiss(t *testing.T) {
	r, _ := newTestRouter(t)

	resp, status := r.HandleTurn(context.Background(),
		webhookBody(t, IntentProvideMRN, "s-1", "my mrn is 12345", map[string]any{"mrn": 12345.0}))

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, patientMissText, resp.FulfillmentText)
}

func TestProvideMRNHit(t *testing.T) {
	r, store := newTestRouter(t)
	ctx := context.Background()

	require.NoError(t, store.AddPatient(ctx, repo.Patient{MRN: "12345", FirstName: "Ada", LastName: "Lovelace"}))

	resp, status := r.HandleTurn(ctx,
		webhookBody(t, IntentProvideMRN, "s-1", "my mrn is 12345", map[string]any{"mrn": 12345.0}))

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Hello Ada Lovelace, how can I help you today ?", resp.FulfillmentText)
}

func TestProvideMRNMalformed(t *testing.T) {
	r, _ := newTestRouter(t)

	resp, status := r.HandleTurn(context.Background(),
		webhookBody(t, IntentProvideMRN, "s-1", "it is abc", map[string]any{"mrn": "abc"}))

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, mrnRepeatText, resp.FulfillmentText)
}

func TestAddSymptomMissingParameter(t *testing.T) {
	r, _ := newTestRouter(t)

	resp, status := r.HandleTurn(context.Background(),
		webhookBody(t, IntentAddSymptom, "s-1", "it hurts", map[string]any{"symptom": []any{""}}))

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, symptomClarifyText, resp.FulfillmentText)
}

func TestAddSymptomComposesHistory(t *testing.T) {
	r, store := newTestRouter(t)
	ctx := context.Background()

	_, status := r.HandleTurn(ctx,
		webhookBody(t, IntentAddSymptom, "s-1", "I have a fever", map[string]any{"symptom": []any{"fever"}}))
	require.Equal(t, http.StatusOK, status)

	resp, status := r.HandleTurn(ctx,
		webhookBody(t, IntentAddSymptom, "s-1", "also a headache", map[string]any{"symptom": []any{"headache"}}))
	require.Equal(t, http.StatusOK, status)

	assert.Contains(t, resp.FulfillmentText, "I have a fever")
	assert.Contains(t, resp.FulfillmentText, "also a headache")

	rec, err := store.Entity(ctx, "s-1", "symptom")
	require.NoError(t, err)
	assert.Equal(t, "fever, headache", rec.Detail)
}

func TestTurnIsPersisted(t *testing.T) {
	r, store := newTestRouter(t)
	ctx := context.Background()

	_, status := r.HandleTurn(ctx, webhookBody(t, IntentWelcome, "s-1", "hello there", nil))
	require.Equal(t, http.StatusOK, status)

	history, err := store.History(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, "hello there, ", history)
}

func TestMalformedPayloadStillLogged(t *testing.T) {
	r, store := newTestRouter(t)
	ctx := context.Background()

	// Envelope decodes but the intent is missing, so dispatch fails while
	// the salvage path can still log the utterance.
	resp, status := r.HandleTurn(ctx,
		[]byte(`{"session": "projects/p/agent/sessions/s-1", "queryResult": {"queryText": "garbled"}}`))

	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, defaultNotFoundText, resp.FulfillmentText)

	history, err := store.History(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, "garbled, ", history)
}

func TestUnparseablePayload(t *testing.T) {
	r, _ := newTestRouter(t)

	resp, status := r.HandleTurn(context.Background(), []byte(`not json at all`))

	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, defaultNotFoundText, resp.FulfillmentText)
}
