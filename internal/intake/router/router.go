// Package router maps inbound turns to intent handlers and persists their
// outcome. The router itself is stateless across turns; everything a handler
// needs from earlier turns is reconstructed from the persistence gateway.
package router

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	errx "github.com/hospitalbot-poc/server/internal/core/error"
	"github.com/hospitalbot-poc/server/internal/intake/lock"
	"github.com/hospitalbot-poc/server/internal/intake/model"
	"github.com/hospitalbot-poc/server/internal/intake/repo"
	logx "github.com/hospitalbot-poc/server/pkg/logger"
)

// Intent names the engine dispatches on.
const (
	IntentWelcome    = "Default Welcome Intent"
	IntentAddSymptom = "add_symptom"
	IntentProvideMRN = "user_provide_mrn"
	IntentConsult    = "Check Order Status"
)

// Response texts. These are part of the webhook contract with the intent
// engine and must stay stable.
const (
	defaultNotFoundText = "Sorry, I couldn't find that information."
	welcomeText         = "Are you a new patient ?"
	consultText         = "let's consult"
	symptomClarifyText  = "Could you tell me which symptom is bothering you ?"
	symptomMorePrompt   = ". Do you have any other symptoms ?"
	mrnRepeatText       = "I didn't catch that medical record number, could you repeat it ?"
	patientMissText     = "User not found, do you want to retry ? (No to register new user)"
)

// Gateway is the persistence surface the router consumes.
type Gateway interface {
	RecordTurn(ctx context.Context, sessionID, requestBlob, utterance, responseText string) error
	History(ctx context.Context, sessionID string) (string, error)
	UpsertEntities(ctx context.Context, sessionID string, params model.Parameters) error
	PatientByMRN(ctx context.Context, mrn string) (*repo.Patient, error)
}

// Router is the dialogue state machine: one handler per turn, persistence as
// a side effect after every dispatch.
type Router struct {
	gateway Gateway
	locker  lock.Locker
}

func New(gateway Gateway, locker lock.Locker) *Router {
	return &Router{gateway: gateway, locker: locker}
}

// defaultResponse is the 404 branch every failure path degrades to.
func defaultResponse() *model.Fulfillment {
	return &model.Fulfillment{FulfillmentText: defaultNotFoundText, Source: "webhook"}
}

// HandleTurn parses the raw payload, dispatches exactly one intent handler,
// persists the turn, and returns the response body with its status code.
// No fault escapes: malformed input, handler errors, and panics all degrade
// to the default 404 body.
func (r *Router) HandleTurn(ctx context.Context, body []byte) (resp *model.Fulfillment, status int) {
	defer func() {
		if rec := recover(); rec != nil {
			logx.Error().Str("component", "router").Msgf("panic recovered: %v", rec)
			resp, status = defaultResponse(), http.StatusNotFound
		}
	}()

	turn, err := model.ParseWebhookRequest(body)
	if err != nil {
		logx.Warn().Err(err).Msg("malformed webhook payload")
		// Best effort: log whatever fields were recoverable.
		r.persistMalformed(ctx, body)
		return defaultResponse(), http.StatusNotFound
	}

	logx.Info().
		Str("sessionID", turn.SessionID).
		Str("intent", turn.Intent).
		Msg("handling turn")

	resp, status = r.dispatch(ctx, turn)
	r.persist(ctx, turn, resp)
	return resp, status
}

func (r *Router) dispatch(ctx context.Context, turn *model.Turn) (*model.Fulfillment, int) {
	var (
		resp *model.Fulfillment
		err  error
	)
	switch turn.Intent {
	case IntentWelcome:
		resp = &model.Fulfillment{FulfillmentText: welcomeText, Source: "default"}
	case IntentConsult:
		resp = &model.Fulfillment{FulfillmentText: consultText, Source: "health_consult"}
	case IntentAddSymptom:
		resp, err = r.addSymptom(ctx, turn)
	case IntentProvideMRN:
		resp, err = r.provideMRN(ctx, turn)
	default:
		return defaultResponse(), http.StatusNotFound
	}
	if err != nil {
		logx.Error().Err(err).Str("intent", turn.Intent).Msg("handler failed")
		return defaultResponse(), http.StatusNotFound
	}
	return resp, http.StatusOK
}

// addSymptom folds the new symptom into the conversation: the response is
// the prior history followed by the current utterance, prompting for more.
func (r *Router) addSymptom(ctx context.Context, turn *model.Turn) (*model.Fulfillment, error) {
	symptom := turn.Parameters.First("symptom")
	if symptom == "" {
		return &model.Fulfillment{FulfillmentText: symptomClarifyText, Source: "add_symptom"}, nil
	}

	history, err := r.gateway.History(ctx, turn.SessionID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	return &model.Fulfillment{
		FulfillmentText: history + turn.Utterance + symptomMorePrompt,
		Source:          "add_symptom",
		// The outgoing object carries the structured parameters; the merge
		// engine reads them from here.
		Parameters: turn.Parameters,
	}, nil
}

// provideMRN looks the patient up by medical record number.
func (r *Router) provideMRN(ctx context.Context, turn *model.Turn) (*model.Fulfillment, error) {
	mrn, err := turn.Parameters.MRN()
	if err != nil {
		logx.Warn().Err(err).Str("sessionID", turn.SessionID).Msg("mrn coercion failed")
		return &model.Fulfillment{FulfillmentText: mrnRepeatText, Source: "get_user_info"}, nil
	}

	patient, err := r.gateway.PatientByMRN(ctx, mrn)
	switch {
	case err == nil:
		text := fmt.Sprintf("Hello %s %s, how can I help you today ?", patient.FirstName, patient.LastName)
		return &model.Fulfillment{FulfillmentText: text, Source: "get_user_info"}, nil
	case errors.Is(err, errx.ErrNotFound):
		return &model.Fulfillment{FulfillmentText: patientMissText, Source: "get_user_info"}, nil
	default:
		return nil, fmt.Errorf("patient lookup: %w", err)
	}
}

// persist records the turn and merges its entities, serialised per session.
// Failures here are logged and swallowed: logging must never fail a turn.
func (r *Router) persist(ctx context.Context, turn *model.Turn, resp *model.Fulfillment) {
	release, err := r.locker.Acquire(ctx, turn.SessionID)
	if err != nil {
		logx.Error().Err(err).Str("sessionID", turn.SessionID).Msg("failed to acquire session lock")
		return
	}
	defer release()

	if err := r.gateway.RecordTurn(ctx, turn.SessionID, string(turn.Raw), turn.Utterance, resp.FulfillmentText); err != nil {
		logx.Error().Err(err).Str("sessionID", turn.SessionID).Msg("failed to persist transcript")
	}

	// The merge engine reads whichever object carries the parameters: the
	// response when the handler re-parsed them, the inbound turn otherwise.
	var source model.ParameterSource = turn
	if len(resp.EntityParameters()) > 0 {
		source = resp
	}
	params := source.EntityParameters()
	if len(params) == 0 {
		return
	}
	if err := r.gateway.UpsertEntities(ctx, turn.SessionID, params); err != nil {
		logx.Error().Err(err).Str("sessionID", turn.SessionID).Msg("failed to merge entities")
	}
}

// persistMalformed salvages what it can from an unparseable payload so the
// transcript still shows the attempt.
func (r *Router) persistMalformed(ctx context.Context, body []byte) {
	salvaged := model.SalvageTurn(body)
	if salvaged == nil {
		return
	}
	release, err := r.locker.Acquire(ctx, salvaged.SessionID)
	if err != nil {
		logx.Error().Err(err).Str("sessionID", salvaged.SessionID).Msg("failed to acquire session lock")
		return
	}
	defer release()

	if err := r.gateway.RecordTurn(ctx, salvaged.SessionID, string(body), salvaged.Utterance, defaultNotFoundText); err != nil {
		logx.Error().Err(err).Str("sessionID", salvaged.SessionID).Msg("failed to persist malformed turn")
	}
}
