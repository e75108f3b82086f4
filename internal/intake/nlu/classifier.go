// Package nlu wraps the managed intent engine. The engine is an opaque
// oracle: text in, fulfillment text out. No understanding happens locally.
package nlu

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"github.com/hospitalbot-poc/server/internal/intake/model"
	logx "github.com/hospitalbot-poc/server/pkg/logger"
)

// Classifier resolves free text to a fulfillment response when the ontology
// pre-check found nothing.
type Classifier interface {
	Detect(ctx context.Context, sessionID, text string) (string, error)
}

const systemPrompt = `You are the intent engine for a medical intake assistant.
Answer the patient's message in one short sentence. If the message describes
symptoms, acknowledge them and ask a relevant follow-up question. Reply in %s.`

// GeminiClassifier calls the Gemini intent model.
type GeminiClassifier struct {
	chatModel *gemini.ChatModel
	language  string
}

// GeminiConfig holds the credentials and model configuration.
type GeminiConfig struct {
	APIKey  string
	BaseURL string
	Model   model.NLUModelConfig
}

// NewGeminiClassifier creates the genai client and the chat model on top of it.
func NewGeminiClassifier(ctx context.Context, config GeminiConfig) (*GeminiClassifier, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = config.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	chatModel, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.Model.Model,
		Temperature: &config.Model.Temperature,
		MaxTokens:   &config.Model.MaxTokens,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating NLU model")
		return nil, fmt.Errorf("error creating NLU model: %w", err)
	}

	return &GeminiClassifier{
		chatModel: chatModel,
		language:  config.Model.LanguageCode,
	}, nil
}

// Detect sends the utterance to the intent model and returns its text.
func (c *GeminiClassifier) Detect(ctx context.Context, sessionID, text string) (string, error) {
	messages := []*schema.Message{
		schema.SystemMessage(fmt.Sprintf(systemPrompt, c.language)),
		schema.UserMessage(text),
	}

	resp, err := c.chatModel.Generate(ctx, messages)
	if err != nil {
		logx.Error().Err(err).Str("sessionID", sessionID).Msg("intent engine call failed")
		return "", fmt.Errorf("detect intent: %w", err)
	}
	return resp.Content, nil
}

var _ Classifier = (*GeminiClassifier)(nil)
