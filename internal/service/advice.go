package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"weather_favorites/internal/config"
	"weather_favorites/internal/metrics"
	"weather_favorites/internal/models"

	openai "github.com/sashabaranov/go-openai"
)

const (
	defaultAIModel = "gpt-5-mini"
	noAdvice       = "No advice available."

	msgAIUnavailable = "AI service is temporarily unavailable. Please try again later."
	msgAIFailed      = "Failed to generate AI response"
)

// AdviceService answers weather questions through an OpenAI-compatible
// chat completion endpoint.
type AdviceService struct {
	client *openai.Client
	model  string
}

func NewAdviceService(cfg config.AIConfig) *AdviceService {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	clientCfg.HTTPClient = &http.Client{Timeout: timeout}

	model := cfg.Model
	if model == "" {
		model = defaultAIModel
	}
	return &AdviceService{client: openai.NewClientWithConfig(clientCfg), model: model}
}

func (s *AdviceService) Advise(ctx context.Context, in models.AdviceInput) (string, error) {
	if err := models.Validate(in); err != nil {
		return "", validationError(err)
	}
	if in.Location != nil {
		if err := in.Location.Validate(); err != nil {
			return "", validationError(err)
		}
	}

	var label string
	if in.Location != nil {
		label = in.Location.Label()
	}
	prompt := buildWeatherPrompt(strings.TrimSpace(in.Question), string(in.Weather), label)

	start := time.Now()
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		if upstreamStatus(err) == http.StatusTooManyRequests {
			metrics.ObserveUpstream(metrics.ProviderAI, metrics.OutcomeRateLimited, start)
			return "", newError(ErrRateLimited, msgAIUnavailable, err)
		}
		metrics.ObserveUpstream(metrics.ProviderAI, metrics.OutcomeError, start)
		return "", newError(ErrGeneration, msgAIFailed, err)
	}
	metrics.ObserveUpstream(metrics.ProviderAI, metrics.OutcomeOK, start)

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return noAdvice, nil
	}
	return resp.Choices[0].Message.Content, nil
}

// upstreamStatus extracts the provider's HTTP status from a client error.
func upstreamStatus(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

// buildWeatherPrompt renders the single user message sent to the model.
// weatherJSON and location are omitted when empty.
func buildWeatherPrompt(question, weatherJSON, location string) string {
	var b strings.Builder
	b.WriteString("You are a weather assistant. You answer weather related questions; a general question is answered in the context of the weather, anything else is declined.\n")
	if location != "" {
		fmt.Fprintf(&b, "The location is: %s\n", location)
	}
	if w := strings.TrimSpace(weatherJSON); w != "" && w != "null" {
		fmt.Fprintf(&b, "The weather data is: %s\n", w)
	}
	b.WriteString("User question:\n")
	fmt.Fprintf(&b, "%q\n", question)
	b.WriteString("Give the answer in HTML. The root element is a single div with professional and aesthetic styling, with no nested duplicate div.\n")
	b.WriteString("Style it as a classic chat message.\n")
	b.WriteString("Use headings, bullet points, and short paragraphs to make the advice easy to read.\n")
	b.WriteString("Give short, practical, friendly advice.\n")
	b.WriteString("Avoid technical jargon.\n")
	return b.String()
}
