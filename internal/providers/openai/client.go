package openai

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/biodoia/goleapcouncil/internal/providers"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

// DefaultGroqBaseURL è l'endpoint OpenAI-compatible di Groq
const DefaultGroqBaseURL = "https://api.groq.com/openai"

// Client implementa un client OpenAI-compatible
type Client struct {
	*providers.BaseProvider
	httpClient *resty.Client
}

// Option configura un Client
type Option func(*Client)

// WithTimeout imposta il timeout HTTP complessivo (retry inclusi)
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) { c.SetTimeout(timeout) }
}

// WithMaxRetries imposta il numero di retry su 408/429/5xx
func WithMaxRetries(retries int) Option {
	return func(c *Client) { c.SetMaxRetries(retries) }
}

// WithRetryWait imposta l'attesa minima e massima tra due retry
func WithRetryWait(wait, maxWait time.Duration) Option {
	return func(c *Client) {
		c.httpClient.SetRetryWaitTime(wait).SetRetryMaxWaitTime(maxWait)
	}
}

// NewClient crea un nuovo client OpenAI
func NewClient(name, baseURL, apiKey string, opts ...Option) *Client {
	client := &Client{
		BaseProvider: providers.NewBaseProvider(name, baseURL, apiKey),
		httpClient: resty.New().
			SetRetryWaitTime(1 * time.Second).
			SetRetryMaxWaitTime(10 * time.Second),
	}

	for _, opt := range opts {
		opt(client)
	}

	client.configureHTTPClient()
	return client
}

// configureHTTPClient configura il client HTTP con retry e timeout
func (c *Client) configureHTTPClient() {
	c.httpClient.
		SetBaseURL(c.GetBaseURL()).
		SetTimeout(c.GetTimeout()).
		SetRetryCount(c.GetMaxRetries()).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if r == nil || err != nil {
				return false
			}
			return r.StatusCode() >= 500 ||
				r.StatusCode() == http.StatusTooManyRequests ||
				r.StatusCode() == http.StatusRequestTimeout
		}).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	if c.GetAPIKey() != "" {
		c.httpClient.SetAuthToken(c.GetAPIKey())
	}

	c.httpClient.OnBeforeRequest(func(client *resty.Client, req *resty.Request) error {
		log.Debug().
			Str("provider", c.Name()).
			Str("method", req.Method).
			Str("url", req.URL).
			Msg("chat API request")
		return nil
	})

	c.httpClient.OnAfterResponse(func(client *resty.Client, resp *resty.Response) error {
		log.Debug().
			Str("provider", c.Name()).
			Int("status", resp.StatusCode()).
			Dur("duration", resp.Time()).
			Msg("chat API response")
		return nil
	})
}

// ChatCompletion esegue una richiesta di chat completion
func (c *Client) ChatCompletion(ctx context.Context, req *providers.ChatRequest) (*providers.ChatResponse, error) {
	openaiReq := c.convertToOpenAIRequest(req)

	var openaiResp ChatCompletionResponse
	var errResp ErrorResponse

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(openaiReq).
		SetResult(&openaiResp).
		SetError(&errResp).
		Post("/v1/chat/completions")

	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.IsError() {
		return nil, c.handleErrorResponse(resp.StatusCode(), &errResp)
	}

	if len(openaiResp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices for model %s", providers.ErrEmptyResponse, req.Model)
	}

	return c.convertFromOpenAIResponse(&openaiResp), nil
}

// HealthCheck verifica lo stato del provider
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.GetModels(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

// GetModels restituisce la lista dei modelli disponibili
func (c *Client) GetModels(ctx context.Context) ([]providers.ModelInfo, error) {
	var result ModelsResponse
	var errResp ErrorResponse

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&result).
		SetError(&errResp).
		Get("/v1/models")

	if err != nil {
		return nil, fmt.Errorf("failed to get models: %w", err)
	}

	if resp.IsError() {
		return nil, c.handleErrorResponse(resp.StatusCode(), &errResp)
	}

	models := make([]providers.ModelInfo, len(result.Data))
	for i, model := range result.Data {
		models[i] = providers.ModelInfo{
			ID:       model.ID,
			Provider: c.Name(),
			OwnedBy:  model.OwnedBy,
			Created:  model.Created,
		}
	}

	return models, nil
}

// convertToOpenAIRequest converte una richiesta generica in formato OpenAI
func (c *Client) convertToOpenAIRequest(req *providers.ChatRequest) *ChatCompletionRequest {
	openaiReq := &ChatCompletionRequest{
		Model:       req.Model,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		MaxTokens:   req.MaxTokens,
		Stream:      false,
	}

	openaiReq.Messages = make([]ChatMessage, len(req.Messages))
	for i, msg := range req.Messages {
		openaiReq.Messages[i] = ChatMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	return openaiReq
}

// convertFromOpenAIResponse converte una risposta OpenAI in formato generico
func (c *Client) convertFromOpenAIResponse(resp *ChatCompletionResponse) *providers.ChatResponse {
	choices := make([]providers.Choice, len(resp.Choices))
	for i, choice := range resp.Choices {
		choices[i] = providers.Choice{
			Index: choice.Index,
			Message: providers.Message{
				Role:    choice.Message.Role,
				Content: choice.Message.Content,
			},
			FinishReason: choice.FinishReason,
		}
	}

	return &providers.ChatResponse{
		ID:      resp.ID,
		Model:   resp.Model,
		Choices: choices,
		Usage: providers.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
}

// handleErrorResponse gestisce gli errori dalla risposta API
func (c *Client) handleErrorResponse(statusCode int, errResp *ErrorResponse) error {
	detail := fmt.Sprintf("status %d", statusCode)
	if errResp.Error.Message != "" {
		detail = fmt.Sprintf("%s (type: %s, status %d)", errResp.Error.Message, errResp.Error.Type, statusCode)
	}

	switch statusCode {
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", providers.ErrInvalidRequest, detail)
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", providers.ErrInvalidAPIKey, detail)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", providers.ErrModelNotFound, detail)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", providers.ErrRateLimitExceeded, detail)
	case http.StatusServiceUnavailable:
		return fmt.Errorf("%w: %s", providers.ErrServiceUnavailable, detail)
	default:
		return &StatusError{StatusCode: statusCode, Detail: detail}
	}
}

// StatusError rappresenta una risposta non-2xx senza sentinel dedicato
type StatusError struct {
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	return "API error: " + e.Detail
}
