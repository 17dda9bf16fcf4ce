package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/cloo-solutions/ragchat/internal/domain"
	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultBaseURL is the OpenAI-compatible endpoint of the default model provider
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"
	// DefaultChatModel is the hosted model used for answers
	DefaultChatModel = "gemini-2.5-flash"
	// DefaultExtractModel is the multimodal model used for document extraction
	DefaultExtractModel = "gemini-2.5-pro"
	// DefaultEmbeddingModel is the hosted model used for generating embeddings
	DefaultEmbeddingModel = "gemini-embedding-001"
	// DefaultEmbeddingDimensions is the expected dimension of embeddings from DefaultEmbeddingModel
	DefaultEmbeddingDimensions = 3072
)

var (
	// ErrEmptyText is returned when text is empty
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrWrongDimensions is returned when embedding has wrong dimensions
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
)

// API is the subset of the hosted model API used by Client
type API interface {
	CreateEmbeddings(ctx context.Context, model string, dimensions int, texts []string) ([][]float32, error)
	CreateCompletion(ctx context.Context, req openai.ChatCompletionRequest) (string, error)
}

// Client wraps an OpenAI-compatible API client
type Client struct {
	api            API
	chatModel      string
	extractModel   string
	embeddingModel string
	dimensions     int
	temperature    float32
	streaming      bool
}

// OpenAIAdapter implements API on top of go-openai.
type OpenAIAdapter struct {
	client *openai.Client
}

func NewOpenAIAdapter(apiKey, baseURL string, timeout time.Duration) *OpenAIAdapter {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if timeout > 0 {
		cfg.HTTPClient = &http.Client{Timeout: timeout}
	}
	return &OpenAIAdapter{client: openai.NewClientWithConfig(cfg)}
}

// CreateEmbeddings calls the embeddings endpoint once for all texts
func (a *OpenAIAdapter) CreateEmbeddings(ctx context.Context, model string, dimensions int, texts []string) ([][]float32, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      texts,
		Model:      openai.EmbeddingModel(model),
		Dimensions: dimensions,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	data := resp.Data
	sort.SliceStable(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	out := make([][]float32, len(data))
	for i, d := range data {
		out[i] = d.Embedding
	}
	return out, nil
}

// CreateCompletion returns the text of the first choice. Streaming requests are
// read to the end and concatenated.
func (a *OpenAIAdapter) CreateCompletion(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	if !req.Stream {
		resp, err := a.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", domain.ErrNoReply
		}
		return resp.Choices[0].Message.Content, nil
	}

	stream, err := a.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	var content []byte
	received := false
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		received = true
		content = append(content, chunk.Choices[0].Delta.Content...)
	}
	if !received {
		return "", domain.ErrNoReply
	}
	return string(content), nil
}

type Config struct {
	APIKey              string
	BaseURL             string
	ChatModel           string
	ExtractModel        string
	EmbeddingModel      string
	EmbeddingDimensions int
	Temperature         float32
	Streaming           bool
	Timeout             time.Duration
}

// NewClient creates a new client using defaults.
func NewClient(apiKey string) *Client {
	return NewClientWithConfig(Config{APIKey: apiKey})
}

// NewClientWithConfig creates a new client with explicit configuration.
func NewClientWithConfig(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	return newClient(NewOpenAIAdapter(cfg.APIKey, cfg.BaseURL, cfg.Timeout), cfg)
}

// NewClientWithAPI creates a client over an arbitrary API implementation.
func NewClientWithAPI(api API, cfg Config) *Client {
	return newClient(api, cfg)
}

func newClient(api API, cfg Config) *Client {
	c := &Client{
		api:            api,
		chatModel:      cfg.ChatModel,
		extractModel:   cfg.ExtractModel,
		embeddingModel: cfg.EmbeddingModel,
		dimensions:     cfg.EmbeddingDimensions,
		temperature:    cfg.Temperature,
		streaming:      cfg.Streaming,
	}
	if c.chatModel == "" {
		c.chatModel = DefaultChatModel
	}
	if c.extractModel == "" {
		c.extractModel = DefaultExtractModel
	}
	if c.embeddingModel == "" {
		c.embeddingModel = DefaultEmbeddingModel
	}
	if c.dimensions <= 0 {
		c.dimensions = DefaultEmbeddingDimensions
	}
	return c
}

// Dimensions returns the embedding size produced by Embed.
func (c *Client) Dimensions() int {
	return c.dimensions
}

// Embed generates one embedding per text in a single API call
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyText
	}
	for _, t := range texts {
		if t == "" {
			return nil, ErrEmptyText
		}
	}

	embeddings, err := c.api.CreateEmbeddings(ctx, c.embeddingModel, c.dimensions, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}

	for _, e := range embeddings {
		if len(e) != c.dimensions {
			return nil, fmt.Errorf("%w: expected %d, got %d", ErrWrongDimensions, c.dimensions, len(e))
		}
	}

	return embeddings, nil
}

// Chat sends the ordered messages to the chat model and returns its reply
func (c *Client) Chat(ctx context.Context, messages []domain.Message) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.chatModel,
		Messages:    toChatMessages(messages),
		Temperature: c.temperature,
		Stream:      c.streaming,
	}

	reply, err := c.api.CreateCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	return reply, nil
}

// ExtractDocument sends a binary document and an instruction to the multimodal model
// and returns its text output verbatim.
func (c *Client) ExtractDocument(ctx context.Context, document []byte, mimeType, instruction string) (string, error) {
	if len(document) == 0 {
		return "", domain.ErrEmptyDocument
	}

	dataURL := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(document)
	req := openai.ChatCompletionRequest{
		Model: c.extractModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: dataURL},
					},
					{
						Type: openai.ChatMessagePartTypeText,
						Text: instruction,
					},
				},
			},
		},
	}

	text, err := c.api.CreateCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to extract document: %w", err)
	}
	return text, nil
}

func toChatMessages(messages []domain.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		role := openai.ChatMessageRoleUser
		switch m.Role {
		case domain.RoleSystem:
			role = openai.ChatMessageRoleSystem
		case domain.RoleAssistant:
			role = openai.ChatMessageRoleAssistant
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return out
}
