package recognize

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/rotisserie/eris"

	"github.com/sells-group/gutlog/internal/resilience"
	"github.com/sells-group/gutlog/pkg/anthropic"
)

// Prompt is the fixed instruction sent with every photo.
const Prompt = `Identify the dish in this photo and estimate the total mass of food visible.
Reply with a single JSON object and nothing else:
{"food_name": "<dish name>", "total_mass_g": <grams as a number>, "calories": <kcal as a number>, "comment": "<one short remark>"}
If several items are shown, name the main dish and estimate the combined mass.`

// Recognizer sends an image to a vision model and returns its raw answer.
type Recognizer interface {
	Recognize(ctx context.Context, img Image) (string, error)
}

// AnthropicRecognizer uses Claude through pkg/anthropic.
type AnthropicRecognizer struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropicRecognizer returns a recognizer that calls model via client.
func NewAnthropicRecognizer(client anthropic.Client, model string, maxTokens int64) *AnthropicRecognizer {
	if maxTokens <= 0 {
		maxTokens = 512
	}
	return &AnthropicRecognizer{client: client, model: model, maxTokens: maxTokens}
}

// Recognize implements Recognizer.
func (r *AnthropicRecognizer) Recognize(ctx context.Context, img Image) (string, error) {
	resp, err := r.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     r.model,
		MaxTokens: r.maxTokens,
		Messages: []anthropic.Message{{
			Role:    "user",
			Content: Prompt,
			Images:  []anthropic.Image{{MediaType: img.MediaType, Data: img.Data}},
		}},
	})
	if err != nil {
		return "", classify(err, anthropic.StatusCode(err))
	}
	resp.Usage.Log(r.model, "recognize")
	return resp.Text(), nil
}

// OpenAIRecognizer uses any OpenAI-compatible chat completions endpoint.
type OpenAIRecognizer struct {
	client openai.Client
	model  string
}

// NewOpenAIRecognizer builds a client for baseURL (empty for the OpenAI
// default). httpClient may be nil.
func NewOpenAIRecognizer(apiKey, baseURL, model string, httpClient *http.Client) *OpenAIRecognizer {
	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(apiKey)),
		option.WithMaxRetries(0),
	}
	if u := strings.TrimRight(strings.TrimSpace(baseURL), "/"); u != "" {
		opts = append(opts, option.WithBaseURL(u))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	return &OpenAIRecognizer{client: openai.NewClient(opts...), model: model}
}

// Recognize implements Recognizer.
func (r *OpenAIRecognizer) Recognize(ctx context.Context, img Image) (string, error) {
	dataURL := "data:" + img.MediaType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
	parts := []openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(Prompt),
		openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
	}

	resp, err := r.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(r.model),
		Messages: []openai.ChatCompletionMessageParamUnion{openai.UserMessage(parts)},
	})
	if err != nil {
		var apiErr *openai.Error
		status := 0
		if errors.As(err, &apiErr) {
			status = apiErr.StatusCode
		}
		return "", classify(eris.Wrap(err, "openai: chat completion"), status)
	}
	if len(resp.Choices) == 0 {
		return "", eris.Wrap(ErrMalformedResponse, "no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func classify(err error, status int) error {
	if resilience.IsTransientHTTPStatus(status) {
		return resilience.NewTransientError(err, status)
	}
	return err
}
