package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIClient calls an OpenAI-compatible Chat Completions API with two
// model tiers.
type OpenAIClient struct {
	fastModel      openai.ChatModel
	reasoningModel openai.ChatModel
	effort         openai.ReasoningEffort
	client         *openai.Client
}

const (
	// Reasoning calls may think for a while before the first byte; give
	// them a longer leash than fast calls.
	defaultFastTimeout      = 60 * time.Second
	defaultReasoningTimeout = 180 * time.Second
)

// Options configures NewOpenAIClient.
type Options struct {
	APIKey          string
	BaseURL         string // empty means api.openai.com
	FastModel       string
	ReasoningModel  string
	ReasoningEffort string // low, medium, high
}

// NewOpenAIClient builds a two-tier client. Calls fail fast: one attempt,
// no retries, so a stage failure surfaces immediately.
func NewOpenAIClient(opts Options) (*OpenAIClient, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("api key required")
	}
	effort, err := parseEffort(opts.ReasoningEffort)
	if err != nil {
		return nil, err
	}
	fast := openai.ChatModel(opts.FastModel)
	if fast == "" {
		fast = openai.ChatModelGPT4oMini
	}
	reasoning := openai.ChatModel(opts.ReasoningModel)
	if reasoning == "" {
		reasoning = openai.ChatModelO4Mini
	}
	reqOpts := []option.RequestOption{option.WithAPIKey(opts.APIKey)}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	cli := openai.NewClient(reqOpts...)
	return &OpenAIClient{
		fastModel:      fast,
		reasoningModel: reasoning,
		effort:         effort,
		client:         &cli,
	}, nil
}

func (c *OpenAIClient) Generate(ctx context.Context, req Request) (string, error) {
	if c == nil || c.client == nil {
		return "", fmt.Errorf("nil openai client")
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return "", fmt.Errorf("empty prompt")
	}

	params := openai.ChatCompletionNewParams{
		Model:    c.fastModel,
		Messages: []openai.ChatCompletionMessageParamUnion{userMessage(req)},
	}
	timeout := defaultFastTimeout
	switch req.Tier {
	case TierReasoning:
		params.Model = c.reasoningModel
		params.ReasoningEffort = c.effort
		timeout = defaultReasoningTimeout
	default:
		if req.Temperature > 0 {
			params.Temperature = openai.Float(req.Temperature)
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	resp, err := c.client.Chat.Completions.New(reqCtx, params)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("openai: empty completion")
	}
	return resp.Choices[0].Message.Content, nil
}

// ListModels returns the model ids available to the configured credential.
func (c *OpenAIClient) ListModels(ctx context.Context) ([]string, error) {
	if c == nil || c.client == nil {
		return nil, fmt.Errorf("nil openai client")
	}
	reqCtx, cancel := context.WithTimeout(ctx, defaultFastTimeout)
	defer cancel()
	page, err := c.client.Models.List(reqCtx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(page.Data))
	for _, m := range page.Data {
		names = append(names, m.ID)
	}
	sort.Strings(names)
	return names, nil
}

func userMessage(req Request) openai.ChatCompletionMessageParamUnion {
	if len(req.Image) == 0 {
		return openai.ChatCompletionMessageParamUnion{
			OfUser: &openai.ChatCompletionUserMessageParam{
				Content: openai.ChatCompletionUserMessageParamContentUnion{
					OfString: openai.String(req.Prompt),
				},
			},
		}
	}
	parts := []openai.ChatCompletionContentPartUnionParam{
		{
			OfText: &openai.ChatCompletionContentPartTextParam{Text: req.Prompt},
		},
		{
			OfImageURL: &openai.ChatCompletionContentPartImageParam{
				ImageURL: openai.ChatCompletionContentPartImageImageURLParam{
					URL: dataURL(req.Image, req.ImageMIME),
				},
			},
		},
	}
	return openai.ChatCompletionMessageParamUnion{
		OfUser: &openai.ChatCompletionUserMessageParam{
			Content: openai.ChatCompletionUserMessageParamContentUnion{
				OfArrayOfContentParts: parts,
			},
		},
	}
}

func dataURL(data []byte, mime string) string {
	if mime == "" {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func parseEffort(effort string) (openai.ReasoningEffort, error) {
	switch strings.ToLower(effort) {
	case "", "high":
		return openai.ReasoningEffortHigh, nil
	case "medium":
		return openai.ReasoningEffortMedium, nil
	case "low":
		return openai.ReasoningEffortLow, nil
	default:
		return "", fmt.Errorf("invalid reasoning effort %q (valid options: low, medium, high)", effort)
	}
}
