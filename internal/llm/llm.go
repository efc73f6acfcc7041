package llm

import "context"

// Tier selects which configured model serves a request.
type Tier string

const (
	// TierFast is the low-latency model used for vision, extraction and
	// formatting stages.
	TierFast Tier = "fast"
	// TierReasoning is the deeper model used for causal explanation and
	// risk auditing.
	TierReasoning Tier = "reasoning"
)

// Request describes a single completion call. Image is optional; when set it
// is sent inline alongside the prompt. Temperature only applies to the fast
// tier; the reasoning tier uses the configured reasoning effort instead.
type Request struct {
	Prompt      string
	Image       []byte
	ImageMIME   string
	Tier        Tier
	Temperature float64
}

// Client is a minimal generation interface to allow pluggable providers.
// Implementations must return an error for empty completions so callers can
// rely on non-empty output.
type Client interface {
	Generate(ctx context.Context, req Request) (string, error)
	ListModels(ctx context.Context) ([]string, error)
}
