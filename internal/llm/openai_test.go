package llm

import (
	"strings"
	"testing"

	"github.com/openai/openai-go/v3"
)

func TestNewOpenAIClient(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{
			name:    "missing api key",
			opts:    Options{},
			wantErr: true,
		},
		{
			name:    "defaults applied",
			opts:    Options{APIKey: "test-key"},
			wantErr: false,
		},
		{
			name: "custom models and base url",
			opts: Options{
				APIKey:          "test-key",
				BaseURL:         "https://example.test/v1",
				FastModel:       "gemini-3-flash-preview",
				ReasoningModel:  "gemini-3-pro-preview",
				ReasoningEffort: "medium",
			},
			wantErr: false,
		},
		{
			name:    "invalid reasoning effort",
			opts:    Options{APIKey: "test-key", ReasoningEffort: "maximum"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewOpenAIClient(tt.opts)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if client.fastModel == "" || client.reasoningModel == "" {
				t.Error("expected both model tiers to be set")
			}
		})
	}
}

func TestNewOpenAIClientDefaults(t *testing.T) {
	client, err := NewOpenAIClient(Options{APIKey: "test-key"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.fastModel != openai.ChatModelGPT4oMini {
		t.Errorf("expected default fast model, got %s", client.fastModel)
	}
	if client.effort != openai.ReasoningEffortHigh {
		t.Errorf("expected default effort high, got %s", client.effort)
	}
}

func TestUserMessage(t *testing.T) {
	t.Run("text only", func(t *testing.T) {
		msg := userMessage(Request{Prompt: "explain this"})
		if msg.OfUser == nil {
			t.Fatal("expected user message")
		}
		if msg.OfUser.Content.OfString.Value != "explain this" {
			t.Errorf("unexpected content: %v", msg.OfUser.Content.OfString)
		}
	})

	t.Run("with image", func(t *testing.T) {
		msg := userMessage(Request{Prompt: "describe", Image: []byte{0x89, 0x50}, ImageMIME: "image/png"})
		if msg.OfUser == nil {
			t.Fatal("expected user message")
		}
		parts := msg.OfUser.Content.OfArrayOfContentParts
		if len(parts) != 2 {
			t.Fatalf("expected 2 content parts, got %d", len(parts))
		}
		if parts[0].OfText == nil || parts[0].OfText.Text != "describe" {
			t.Error("expected text part first")
		}
		if parts[1].OfImageURL == nil {
			t.Fatal("expected image part second")
		}
		url := parts[1].OfImageURL.ImageURL.URL
		if !strings.HasPrefix(url, "data:image/png;base64,") {
			t.Errorf("unexpected data url prefix: %s", url)
		}
	})
}

func TestDataURLDefaultsMIME(t *testing.T) {
	url := dataURL([]byte("x"), "")
	if !strings.HasPrefix(url, "data:image/png;base64,") {
		t.Errorf("expected png fallback, got %s", url)
	}
}
