package fineprint

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/mock"

	"insight-agents/internal/llm"
	"insight-agents/internal/pipeline"
)

func newTestAnalyzer(client llm.Client) *Analyzer {
	return NewAnalyzer(client, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestAnalyzeTextDocument(t *testing.T) {
	docText := "The tenant agrees that the lease renews automatically each year."

	mockLLM := new(llm.MockClient)
	// Audit stage: reasoning tier, prompt carries the document text and
	// the human-readable type label.
	mockLLM.On("Generate", mock.Anything, mock.MatchedBy(func(req llm.Request) bool {
		return req.Tier == llm.TierReasoning &&
			strings.Contains(req.Prompt, docText) &&
			strings.Contains(req.Prompt, "rental agreement")
	})).Return("Finding: auto-renewal clause", nil).Once()
	// Summary stage: fast tier, prompt carries the audit output.
	mockLLM.On("Generate", mock.Anything, mock.MatchedBy(func(req llm.Request) bool {
		return req.Tier == llm.TierFast &&
			strings.Contains(req.Prompt, "Finding: auto-renewal clause")
	})).Return("YELLOW - review the renewal terms before signing", nil).Once()

	result, err := newTestAnalyzer(mockLLM).Analyze(context.Background(), Input{
		Text:         docText,
		DocumentType: DocTypeRentalAgreement,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.RiskAudit != "Finding: auto-renewal clause" {
		t.Errorf("audit output was modified: %q", result.RiskAudit)
	}
	if result.RiskSummary != "YELLOW - review the renewal terms before signing" {
		t.Errorf("unexpected risk summary: %q", result.RiskSummary)
	}
	if result.DocumentPreview != docText {
		t.Errorf("expected preview to echo short documents unchanged, got %q", result.DocumentPreview)
	}

	mockLLM.AssertExpectations(t)
}

func TestAnalyzeImageDocumentRunsVisionExtraction(t *testing.T) {
	imageBytes := []byte{0xff, 0xd8, 0xff} // JPEG header

	mockLLM := new(llm.MockClient)
	// Extract stage: fast vision call carrying the image.
	mockLLM.On("Generate", mock.Anything, mock.MatchedBy(func(req llm.Request) bool {
		return req.Tier == llm.TierFast && len(req.Image) > 0 && req.ImageMIME == "image/jpeg"
	})).Return("Section 4: a $99 early termination fee applies.", nil).Once()
	// Audit stage consumes the extracted text.
	mockLLM.On("Generate", mock.Anything, mock.MatchedBy(func(req llm.Request) bool {
		return req.Tier == llm.TierReasoning &&
			strings.Contains(req.Prompt, "early termination fee")
	})).Return("Finding: cancellation penalty", nil).Once()
	mockLLM.On("Generate", mock.Anything, mock.MatchedBy(func(req llm.Request) bool {
		return req.Tier == llm.TierFast && len(req.Image) == 0
	})).Return("RED - high risk", nil).Once()

	result, err := newTestAnalyzer(mockLLM).Analyze(context.Background(), Input{
		File:         imageBytes,
		FileMIME:     "image/jpeg",
		Filename:     "contract.jpg",
		DocumentType: DocTypeServiceAgreement,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RiskAudit != "Finding: cancellation penalty" {
		t.Errorf("unexpected audit: %q", result.RiskAudit)
	}
	mockLLM.AssertExpectations(t)
}

func TestAnalyzeNoInputFailsAtExtract(t *testing.T) {
	mockLLM := new(llm.MockClient)

	_, err := newTestAnalyzer(mockLLM).Analyze(context.Background(), Input{
		DocumentType: DocTypeOther,
	})
	if err == nil {
		t.Fatal("expected error")
	}

	var se *pipeline.StageError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StageError, got %T", err)
	}
	if se.Stage != StageExtract {
		t.Errorf("expected failing stage %q, got %q", StageExtract, se.Stage)
	}
	mockLLM.AssertNumberOfCalls(t, "Generate", 0)
}

func TestAnalyzeInvalidPDFFailsBeforeAudit(t *testing.T) {
	mockLLM := new(llm.MockClient)

	_, err := newTestAnalyzer(mockLLM).Analyze(context.Background(), Input{
		File:         []byte("%PDF-1.7 garbage that is not a real pdf"),
		Filename:     "lease.pdf",
		DocumentType: DocTypeRentalAgreement,
	})
	if err == nil {
		t.Fatal("expected error")
	}

	var se *pipeline.StageError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StageError, got %T", err)
	}
	if se.Stage != StageExtract {
		t.Errorf("expected failing stage %q, got %q", StageExtract, se.Stage)
	}
	// No model call may happen for an unreadable PDF.
	mockLLM.AssertNumberOfCalls(t, "Generate", 0)
}

func TestAnalyzeAbortsWhenAuditFails(t *testing.T) {
	mockLLM := new(llm.MockClient)
	mockLLM.On("Generate", mock.Anything, mock.MatchedBy(func(req llm.Request) bool {
		return req.Tier == llm.TierReasoning
	})).Return("", errors.New("openai: empty completion")).Once()

	_, err := newTestAnalyzer(mockLLM).Analyze(context.Background(), Input{
		Text:         "some contract text",
		DocumentType: DocTypeTermsOfService,
	})
	if err == nil {
		t.Fatal("expected error")
	}

	var se *pipeline.StageError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StageError, got %T", err)
	}
	if se.Stage != StageAudit {
		t.Errorf("expected failing stage %q, got %q", StageAudit, se.Stage)
	}
	// The summarize stage must never run after an audit failure.
	mockLLM.AssertNumberOfCalls(t, "Generate", 1)
}

func TestDocumentPreviewTruncatesLongText(t *testing.T) {
	longText := strings.Repeat("clause after clause ", 100) // ~2000 chars

	mockLLM := new(llm.MockClient)
	mockLLM.On("Generate", mock.Anything, mock.Anything).Return("audit", nil).Once()
	mockLLM.On("Generate", mock.Anything, mock.Anything).Return("GREEN", nil).Once()

	result, err := newTestAnalyzer(mockLLM).Analyze(context.Background(), Input{
		Text:         longText,
		DocumentType: DocTypePrivacyPolicy,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.DocumentPreview) > previewLen+3 {
		t.Errorf("preview too long: %d chars", len(result.DocumentPreview))
	}
	if !strings.HasSuffix(result.DocumentPreview, "...") {
		t.Error("expected truncated preview to end with ellipsis")
	}
}

func TestDocumentTypeLabels(t *testing.T) {
	tests := []struct {
		docType DocumentType
		valid   bool
		label   string
	}{
		{DocTypeRentalAgreement, true, "rental agreement"},
		{DocTypeTermsOfService, true, "terms of service"},
		{DocTypeOther, true, "legal document"},
		{DocumentType("scribbles"), false, "legal document"},
	}
	for _, tt := range tests {
		t.Run(string(tt.docType), func(t *testing.T) {
			if tt.docType.Valid() != tt.valid {
				t.Errorf("Valid() = %v, want %v", tt.docType.Valid(), tt.valid)
			}
			if tt.docType.Label() != tt.label {
				t.Errorf("Label() = %q, want %q", tt.docType.Label(), tt.label)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("expected passthrough, got %q", got)
	}
	got := truncate("one two three four", 10)
	if got != "one two..." {
		t.Errorf("expected word-boundary cut, got %q", got)
	}
}
