// Package fineprint audits legal documents for hidden risks. Input text is
// obtained from raw text, a PDF, or a document photo, then passed through
// two sequential model calls: a deep-reasoning risk audit and a fast
// red/yellow/green summary.
package fineprint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"insight-agents/internal/llm"
	"insight-agents/internal/pipeline"
)

// PipelineName identifies this pipeline in errors and logs.
const PipelineName = "fineprint"

// Stage names, in execution order.
const (
	StageExtract   = "extract"
	StageAudit     = "audit"
	StageSummarize = "summarize"
)

const (
	// scanTemperature keeps extraction and summarization close to literal.
	scanTemperature = 0.1
	// previewLen caps the document text echoed back in results.
	previewLen = 500
)

// DocumentType labels the kind of document under review; it steers the
// audit prompt.
type DocumentType string

const (
	DocTypeTermsOfService     DocumentType = "terms_of_service"
	DocTypeRentalAgreement    DocumentType = "rental_agreement"
	DocTypeMedicalForm        DocumentType = "medical_form"
	DocTypeEmploymentContract DocumentType = "employment_contract"
	DocTypeServiceAgreement   DocumentType = "service_agreement"
	DocTypePrivacyPolicy      DocumentType = "privacy_policy"
	DocTypeOther              DocumentType = "other"
)

var docTypeLabels = map[DocumentType]string{
	DocTypeTermsOfService:     "terms of service",
	DocTypeRentalAgreement:    "rental agreement",
	DocTypeMedicalForm:        "medical form",
	DocTypeEmploymentContract: "employment contract",
	DocTypeServiceAgreement:   "service agreement",
	DocTypePrivacyPolicy:      "privacy policy",
	DocTypeOther:              "legal document",
}

// Valid reports whether t is a known document type.
func (t DocumentType) Valid() bool {
	_, ok := docTypeLabels[t]
	return ok
}

// Label returns the human-readable form used in prompts.
func (t DocumentType) Label() string {
	if label, ok := docTypeLabels[t]; ok {
		return label
	}
	return "legal document"
}

// Input is one document submission. Exactly one of Text or File should be
// set; File may be a PDF or an image of the document.
type Input struct {
	Text         string
	File         []byte
	FileMIME     string
	Filename     string
	DocumentType DocumentType
}

// Result carries the pipeline outputs.
type Result struct {
	DocumentPreview string `json:"document_preview"`
	RiskAudit       string `json:"risk_audit"`
	RiskSummary     string `json:"risk_summary"`
}

type state struct {
	input        Input
	documentText string
	riskAudit    string
	riskSummary  string
}

// Analyzer runs the fine print pipeline against an LLM client.
type Analyzer struct {
	llm llm.Client
	log *slog.Logger
}

func NewAnalyzer(client llm.Client, log *slog.Logger) *Analyzer {
	return &Analyzer{llm: client, log: log}
}

// Analyze runs extract -> audit -> summarize. The extract stage is a
// passthrough for raw text; for PDFs and images it must produce non-empty
// text before the audit stage is invoked.
func (a *Analyzer) Analyze(ctx context.Context, input Input) (Result, error) {
	stages := []pipeline.Stage[state]{
		{Name: StageExtract, Run: a.extract},
		{Name: StageAudit, Run: a.audit},
		{Name: StageSummarize, Run: a.summarize},
	}
	final, err := pipeline.Run(ctx, a.log, PipelineName, state{input: input}, stages)
	if err != nil {
		return Result{}, err
	}
	return Result{
		DocumentPreview: truncate(final.documentText, previewLen),
		RiskAudit:       final.riskAudit,
		RiskSummary:     final.riskSummary,
	}, nil
}

func (a *Analyzer) extract(ctx context.Context, s state) (state, error) {
	switch {
	case strings.TrimSpace(s.input.Text) != "":
		s.documentText = s.input.Text
		return s, nil
	case len(s.input.File) == 0:
		return s, errors.New("no document input provided")
	case IsPDF(s.input.Filename, s.input.File):
		text, err := ExtractPDFText(s.input.File)
		if err != nil {
			return s, fmt.Errorf("pdf extraction: %w", err)
		}
		if strings.TrimSpace(text) == "" {
			return s, errors.New("pdf contains no extractable text")
		}
		s.documentText = text
		return s, nil
	default:
		// Document photo or screenshot: read it with the fast vision tier.
		text, err := a.llm.Generate(ctx, llm.Request{
			Prompt:      extractPrompt,
			Image:       s.input.File,
			ImageMIME:   s.input.FileMIME,
			Tier:        llm.TierFast,
			Temperature: scanTemperature,
		})
		if err != nil {
			return s, err
		}
		s.documentText = text
		return s, nil
	}
}

func (a *Analyzer) audit(ctx context.Context, s state) (state, error) {
	out, err := a.llm.Generate(ctx, llm.Request{
		Prompt: fmt.Sprintf(auditPromptFmt, s.input.DocumentType.Label(), s.documentText),
		Tier:   llm.TierReasoning,
	})
	if err != nil {
		return s, err
	}
	s.riskAudit = out
	return s, nil
}

func (a *Analyzer) summarize(ctx context.Context, s state) (state, error) {
	out, err := a.llm.Generate(ctx, llm.Request{
		Prompt:      fmt.Sprintf(summaryPromptFmt, s.riskAudit),
		Tier:        llm.TierFast,
		Temperature: scanTemperature,
	})
	if err != nil {
		return s, err
	}
	s.riskSummary = out
	return s, nil
}

// truncate limits text to maxLen characters, cutting at a word boundary.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if idx := strings.LastIndex(s[:maxLen], " "); idx > 0 {
		return s[:idx] + "..."
	}
	return s[:maxLen] + "..."
}

const extractPrompt = `Extract ALL text from this document image. Preserve the structure, formatting, and order of the text. Include everything - headers, paragraphs, fine print, footnotes, and any text in the margins. Be thorough and accurate.`

const auditPromptFmt = `You are an expert legal analyst specializing in identifying predatory clauses and hidden risks in %[1]ss.

Document Text:
%[2]s

Your task:
Analyze this document thoroughly and identify ALL potential risks, predatory clauses, and "gotchas" including:

1. **Hidden Fees & Charges**: Any fees that are not clearly disclosed upfront
2. **Auto-Renewal Clauses**: Automatic renewal without clear opt-out
3. **Privacy Risks**: Data sharing, selling, or usage rights that users might not expect
4. **Liability Limitations**: Clauses that limit the company's liability or shift risk to the user
5. **Binding Arbitration**: Forced arbitration clauses that prevent lawsuits
6. **Cancellation Penalties**: Fees or penalties for canceling
7. **Data Retention**: How long data is kept and what happens to it
8. **Jurisdiction Issues**: Unfavorable legal jurisdictions
9. **Modification Rights**: Ability to change terms without notice
10. **Waiver of Rights**: Any rights the user is giving up

For each risk found:
- Quote the exact clause or section
- Explain why it's problematic
- Rate the severity (High/Medium/Low)
- Note if it contradicts information elsewhere in the document

Be thorough. Check for contradictions between different sections. Use your reasoning capabilities to identify subtle risks that might not be obvious.`

const summaryPromptFmt = `You are a risk assessment expert. Based on the following audit results, create a clear, actionable risk summary report.

Risk Audit Results:
%s

Your task:
Create a comprehensive risk summary with:

1. **Overall Risk Level**:
   - RED (High Risk) - Multiple serious concerns, proceed with extreme caution
   - YELLOW (Medium Risk) - Some concerns, review carefully before signing
   - GREEN (Low Risk) - Generally safe, minor concerns only

2. **Executive Summary**: 2-3 sentence overview of the main risks

3. **Critical Issues** (if any): List the most serious problems that could significantly impact the user

4. **Moderate Concerns**: Issues that are worth noting but not deal-breakers

5. **Minor Notes**: Small concerns or things to be aware of

6. **Recommendations**:
   - Should the user sign this? (Yes/No/With Modifications)
   - What should they do? (e.g., negotiate terms, seek legal advice, avoid)

Format the output clearly with sections. Make it easy for a non-legal expert to understand.`
