package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"insight-agents/internal/app"
	"insight-agents/internal/cache"
	"insight-agents/internal/diagram"
	"insight-agents/internal/fineprint"
	"insight-agents/internal/httputil"
	"insight-agents/internal/pipeline"
)

func main() {
	deps, err := app.Build()
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	defer deps.Cache.Close()

	diagrams := diagram.NewAnalyzer(deps.LLM, deps.Log)
	finePrints := fineprint.NewAnalyzer(deps.LLM, deps.Log)

	r := httputil.NewRouter(deps.Log)
	r.Post("/api/diagram", diagramHandler(deps, diagrams))
	r.Post("/api/fineprint", finePrintHandler(deps, finePrints))
	r.Get("/api/models", modelsHandler(deps))
	r.Get("/healthz", httputil.HealthHandler(deps.Log))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", deps.Config.Port),
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		deps.Log.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		deps.Log.Error("server stopped", "err", err)
	}
}

type diagramResponse struct {
	AnalysisID         string `json:"analysis_id"`
	ImageDescription   string `json:"image_description"`
	LogicalExplanation string `json:"logical_explanation"`
	QuizQuestions      string `json:"quiz_questions"`
	Cached             bool   `json:"cached"`
}

func diagramHandler(deps app.Deps, analyzer *diagram.Analyzer) http.HandlerFunc {
	maxSize := deps.Config.MaxImageSize

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if r.ContentLength > maxSize {
			httputil.Fail(deps.Log, w, fmt.Sprintf("file too large (max %d bytes)", maxSize), nil, http.StatusBadRequest)
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			httputil.Fail(deps.Log, w, "file is required", err, http.StatusBadRequest)
			return
		}
		defer file.Close()

		if header.Size > maxSize {
			httputil.Fail(deps.Log, w, fmt.Sprintf("file too large (max %d bytes)", maxSize), nil, http.StatusBadRequest)
			return
		}

		content, err := io.ReadAll(file)
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to read file", err, http.StatusInternalServerError)
			return
		}

		kind, mimeType := detectFile(header.Filename, content)
		if kind != fileImage {
			httputil.Fail(deps.Log, w, "unsupported file type (only PNG and JPEG allowed)", nil, http.StatusBadRequest)
			return
		}

		analysisID := uuid.New()
		log := deps.Log.With("analysis_id", analysisID)

		key := cache.Key(diagram.PipelineName, content)
		if body, err := deps.Cache.Get(ctx, key); err == nil && body != nil {
			var cached diagram.Result
			if unmarshalErr := json.Unmarshal(body, &cached); unmarshalErr != nil {
				log.Warn("failed to unmarshal cached result", "err", unmarshalErr)
			} else {
				log.Info("cache hit", "pipeline", diagram.PipelineName)
				writeDiagramResponse(w, analysisID, cached, true)
				return
			}
		}

		result, err := analyzer.Analyze(ctx, content, mimeType)
		if err != nil {
			failAnalysis(log, w, err)
			return
		}

		cacheResult(ctx, deps, log, key, result)
		writeDiagramResponse(w, analysisID, result, false)
	}
}

func writeDiagramResponse(w http.ResponseWriter, id uuid.UUID, result diagram.Result, cached bool) {
	httputil.WriteJSON(w, http.StatusOK, diagramResponse{
		AnalysisID:         id.String(),
		ImageDescription:   result.ImageDescription,
		LogicalExplanation: result.LogicalExplanation,
		QuizQuestions:      result.QuizQuestions,
		Cached:             cached,
	})
}

type finePrintRequest struct {
	DocumentType string `validate:"required,oneof=terms_of_service rental_agreement medical_form employment_contract service_agreement privacy_policy other"`
	Text         string `validate:"omitempty"`
}

type finePrintResponse struct {
	AnalysisID      string `json:"analysis_id"`
	DocumentType    string `json:"document_type"`
	DocumentPreview string `json:"document_preview"`
	RiskAudit       string `json:"risk_audit"`
	RiskSummary     string `json:"risk_summary"`
	Cached          bool   `json:"cached"`
}

func finePrintHandler(deps app.Deps, analyzer *fineprint.Analyzer) http.HandlerFunc {
	cfg := deps.Config

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		// The PDF cap is the largest accepted payload.
		if r.ContentLength > cfg.MaxPDFSize {
			httputil.Fail(deps.Log, w, fmt.Sprintf("request too large (max %d bytes)", cfg.MaxPDFSize), nil, http.StatusBadRequest)
			return
		}

		req := finePrintRequest{
			DocumentType: r.FormValue("document_type"),
			Text:         r.FormValue("text"),
		}
		if err := httputil.Validator.Struct(&req); err != nil {
			httputil.ValidationError(deps.Log, w, err)
			return
		}
		if int64(len(req.Text)) > cfg.MaxTextSize {
			httputil.Fail(deps.Log, w, fmt.Sprintf("text too large (max %d bytes)", cfg.MaxTextSize), nil, http.StatusBadRequest)
			return
		}

		input := fineprint.Input{
			Text:         req.Text,
			DocumentType: fineprint.DocumentType(req.DocumentType),
		}

		file, header, err := r.FormFile("file")
		switch {
		case err == nil:
			defer file.Close()
			content, readErr := io.ReadAll(file)
			if readErr != nil {
				httputil.Fail(deps.Log, w, "failed to read file", readErr, http.StatusInternalServerError)
				return
			}
			kind, mimeType := detectFile(header.Filename, content)
			switch kind {
			case filePDF:
				if int64(len(content)) > cfg.MaxPDFSize {
					httputil.Fail(deps.Log, w, fmt.Sprintf("file too large (max %d bytes)", cfg.MaxPDFSize), nil, http.StatusBadRequest)
					return
				}
			case fileImage:
				if int64(len(content)) > cfg.MaxImageSize {
					httputil.Fail(deps.Log, w, fmt.Sprintf("file too large (max %d bytes)", cfg.MaxImageSize), nil, http.StatusBadRequest)
					return
				}
			default:
				httputil.Fail(deps.Log, w, "unsupported file type (only PDF, PNG and JPEG allowed)", nil, http.StatusBadRequest)
				return
			}
			input.File = content
			input.FileMIME = mimeType
			input.Filename = header.Filename
		case errors.Is(err, http.ErrMissingFile):
			// Text-only submission.
		default:
			httputil.Fail(deps.Log, w, "invalid upload", err, http.StatusBadRequest)
			return
		}

		if strings.TrimSpace(input.Text) == "" && len(input.File) == 0 {
			httputil.Fail(deps.Log, w, "no document input provided; supply text or a file", nil, http.StatusBadRequest)
			return
		}

		analysisID := uuid.New()
		log := deps.Log.With("analysis_id", analysisID)

		key := cache.Key(fineprint.PipelineName, []byte(req.DocumentType), []byte(input.Text), input.File)
		if body, err := deps.Cache.Get(ctx, key); err == nil && body != nil {
			var cached fineprint.Result
			if unmarshalErr := json.Unmarshal(body, &cached); unmarshalErr != nil {
				log.Warn("failed to unmarshal cached result", "err", unmarshalErr)
			} else {
				log.Info("cache hit", "pipeline", fineprint.PipelineName)
				writeFinePrintResponse(w, analysisID, req.DocumentType, cached, true)
				return
			}
		}

		result, err := analyzer.Analyze(ctx, input)
		if err != nil {
			failAnalysis(log, w, err)
			return
		}

		cacheResult(ctx, deps, log, key, result)
		writeFinePrintResponse(w, analysisID, req.DocumentType, result, false)
	}
}

func writeFinePrintResponse(w http.ResponseWriter, id uuid.UUID, docType string, result fineprint.Result, cached bool) {
	httputil.WriteJSON(w, http.StatusOK, finePrintResponse{
		AnalysisID:      id.String(),
		DocumentType:    docType,
		DocumentPreview: result.DocumentPreview,
		RiskAudit:       result.RiskAudit,
		RiskSummary:     result.RiskSummary,
		Cached:          cached,
	})
}

func modelsHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		models, err := deps.LLM.ListModels(r.Context())
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to list models", err, http.StatusBadGateway)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"models": models})
	}
}

// failAnalysis maps pipeline failures to responses that name the failed
// stage. Extraction problems are the client's document, model problems are
// upstream.
func failAnalysis(log *slog.Logger, w http.ResponseWriter, err error) {
	var stageErr *pipeline.StageError
	if errors.As(err, &stageErr) {
		status := http.StatusBadGateway
		if stageErr.Stage == fineprint.StageExtract {
			status = http.StatusUnprocessableEntity
		}
		httputil.Fail(log, w, fmt.Sprintf("%s analysis failed at stage %q", stageErr.Pipeline, stageErr.Stage), err, status)
		return
	}
	httputil.Fail(log, w, "analysis failed", err, http.StatusInternalServerError)
}

// cacheResult stores a marshaled result; cache failures never fail the request.
func cacheResult(ctx context.Context, deps app.Deps, log *slog.Logger, key string, result any) {
	body, err := json.Marshal(result)
	if err != nil {
		log.Warn("failed to marshal result, skipping cache", "err", err)
		return
	}
	ttl := time.Duration(deps.Config.CacheTTL) * time.Second
	if err := deps.Cache.Set(ctx, key, body, ttl); err != nil {
		log.Warn("failed to cache result", "err", err)
	}
}

type fileKind int

const (
	fileUnknown fileKind = iota
	filePDF
	fileImage
)

// detectFile classifies an upload by extension, falling back to content
// sniffing when the extension is missing or unknown.
func detectFile(filename string, content []byte) (fileKind, string) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return filePDF, "application/pdf"
	case ".png":
		return fileImage, "image/png"
	case ".jpg", ".jpeg":
		return fileImage, "image/jpeg"
	}
	if len(content) == 0 {
		return fileUnknown, ""
	}
	switch ct := http.DetectContentType(content); ct {
	case "application/pdf":
		return filePDF, ct
	case "image/png", "image/jpeg":
		return fileImage, ct
	}
	return fileUnknown, ""
}
