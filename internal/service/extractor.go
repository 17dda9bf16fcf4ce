package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/cloo-solutions/ragchat/internal/domain"
	"github.com/cloo-solutions/ragchat/internal/jobs"
	"github.com/cloo-solutions/ragchat/internal/telemetry"
)

// SourceMIMEType is the media type of the source document.
const SourceMIMEType = "application/pdf"

// DocumentModel sends a binary document to a multimodal model.
type DocumentModel interface {
	ExtractDocument(ctx context.Context, document []byte, mimeType, instruction string) (string, error)
}

// DocumentStore gives access to the source document and its processed text.
type DocumentStore interface {
	ReadSource(ctx context.Context) ([]byte, error)
	ProcessedExists() (bool, error)
	ReadProcessed() (string, error)
	WriteProcessed(ctx context.Context, text string) error
}

// Extractor converts the source document to plain text.
type Extractor struct {
	model       DocumentModel
	docs        DocumentStore
	instruction string
	pool        *jobs.Pool
}

func NewExtractor(model DocumentModel, docs DocumentStore, instruction string, pool *jobs.Pool) *Extractor {
	return &Extractor{
		model:       model,
		docs:        docs,
		instruction: instruction,
		pool:        pool,
	}
}

// Extract returns the model's text output for the document verbatim.
func (e *Extractor) Extract(ctx context.Context, document []byte) (string, error) {
	if len(document) == 0 {
		return "", domain.ErrEmptyDocument
	}

	ctx, span := telemetry.StartSpan(ctx, "extractor.extract", telemetry.SpanAttributes{Operation: "extract"})
	text, err := e.model.ExtractDocument(ctx, document, SourceMIMEType, e.instruction)
	span.Finish(err)
	if err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeUpstream, "document extraction failed", err)
	}
	return text, nil
}

// ProcessAndSave reads the source document, extracts it and overwrites the
// processed text. It returns the extracted text.
func (e *Extractor) ProcessAndSave(ctx context.Context) (string, error) {
	document, err := jobs.Run(ctx, e.pool, e.docs.ReadSource)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", domain.NewDomainErrorWithCause(domain.ErrCodeNotFound, domain.ErrSourceNotFound.Message, err)
		}
		return "", fmt.Errorf("failed to read source document: %w", err)
	}

	slog.Info("extracting source document", "bytes", len(document))
	text, err := e.Extract(ctx, document)
	if err != nil {
		return "", err
	}

	err = e.pool.Do(ctx, func(ctx context.Context) error {
		return e.docs.WriteProcessed(ctx, text)
	})
	if err != nil {
		return "", err
	}

	slog.Info("processed text saved", "chars", len(text))
	return text, nil
}
