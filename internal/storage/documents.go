package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ObjectStore is the subset of S3Client used for documents.
type ObjectStore interface {
	GetObject(ctx context.Context, key string) ([]byte, error)
	PutObject(ctx context.Context, key, contentType string, data []byte) error
}

// Documents reads the source document and writes the processed text. Local
// files are always used; when an object store is configured the source is read
// from it if absent locally and the processed text is mirrored to it.
type Documents struct {
	dataDir       string
	sourceFile    string
	processedFile string
	objects       ObjectStore
}

func NewDocuments(dataDir, sourceFile, processedFile string, objects ObjectStore) *Documents {
	return &Documents{
		dataDir:       dataDir,
		sourceFile:    sourceFile,
		processedFile: processedFile,
		objects:       objects,
	}
}

func (d *Documents) SourcePath() string {
	return filepath.Join(d.dataDir, d.sourceFile)
}

func (d *Documents) ProcessedPath() string {
	return filepath.Join(d.dataDir, d.processedFile)
}

// ReadSource returns the raw document bytes. A missing document yields an
// error wrapping fs.ErrNotExist.
func (d *Documents) ReadSource(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(d.SourcePath())
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, fs.ErrNotExist) || d.objects == nil {
		return nil, err
	}

	data, err = d.objects.GetObject(ctx, d.sourceFile)
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			return nil, fmt.Errorf("%s: %w", d.sourceFile, fs.ErrNotExist)
		}
		return nil, err
	}
	return data, nil
}

// ProcessedExists reports whether the processed text is present locally.
func (d *Documents) ProcessedExists() (bool, error) {
	_, err := os.Stat(d.ProcessedPath())
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// ReadProcessed returns the processed text.
func (d *Documents) ReadProcessed() (string, error) {
	data, err := os.ReadFile(d.ProcessedPath())
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// WriteProcessed creates the data directory if needed, overwrites the processed
// text and mirrors it to the object store when one is configured.
func (d *Documents) WriteProcessed(ctx context.Context, text string) error {
	if err := os.MkdirAll(d.dataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := os.WriteFile(d.ProcessedPath(), []byte(text), 0o644); err != nil {
		return fmt.Errorf("failed to write processed text: %w", err)
	}
	if d.objects != nil {
		if err := d.objects.PutObject(ctx, d.processedFile, "text/plain; charset=utf-8", []byte(text)); err != nil {
			return fmt.Errorf("failed to mirror processed text: %w", err)
		}
	}
	return nil
}
