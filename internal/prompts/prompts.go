// Package prompts loads the versioned prompt templates from disk.
package prompts

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cloo-solutions/ragchat/internal/domain"
)

const (
	RAGPromptFile     = "rag_prompt.txt"
	ExtractPromptFile = "extract_prompt.txt"

	// ContextPlaceholder is replaced with the retrieved context in the RAG template.
	ContextPlaceholder = "{context}"
)

// Store holds the prompt templates of one version. It is read-only after Load.
type Store struct {
	version string
	rag     string
	extract string
}

// Load reads both templates from dir/version.
func Load(dir, version string) (*Store, error) {
	base := filepath.Join(dir, version)

	rag, err := readTemplate(base, RAGPromptFile)
	if err != nil {
		return nil, err
	}
	extract, err := readTemplate(base, ExtractPromptFile)
	if err != nil {
		return nil, err
	}

	return &Store{version: version, rag: rag, extract: extract}, nil
}

// New builds a store from in-memory templates.
func New(version, rag, extract string) *Store {
	return &Store{version: version, rag: rag, extract: extract}
}

func readTemplate(base, name string) (string, error) {
	path := filepath.Join(base, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeConfiguration, "prompt file not found", fmt.Errorf("%s: %w", path, err))
	}
	return string(data), nil
}

func (s *Store) Version() string {
	return s.version
}

// Extract returns the document extraction instruction.
func (s *Store) Extract() string {
	return s.extract
}

// RAGTemplate returns the raw answering template.
func (s *Store) RAGTemplate() string {
	return s.rag
}

// RenderRAG substitutes the context string into the answering template.
func (s *Store) RenderRAG(context string) string {
	return strings.ReplaceAll(s.rag, ContextPlaceholder, context)
}
