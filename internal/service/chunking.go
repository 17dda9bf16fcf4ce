package service

import (
	"strings"
	"unicode/utf8"

	"github.com/cloo-solutions/ragchat/internal/domain"
)

// ChunkConfig controls how processed documents are split before embedding.
type ChunkConfig struct {
	ChunkSize  int
	Overlap    int
	Separators []string
}

// DefaultChunkConfig provides the chunking used for ingestion.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		ChunkSize:  1000,
		Overlap:    100,
		Separators: []string{"\n\n"},
	}
}

// SplitText splits text recursively on the configured separators and merges
// adjacent pieces into chunks of at most ChunkSize characters, carrying up to
// Overlap characters of trailing context into the next chunk. A piece with no
// further separator to split on is emitted whole even when oversized.
// Whitespace-only chunks are dropped. The output is deterministic.
func SplitText(text string, cfg ChunkConfig) []domain.Chunk {
	if cfg.ChunkSize <= 0 {
		cfg = DefaultChunkConfig()
	}
	if cfg.Overlap < 0 || cfg.Overlap >= cfg.ChunkSize {
		cfg.Overlap = 0
	}
	if len(cfg.Separators) == 0 {
		cfg.Separators = []string{""}
	}

	pieces := splitRecursive(text, cfg.Separators, cfg)

	chunks := make([]domain.Chunk, 0, len(pieces))
	for _, p := range pieces {
		if strings.TrimSpace(p) == "" {
			continue
		}
		chunks = append(chunks, domain.Chunk{Index: len(chunks), Text: p})
	}
	return chunks
}

// ChunkTexts returns only the chunk texts, in order.
func ChunkTexts(chunks []domain.Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out
}

func textLen(s string) int {
	return utf8.RuneCountInString(s)
}

func splitRecursive(text string, separators []string, cfg ChunkConfig) []string {
	separator := separators[len(separators)-1]
	var rest []string
	for i, s := range separators {
		if s == "" {
			separator = s
			break
		}
		if strings.Contains(text, s) {
			separator = s
			rest = separators[i+1:]
			break
		}
	}

	var final []string
	var good []string
	for _, s := range splitKeepingSeparator(text, separator) {
		if textLen(s) < cfg.ChunkSize {
			good = append(good, s)
			continue
		}
		if len(good) > 0 {
			final = append(final, mergeSplits(good, cfg)...)
			good = nil
		}
		if len(rest) == 0 {
			final = append(final, s)
		} else {
			final = append(final, splitRecursive(s, rest, cfg)...)
		}
	}
	if len(good) > 0 {
		final = append(final, mergeSplits(good, cfg)...)
	}
	return final
}

// splitKeepingSeparator splits text on sep and prefixes every piece after the
// first with the separator that preceded it. Empty pieces are dropped.
func splitKeepingSeparator(text, sep string) []string {
	var parts []string
	if sep == "" {
		parts = make([]string, 0, len(text))
		for _, r := range text {
			parts = append(parts, string(r))
		}
	} else {
		raw := strings.Split(text, sep)
		parts = make([]string, 0, len(raw))
		parts = append(parts, raw[0])
		for _, p := range raw[1:] {
			parts = append(parts, sep+p)
		}
	}

	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// mergeSplits joins pieces greedily. Separators are already carried by the
// pieces, so they are concatenated directly.
func mergeSplits(splits []string, cfg ChunkConfig) []string {
	var docs []string
	var current []string
	total := 0

	for _, d := range splits {
		l := textLen(d)
		if total+l > cfg.ChunkSize && len(current) > 0 {
			if doc, ok := joinDocs(current); ok {
				docs = append(docs, doc)
			}
			for total > cfg.Overlap || (total+l > cfg.ChunkSize && total > 0) {
				total -= textLen(current[0])
				current = current[1:]
			}
		}
		current = append(current, d)
		total += l
	}

	if doc, ok := joinDocs(current); ok {
		docs = append(docs, doc)
	}
	return docs
}

func joinDocs(docs []string) (string, bool) {
	text := strings.TrimSpace(strings.Join(docs, ""))
	if text == "" {
		return "", false
	}
	return text, true
}
