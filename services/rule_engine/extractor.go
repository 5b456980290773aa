// Copyright (C) 2026 Vinay Kumar
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package rule_engine

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// PhraseCandidate is a span of the source prompt that might refer to a
// canonical key. Literal candidates matched a vocabulary identifier
// verbatim and bypass similarity scoring entirely.
type PhraseCandidate struct {
	Text    string
	Start   int
	End     int
	Literal bool
}

// ExtractorConfig bounds phrase extraction. Zero values select defaults.
type ExtractorConfig struct {
	// MaxWindowTokens is the largest sliding-window span, in tokens.
	MaxWindowTokens int
	// MaxCandidates caps the number of candidates per prompt.
	MaxCandidates int
}

const (
	defaultMaxWindowTokens = 3
	defaultMaxCandidates   = 64
	minSingleTokenLen      = 4
)

var quotedPhrasePattern = regexp.MustCompile(`"([^"]+)"`)

// stopwords are tokens that carry no mapping signal on their own.
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "can": true, "for": true, "from": true, "has": true,
	"have": true, "if": true, "in": true, "is": true, "it": true, "must": true,
	"not": true, "of": true, "on": true, "or": true, "should": true, "than": true,
	"that": true, "the": true, "their": true, "then": true, "to": true,
	"when": true, "where": true, "with": true,
}

// PhraseExtractor pulls candidate phrases out of a raw prompt. It never
// fails: a prompt with nothing extractable yields an empty slice.
type PhraseExtractor struct {
	registry      *Registry
	maxWindow     int
	maxCandidates int
}

// NewPhraseExtractor builds an extractor over the given vocabulary.
func NewPhraseExtractor(registry *Registry, cfg ExtractorConfig) *PhraseExtractor {
	if cfg.MaxWindowTokens <= 0 {
		cfg.MaxWindowTokens = defaultMaxWindowTokens
	}
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = defaultMaxCandidates
	}
	return &PhraseExtractor{
		registry:      registry,
		maxWindow:     cfg.MaxWindowTokens,
		maxCandidates: cfg.MaxCandidates,
	}
}

// Extract returns candidate phrases ordered by first occurrence in the
// prompt. Duplicate texts are allowed; the mapper keeps the best match per
// distinct phrase. Three sources feed the candidate list:
//
//  1. verbatim vocabulary identifiers (case-sensitive), flagged Literal,
//  2. double-quoted phrases,
//  3. sliding token windows of bounded length.
func (p *PhraseExtractor) Extract(prompt string) []PhraseCandidate {
	if strings.TrimSpace(prompt) == "" {
		return nil
	}

	var candidates []PhraseCandidate
	candidates = append(candidates, p.literalCandidates(prompt)...)
	candidates = append(candidates, quotedCandidates(prompt)...)
	candidates = append(candidates, p.windowCandidates(prompt)...)

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Start < candidates[j].Start
	})
	if len(candidates) > p.maxCandidates {
		candidates = candidates[:p.maxCandidates]
	}
	return candidates
}

// literalCandidates finds every verbatim occurrence of a vocabulary
// identifier in the prompt.
func (p *PhraseExtractor) literalCandidates(prompt string) []PhraseCandidate {
	var out []PhraseCandidate
	for _, id := range p.registry.Identifiers() {
		offset := 0
		for {
			i := strings.Index(prompt[offset:], id)
			if i < 0 {
				break
			}
			start := offset + i
			out = append(out, PhraseCandidate{
				Text:    id,
				Start:   start,
				End:     start + len(id),
				Literal: true,
			})
			offset = start + len(id)
		}
	}
	return out
}

func quotedCandidates(prompt string) []PhraseCandidate {
	var out []PhraseCandidate
	for _, loc := range quotedPhrasePattern.FindAllStringSubmatchIndex(prompt, -1) {
		start, end := loc[2], loc[3]
		text := prompt[start:end]
		if strings.TrimSpace(text) == "" {
			continue
		}
		out = append(out, PhraseCandidate{Text: text, Start: start, End: end})
	}
	return out
}

// windowCandidates segments the prompt into short multi-word spans. Single
// tokens are kept only when long enough and not a stopword; wider windows
// need at least one non-stopword token.
func (p *PhraseExtractor) windowCandidates(prompt string) []PhraseCandidate {
	tokens := tokenize(prompt)
	var out []PhraseCandidate
	for width := 1; width <= p.maxWindow; width++ {
		for i := 0; i+width <= len(tokens); i++ {
			window := tokens[i : i+width]
			if !windowIsUseful(window, width) {
				continue
			}
			start := window[0].start
			end := window[len(window)-1].end
			out = append(out, PhraseCandidate{
				Text:  prompt[start:end],
				Start: start,
				End:   end,
			})
		}
	}
	return out
}

func windowIsUseful(window []token, width int) bool {
	if width == 1 {
		t := window[0]
		return len(t.text) >= minSingleTokenLen && !stopwords[strings.ToLower(t.text)]
	}
	for _, t := range window {
		if !stopwords[strings.ToLower(t.text)] {
			return true
		}
	}
	return false
}

type token struct {
	text  string
	start int
	end   int
}

// tokenize splits the prompt into word tokens with byte offsets. Dots and
// underscores are kept inside tokens so key-shaped words survive intact.
func tokenize(s string) []token {
	var tokens []token
	appendToken := func(start, end int) {
		t := newToken(s, start, end)
		if t.text != "" {
			tokens = append(tokens, t)
		}
	}
	start := -1
	for i, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '_' {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			appendToken(start, i)
			start = -1
		}
	}
	if start >= 0 {
		appendToken(start, len(s))
	}
	return tokens
}

// newToken trims leading and trailing dots so sentence punctuation does not
// stick to the token.
func newToken(s string, start, end int) token {
	text := s[start:end]
	trimmed := strings.TrimLeft(text, "._")
	start += len(text) - len(trimmed)
	text = strings.TrimRight(trimmed, "._")
	end = start + len(text)
	return token{text: text, start: start, end: end}
}
