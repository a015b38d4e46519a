package glossary

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	// ErrInvalidGlossary is returned when the data is not a usable glossary.
	ErrInvalidGlossary = errors.New("invalid glossary")

	// ErrLanguageNotFound is returned when the header has no column for the
	// requested source language.
	ErrLanguageNotFound = errors.New("language column not found")
)

// Entry is one glossary term with its required translations keyed by the
// lower-cased header of each language column.
type Entry struct {
	Term         string
	Translations map[string]string
}

// Mismatch records a glossary term present in a source text whose required
// translation is missing from the target text.
type Mismatch struct {
	Term     string
	Expected string
}

// Glossary is an immutable, parsed glossary.
type Glossary struct {
	sourceLang string
	columns    []string
	entries    []Entry
}

// Parse reads CSV glossary data, using the column named sourceLang as the
// term column. Header matching ignores case and surrounding whitespace.
func Parse(r io.Reader, sourceLang string) (*Glossary, error) {
	key := normalize(sourceLang)
	if key == "" {
		return nil, fmt.Errorf("%w: source language is required", ErrInvalidGlossary)
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty file", ErrInvalidGlossary)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGlossary, err)
	}

	columns := make([]string, len(header))
	termCol := -1
	for i, h := range header {
		columns[i] = normalize(strings.TrimPrefix(h, "\ufeff"))
		if columns[i] == key && termCol < 0 {
			termCol = i
		}
	}
	if termCol < 0 {
		return nil, fmt.Errorf("%w: %q", ErrLanguageNotFound, sourceLang)
	}

	g := &Glossary{sourceLang: key, columns: columns}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidGlossary, err)
		}
		if termCol >= len(record) {
			continue
		}
		term := strings.TrimSpace(record[termCol])
		if term == "" {
			continue
		}

		entry := Entry{Term: term, Translations: make(map[string]string)}
		for i, value := range record {
			value = strings.TrimSpace(value)
			if i == termCol || value == "" || columns[i] == "" {
				continue
			}
			entry.Translations[columns[i]] = value
		}
		g.entries = append(g.entries, entry)
	}

	return g, nil
}

// Len returns the number of terms.
func (g *Glossary) Len() int {
	if g == nil {
		return 0
	}
	return len(g.entries)
}

// SourceLang returns the normalized source language the glossary was
// parsed for.
func (g *Glossary) SourceLang() string {
	return g.sourceLang
}

// HasLanguage reports whether the glossary has a column for any of keys.
func (g *Glossary) HasLanguage(keys ...string) bool {
	return g.column(keys) != ""
}

// Entries returns a copy of the glossary's entries.
func (g *Glossary) Entries() []Entry {
	out := make([]Entry, len(g.entries))
	copy(out, g.entries)
	return out
}

// Match checks target against every term found in source. The first of
// targetKeys that names a glossary column selects the expected
// translations, so callers can pass a language name followed by its locale
// code. Comparison is case-insensitive.
func (g *Glossary) Match(source, target string, targetKeys ...string) []Mismatch {
	if g == nil {
		return nil
	}
	col := g.column(targetKeys)
	if col == "" {
		return nil
	}

	src := strings.ToLower(source)
	tgt := strings.ToLower(target)

	var out []Mismatch
	for _, e := range g.entries {
		expected, ok := e.Translations[col]
		if !ok || !strings.Contains(src, strings.ToLower(e.Term)) {
			continue
		}
		if !strings.Contains(tgt, strings.ToLower(expected)) {
			out = append(out, Mismatch{Term: e.Term, Expected: expected})
		}
	}
	return out
}

func (g *Glossary) column(keys []string) string {
	for _, k := range keys {
		k = normalize(k)
		if k == "" || k == g.sourceLang {
			continue
		}
		for _, c := range g.columns {
			if c == k {
				return c
			}
		}
	}
	return ""
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
