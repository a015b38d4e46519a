package glossary

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = "\ufeffEnglish, Korean ,Japanese\n" +
	"Potion,물약,ポーション\n" +
	"Guild,길드,\n" +
	",빈칸,空\n" +
	"Short\n"

func TestParse(t *testing.T) {
	g, err := Parse(strings.NewReader(sampleCSV), "english")
	require.NoError(t, err)

	assert.Equal(t, 3, g.Len())
	assert.Equal(t, "english", g.SourceLang())
	assert.True(t, g.HasLanguage("Korean"))
	assert.False(t, g.HasLanguage("French"))
	assert.False(t, g.HasLanguage("English"), "source column is not a target")

	entries := g.Entries()
	assert.Equal(t, "Potion", entries[0].Term)
	assert.Equal(t, map[string]string{"korean": "물약", "japanese": "ポーション"}, entries[0].Translations)
	assert.Equal(t, map[string]string{"korean": "길드"}, entries[1].Translations)
	assert.Empty(t, entries[2].Translations)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name       string
		data       string
		sourceLang string
		wantErr    error
	}{
		{name: "empty file", data: "", sourceLang: "English", wantErr: ErrInvalidGlossary},
		{name: "missing language", data: "English,Korean\n", sourceLang: "French", wantErr: ErrLanguageNotFound},
		{name: "blank language", data: "English\n", sourceLang: " ", wantErr: ErrInvalidGlossary},
		{name: "bad quoting", data: "English,Korean\n\"open,x\n", sourceLang: "English", wantErr: ErrInvalidGlossary},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.data), tt.sourceLang)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestMatch(t *testing.T) {
	g, err := Parse(strings.NewReader(sampleCSV), "English")
	require.NoError(t, err)

	tests := []struct {
		name   string
		source string
		target string
		keys   []string
		want   []Mismatch
	}{
		{
			name:   "translation present",
			source: "Buy a potion",
			target: "물약 구매",
			keys:   []string{"Korean"},
		},
		{
			name:   "translation missing",
			source: "Join the Guild and drink a POTION",
			target: "길드 가입",
			keys:   []string{"Korean"},
			want:   []Mismatch{{Term: "Potion", Expected: "물약"}},
		},
		{
			name:   "falls back to second key",
			source: "potion",
			target: "薬",
			keys:   []string{"ja_JP", "Japanese"},
			want:   []Mismatch{{Term: "Potion", Expected: "ポーション"}},
		},
		{
			name:   "no column for target",
			source: "potion",
			target: "x",
			keys:   []string{"French"},
		},
		{
			name:   "term without translation in column",
			source: "guild",
			target: "x",
			keys:   []string{"Japanese"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, g.Match(tt.source, tt.target, tt.keys...))
		})
	}
}

func TestMatch_NilGlossary(t *testing.T) {
	var g *Glossary
	assert.Nil(t, g.Match("a", "b", "Korean"))
	assert.Equal(t, 0, g.Len())
}
