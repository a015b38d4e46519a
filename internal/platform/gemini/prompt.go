package gemini

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/phrazzld/transcheck-api/internal/inspection"
)

const reviewPromptTemplate = `You are a professional game localization reviewer.
Review the {{.TargetLang}}{{if .TargetCode}} ({{.TargetCode}}){{end}} translation of a
{{.SourceLang}} string taken from sheet "{{.Sheet}}", cell {{.Cell}}.

Check accuracy, omissions, grammar, tone and consistency of placeholders,
tags and line breaks. Ignore purely stylistic preferences.

Source:
{{.Source}}

Translation:
{{.Target}}

Reply with a JSON object only:
{"ok": true|false, "issues": ["short description", ...], "suggestion": "improved translation or empty"}
`

var reviewPrompt = template.Must(template.New("review").Parse(reviewPromptTemplate))

func renderPrompt(seg inspection.Segment) (string, error) {
	if seg.Source == "" {
		return "", ErrEmptySegment
	}
	if seg.SourceLang == "" {
		seg.SourceLang = "source-language"
	}

	var buf bytes.Buffer
	if err := reviewPrompt.Execute(&buf, seg); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}
	return buf.String(), nil
}
