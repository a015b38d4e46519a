package inspection

import (
	"fmt"
	"strings"

	"github.com/phrazzld/transcheck-api/internal/checker"
	"github.com/phrazzld/transcheck-api/internal/glossary"
	"github.com/phrazzld/transcheck-api/internal/platform/xlsx"
)

const reportRule = "============================================================"

// buildReport renders findings, already in sheet and cell order, as the
// plain-text review handed back to users.
func buildReport(p checker.Params, rng xlsx.Range, sheets []string, gloss *glossary.Glossary, findings []finding) string {
	var b strings.Builder

	b.WriteString("Translation Review Report\n")
	b.WriteString(reportRule + "\n")
	fmt.Fprintf(&b, "Source: %s\n", baseName(p.SourcePath))
	fmt.Fprintf(&b, "Target: %s\n", baseName(p.TargetPath))
	fmt.Fprintf(&b, "Sheets: %s\n", strings.Join(sheets, ", "))
	fmt.Fprintf(&b, "Range: %s\n", rng)
	if gloss != nil {
		fmt.Fprintf(&b, "Glossary: %d entries\n", gloss.Len())
	} else {
		b.WriteString("Glossary: none\n")
	}
	b.WriteString(reportRule + "\n")

	issues := 0
	current := ""
	for _, f := range findings {
		if !f.hasIssue() {
			continue
		}
		issues++

		if f.seg.Sheet != current {
			current = f.seg.Sheet
			fmt.Fprintf(&b, "\n[%s]\n", current)
		}

		fmt.Fprintf(&b, "\n%s\n", f.seg.Cell)
		fmt.Fprintf(&b, "  Source: %s\n", oneLine(f.seg.Source))
		fmt.Fprintf(&b, "  Target: %s\n", oneLine(f.seg.Target))
		for _, m := range f.mismatches {
			fmt.Fprintf(&b, "  - Glossary: %q should be translated as %q\n", m.Term, m.Expected)
		}
		if f.reviewErr != nil {
			b.WriteString("  - Review failed; check this cell manually.\n")
		}
		if f.verdict != nil && !f.verdict.OK {
			if len(f.verdict.Issues) == 0 {
				b.WriteString("  - Reviewer flagged this translation.\n")
			}
			for _, issue := range f.verdict.Issues {
				fmt.Fprintf(&b, "  - %s\n", oneLine(issue))
			}
			if f.verdict.Suggestion != "" {
				fmt.Fprintf(&b, "  Suggestion: %s\n", oneLine(f.verdict.Suggestion))
			}
		}
	}

	if issues == 0 {
		b.WriteString("\nNo issues found.\n")
	}

	b.WriteString("\n" + reportRule + "\n")
	fmt.Fprintf(&b, "Summary: %d cell(s) reviewed, %d with issues.\n", len(findings), issues)
	return b.String()
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
