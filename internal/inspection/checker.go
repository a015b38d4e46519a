package inspection

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"path/filepath"

	"github.com/phrazzld/transcheck-api/internal/checker"
	"github.com/phrazzld/transcheck-api/internal/events"
	"github.com/phrazzld/transcheck-api/internal/glossary"
	"github.com/phrazzld/transcheck-api/internal/platform/xlsx"
	"golang.org/x/sync/errgroup"
)

// ErrNoSheets is returned when none of the selected sheets can be checked.
var ErrNoSheets = errors.New("no sheets to check")

// Config holds settings for the inspection checker.
type Config struct {
	// DefaultGlossaryURL is fetched when a run names neither a glossary
	// file nor a URL. Empty disables the fallback.
	DefaultGlossaryURL string
}

// Checker reviews spreadsheet translations.
type Checker struct {
	glossaries *glossary.Loader
	reviewer   Reviewer
	config     Config
	logger     *slog.Logger
}

var _ checker.Checker = (*Checker)(nil)

// New creates a Checker. reviewer may be nil, in which case only glossary
// checks run.
func New(glossaries *glossary.Loader, reviewer Reviewer, config Config, logger *slog.Logger) (*Checker, error) {
	if glossaries == nil {
		return nil, errors.New("glossary loader cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	return &Checker{
		glossaries: glossaries,
		reviewer:   reviewer,
		config:     config,
		logger:     logger.With("component", "inspection"),
	}, nil
}

// finding is the outcome of reviewing one segment.
type finding struct {
	seg        Segment
	order      int
	mismatches []glossary.Mismatch
	verdict    *Verdict
	reviewErr  error
}

func (f finding) hasIssue() bool {
	return len(f.mismatches) > 0 || f.reviewErr != nil || (f.verdict != nil && !f.verdict.OK)
}

func (f finding) summary() string {
	ref := f.seg.Sheet + "!" + f.seg.Cell
	switch {
	case len(f.mismatches) > 0:
		return fmt.Sprintf("%s: %d glossary mismatch(es)", ref, len(f.mismatches))
	case f.reviewErr != nil:
		return ref + ": review failed"
	case f.verdict != nil && !f.verdict.OK:
		return fmt.Sprintf("%s: %d issue(s) found", ref, max(len(f.verdict.Issues), 1))
	default:
		return ref + ": OK"
	}
}

// Check runs an inspection described by p. The sequence yields log and
// progress events, then either a result event carrying the report or a
// single error.
func (c *Checker) Check(ctx context.Context, p checker.Params) iter.Seq2[events.Event, error] {
	return func(yield func(events.Event, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		emit := func(ev events.Event) bool { return yield(ev, nil) }
		fail := func(err error) { yield(events.Event{}, err) }

		rng, err := xlsx.ParseRange(p.CellRange)
		if err != nil {
			fail(err)
			return
		}

		if !emit(events.Log("Opening workbooks...")) {
			return
		}
		source, err := xlsx.Open(p.SourcePath)
		if err != nil {
			fail(fmt.Errorf("failed to open source workbook: %w", err))
			return
		}
		defer func() { _ = source.Close() }()

		target, err := xlsx.Open(p.TargetPath)
		if err != nil {
			fail(fmt.Errorf("failed to open target workbook: %w", err))
			return
		}
		defer func() { _ = target.Close() }()

		gloss, note := c.loadGlossary(ctx, p)
		if !emit(events.Log(note)) {
			return
		}
		if c.reviewer == nil && !emit(events.Log("LLM review disabled; running glossary checks only.")) {
			return
		}

		segments, sheets, notes, err := c.collect(source, target, rng, p)
		for _, n := range notes {
			if !emit(events.Log(n)) {
				return
			}
		}
		if err != nil {
			fail(err)
			return
		}

		total := len(segments)
		if !emit(events.Log(fmt.Sprintf("Reviewing %d cell(s) across %d sheet(s).", total, len(sheets)))) {
			return
		}

		results := make(chan finding)
		waitErr := make(chan error, 1)
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(max(p.MaxConcurrency, 1))
		go func() {
			for i, seg := range segments {
				if gctx.Err() != nil {
					break
				}
				g.Go(func() error {
					f := c.review(gctx, seg, gloss)
					f.order = i
					if f.reviewErr != nil && gctx.Err() != nil {
						return gctx.Err()
					}
					select {
					case results <- f:
						return nil
					case <-gctx.Done():
						return gctx.Err()
					}
				})
			}
			waitErr <- g.Wait()
			close(results)
		}()

		findings := make([]finding, total)
		done := 0
		for f := range results {
			findings[f.order] = f
			done++
			ok := emit(events.Progress(map[string]any{
				"current": done,
				"total":   total,
				"percent": done * 100 / total,
				"log":     f.summary(),
			}))
			if !ok {
				cancel()
				for range results {
				}
				return
			}
		}

		if err := <-waitErr; err != nil {
			fail(fmt.Errorf("review interrupted: %w", err))
			return
		}
		if err := ctx.Err(); err != nil {
			fail(fmt.Errorf("review interrupted: %w", err))
			return
		}

		c.logger.Debug("inspection finished", "cells", total)
		emit(events.Result(buildReport(p, rng, sheets, gloss, findings)))
	}
}

// loadGlossary returns the run's glossary, or nil when none is available,
// along with a line for the live feed. A glossary that fails to load does
// not fail the run.
func (c *Checker) loadGlossary(ctx context.Context, p checker.Params) (*glossary.Glossary, string) {
	url := p.GlossaryURL
	if url == "" && p.GlossaryPath == "" {
		url = c.config.DefaultGlossaryURL
	}
	if url == "" && p.GlossaryPath == "" {
		return nil, "No glossary configured; skipping glossary checks."
	}

	g, err := c.glossaries.Load(ctx, p.GlossaryPath, url, p.SourceLang)
	if err != nil {
		c.logger.Warn("glossary unavailable", "error", err)
		return nil, "Glossary load failed; skipping glossary checks."
	}
	return g, glossary.Describe(g)
}

// collect pairs source and target cells for every selected sheet.
func (c *Checker) collect(source, target *xlsx.Workbook, rng xlsx.Range, p checker.Params) ([]Segment, []string, []string, error) {
	selected := p.Sheets
	if len(selected) == 0 {
		selected = source.SheetNames()
	}

	var (
		segments []Segment
		sheets   []string
		notes    []string
	)
	for _, sheet := range selected {
		if !source.HasSheet(sheet) {
			notes = append(notes, fmt.Sprintf("Sheet %q not found in source workbook; skipped.", sheet))
			continue
		}
		if !target.HasSheet(sheet) {
			notes = append(notes, fmt.Sprintf("Sheet %q not found in target workbook; skipped.", sheet))
			continue
		}

		srcCells, err := source.Cells(sheet, rng)
		if err != nil {
			return nil, nil, notes, fmt.Errorf("failed to read source sheet %q: %w", sheet, err)
		}
		tgtCells, err := target.Cells(sheet, rng)
		if err != nil {
			return nil, nil, notes, fmt.Errorf("failed to read target sheet %q: %w", sheet, err)
		}

		translated := make(map[string]string, len(tgtCells))
		for _, cell := range tgtCells {
			translated[cell.Ref] = cell.Value
		}

		lang, code := p.TargetFor(sheet)
		for _, cell := range srcCells {
			segments = append(segments, Segment{
				Sheet:      sheet,
				Cell:       cell.Ref,
				Source:     cell.Value,
				Target:     translated[cell.Ref],
				SourceLang: p.SourceLang,
				TargetLang: lang,
				TargetCode: code,
				Model:      p.ModelName,
			})
		}
		sheets = append(sheets, sheet)
	}

	if len(sheets) == 0 {
		return nil, nil, notes, ErrNoSheets
	}
	return segments, sheets, notes, nil
}

// review checks one segment. Reviewer errors are recorded on the finding
// rather than failing the run.
func (c *Checker) review(ctx context.Context, seg Segment, gloss *glossary.Glossary) finding {
	f := finding{seg: seg}

	if seg.Target == "" {
		f.verdict = &Verdict{Issues: []string{"Missing translation."}}
		return f
	}

	f.mismatches = gloss.Match(seg.Source, seg.Target, seg.TargetLang, seg.TargetCode)
	if len(f.mismatches) > 0 || c.reviewer == nil {
		return f
	}

	v, err := c.reviewer.Review(ctx, seg)
	if err != nil {
		c.logger.Warn("segment review failed",
			"sheet", seg.Sheet,
			"cell", seg.Cell,
			"error", err)
		f.reviewErr = err
		return f
	}
	f.verdict = &v
	return f
}

func baseName(path string) string {
	if path == "" {
		return "-"
	}
	return filepath.Base(path)
}
