package inspection_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/phrazzld/transcheck-api/internal/checker"
	"github.com/phrazzld/transcheck-api/internal/events"
	"github.com/phrazzld/transcheck-api/internal/glossary"
	"github.com/phrazzld/transcheck-api/internal/inspection"
	"github.com/phrazzld/transcheck-api/internal/platform/xlsx"
	"github.com/phrazzld/transcheck-api/internal/platform/xlsx/xlsxtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	dir    string
	params checker.Params
}

func newFixture(t *testing.T, source, target []xlsxtest.Sheet) fixture {
	t.Helper()
	dir := t.TempDir()

	srcPath := filepath.Join(dir, "source.xlsx")
	tgtPath := filepath.Join(dir, "target.xlsx")
	xlsxtest.Write(t, srcPath, source...)
	xlsxtest.Write(t, tgtPath, target...)

	glossaryPath := filepath.Join(dir, "glossary.csv")
	require.NoError(t, os.WriteFile(glossaryPath,
		[]byte("English,Korean,Japanese\nPotion,물약,ポーション\nGuild,길드,ギルド\n"), 0o600))

	return fixture{
		dir: dir,
		params: checker.Params{
			SourcePath:     srcPath,
			TargetPath:     tgtPath,
			GlossaryPath:   glossaryPath,
			SourceLang:     "English",
			TargetLang:     "Korean",
			TargetCode:     "ko_KR",
			MaxConcurrency: 3,
			CellRange:      "C7:C28",
			ModelName:      "test-model",
		},
	}
}

func newChecker(t *testing.T, reviewer inspection.Reviewer, cfg inspection.Config) *inspection.Checker {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	loader, err := glossary.NewLoader(nil, 2, time.Minute, logger)
	require.NoError(t, err)
	c, err := inspection.New(loader, reviewer, cfg, logger)
	require.NoError(t, err)
	return c
}

// collect drains a run, returning its events and the error that ended it.
func collect(c *inspection.Checker, p checker.Params) ([]events.Event, error) {
	var evs []events.Event
	for ev, err := range c.Check(context.Background(), p) {
		if err != nil {
			return evs, err
		}
		evs = append(evs, ev)
	}
	return evs, nil
}

func ofType(evs []events.Event, typ events.Type) []events.Event {
	var out []events.Event
	for _, ev := range evs {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

func TestChecker_ReviewsAllCells(t *testing.T) {
	fx := newFixture(t,
		[]xlsxtest.Sheet{{Name: "Menu", Cells: map[string]string{
			"C7":  "Buy a potion",
			"C8":  "Join the guild",
			"C9":  "Hello",
			"C10": "Goodbye",
		}}},
		[]xlsxtest.Sheet{{Name: "Menu", Cells: map[string]string{
			"C7":  "물약 구매",
			"C8":  "가입하기",
			"C10": "안녕히 가세요",
		}}},
	)

	var mu sync.Mutex
	var reviewed []string
	reviewer := inspection.ReviewerFunc(func(ctx context.Context, seg inspection.Segment) (inspection.Verdict, error) {
		mu.Lock()
		reviewed = append(reviewed, seg.Cell)
		mu.Unlock()

		assert.Equal(t, "Korean", seg.TargetLang)
		assert.Equal(t, "test-model", seg.Model)
		if seg.Cell == "C7" {
			return inspection.Verdict{OK: false, Issues: []string{"Awkward phrasing."}, Suggestion: "물약 사기"}, nil
		}
		return inspection.Verdict{OK: true}, nil
	})

	evs, err := collect(newChecker(t, reviewer, inspection.Config{}), fx.params)
	require.NoError(t, err)

	progress := ofType(evs, events.TypeProgress)
	require.Len(t, progress, 4)
	last := progress[len(progress)-1]
	assert.Equal(t, 4, last.Fields["current"])
	assert.Equal(t, 4, last.Fields["total"])
	assert.Equal(t, 100, last.Fields["percent"])

	assert.ElementsMatch(t, []string{"C7", "C10"}, reviewed,
		"glossary mismatches and missing translations skip the reviewer")

	final := evs[len(evs)-1]
	require.Equal(t, events.TypeComplete, final.Type)
	report := final.Output
	assert.Contains(t, report, "Source: source.xlsx")
	assert.Contains(t, report, "Range: C7:C28")
	assert.Contains(t, report, "Glossary: 2 entries")
	assert.Contains(t, report, `- Glossary: "Guild" should be translated as "길드"`)
	assert.Contains(t, report, "- Awkward phrasing.")
	assert.Contains(t, report, "Suggestion: 물약 사기")
	assert.Contains(t, report, "- Missing translation.")
	assert.NotContains(t, report, "\nC10\n")
	assert.Contains(t, report, "Summary: 4 cell(s) reviewed, 3 with issues.")
	assert.Contains(t, logLines(evs), "Glossary loaded: 2 entries.")
}

func TestChecker_GlossaryOnlyWithoutReviewer(t *testing.T) {
	fx := newFixture(t,
		[]xlsxtest.Sheet{{Name: "Menu", Cells: map[string]string{"C7": "Potion"}}},
		[]xlsxtest.Sheet{{Name: "Menu", Cells: map[string]string{"C7": "물약"}}},
	)

	evs, err := collect(newChecker(t, nil, inspection.Config{}), fx.params)
	require.NoError(t, err)

	assert.Contains(t, logLines(evs), "LLM review disabled; running glossary checks only.")
	final := evs[len(evs)-1]
	require.Equal(t, events.TypeComplete, final.Type)
	assert.Contains(t, final.Output, "No issues found.")
	assert.Contains(t, final.Output, "Summary: 1 cell(s) reviewed, 0 with issues.")
}

func TestChecker_SheetSelectionAndLanguages(t *testing.T) {
	fx := newFixture(t,
		[]xlsxtest.Sheet{
			{Name: "Menu", Cells: map[string]string{"C7": "Start"}},
			{Name: "Dialog", Cells: map[string]string{"C7": "Hello"}},
			{Name: "Credits", Cells: map[string]string{"C7": "Thanks"}},
		},
		[]xlsxtest.Sheet{
			{Name: "Menu", Cells: map[string]string{"C7": "시작"}},
			{Name: "Dialog", Cells: map[string]string{"C7": "こんにちは"}},
		},
	)
	fx.params.SheetLangs = map[string]checker.SheetLanguage{
		"Dialog": {Lang: "Japanese", Code: "ja_JP"},
	}

	var mu sync.Mutex
	langs := map[string]string{}
	reviewer := inspection.ReviewerFunc(func(ctx context.Context, seg inspection.Segment) (inspection.Verdict, error) {
		mu.Lock()
		langs[seg.Sheet] = seg.TargetLang + "/" + seg.TargetCode
		mu.Unlock()
		return inspection.Verdict{OK: true}, nil
	})

	evs, err := collect(newChecker(t, reviewer, inspection.Config{}), fx.params)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"Menu": "Korean/ko_KR", "Dialog": "Japanese/ja_JP"}, langs)
	assert.Contains(t, logLines(evs), `Sheet "Credits" not found in target workbook; skipped.`)
	assert.Contains(t, evs[len(evs)-1].Output, "Sheets: Menu, Dialog")

	fx.params.Sheets = []string{"Credits", "Missing"}
	evs, err = collect(newChecker(t, reviewer, inspection.Config{}), fx.params)
	assert.ErrorIs(t, err, inspection.ErrNoSheets)
	assert.Contains(t, logLines(evs), `Sheet "Missing" not found in source workbook; skipped.`)
}

func TestChecker_ReviewerFailureIsRecorded(t *testing.T) {
	fx := newFixture(t,
		[]xlsxtest.Sheet{{Name: "S", Cells: map[string]string{"C7": "Hello"}}},
		[]xlsxtest.Sheet{{Name: "S", Cells: map[string]string{"C7": "안녕"}}},
	)
	reviewer := inspection.ReviewerFunc(func(ctx context.Context, seg inspection.Segment) (inspection.Verdict, error) {
		return inspection.Verdict{}, errors.New("quota exceeded")
	})

	evs, err := collect(newChecker(t, reviewer, inspection.Config{}), fx.params)
	require.NoError(t, err)

	progress := ofType(evs, events.TypeProgress)
	require.Len(t, progress, 1)
	assert.Equal(t, "S!C7: review failed", progress[0].Fields["log"])
	assert.Contains(t, evs[len(evs)-1].Output, "Review failed; check this cell manually.")
}

func TestChecker_Failures(t *testing.T) {
	fx := newFixture(t,
		[]xlsxtest.Sheet{{Name: "S", Cells: map[string]string{"C7": "Hello"}}},
		[]xlsxtest.Sheet{{Name: "S", Cells: map[string]string{"C7": "안녕"}}},
	)

	t.Run("invalid range", func(t *testing.T) {
		p := fx.params
		p.CellRange = "7C"
		evs, err := collect(newChecker(t, nil, inspection.Config{}), p)
		assert.ErrorIs(t, err, xlsx.ErrInvalidRange)
		assert.Empty(t, evs)
	})

	t.Run("missing source workbook", func(t *testing.T) {
		p := fx.params
		p.SourcePath = filepath.Join(fx.dir, "nope.xlsx")
		_, err := collect(newChecker(t, nil, inspection.Config{}), p)
		assert.ErrorIs(t, err, xlsx.ErrInvalidWorkbook)
		assert.ErrorContains(t, err, "source workbook")
	})

	t.Run("unreadable glossary does not fail the run", func(t *testing.T) {
		p := fx.params
		p.GlossaryPath = filepath.Join(fx.dir, "missing.csv")
		evs, err := collect(newChecker(t, nil, inspection.Config{}), p)
		require.NoError(t, err)
		assert.Contains(t, logLines(evs), "Glossary load failed; skipping glossary checks.")
		assert.Equal(t, events.TypeComplete, evs[len(evs)-1].Type)
	})

	t.Run("no glossary configured", func(t *testing.T) {
		p := fx.params
		p.GlossaryPath = ""
		evs, err := collect(newChecker(t, nil, inspection.Config{}), p)
		require.NoError(t, err)
		assert.Contains(t, logLines(evs), "No glossary configured; skipping glossary checks.")
	})
}

func TestChecker_BoundsConcurrency(t *testing.T) {
	cells := map[string]string{}
	translated := map[string]string{}
	for _, ref := range []string{"C7", "C8", "C9", "C10", "C11", "C12", "C13", "C14"} {
		cells[ref] = "text " + ref
		translated[ref] = "번역 " + ref
	}
	fx := newFixture(t,
		[]xlsxtest.Sheet{{Name: "S", Cells: cells}},
		[]xlsxtest.Sheet{{Name: "S", Cells: translated}},
	)
	fx.params.MaxConcurrency = 2

	var inFlight, peak atomic.Int32
	reviewer := inspection.ReviewerFunc(func(ctx context.Context, seg inspection.Segment) (inspection.Verdict, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		return inspection.Verdict{OK: true}, nil
	})

	evs, err := collect(newChecker(t, reviewer, inspection.Config{}), fx.params)
	require.NoError(t, err)
	assert.Len(t, ofType(evs, events.TypeProgress), 8)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestChecker_StopsWhenConsumerStops(t *testing.T) {
	cells := map[string]string{}
	for _, ref := range []string{"C7", "C8", "C9", "C10", "C11"} {
		cells[ref] = "text"
	}
	fx := newFixture(t,
		[]xlsxtest.Sheet{{Name: "S", Cells: cells}},
		[]xlsxtest.Sheet{{Name: "S", Cells: cells}},
	)

	var calls atomic.Int32
	reviewer := inspection.ReviewerFunc(func(ctx context.Context, seg inspection.Segment) (inspection.Verdict, error) {
		calls.Add(1)
		return inspection.Verdict{OK: true}, ctx.Err()
	})
	fx.params.MaxConcurrency = 1

	c := newChecker(t, reviewer, inspection.Config{})
	for ev, err := range c.Check(context.Background(), fx.params) {
		require.NoError(t, err)
		if ev.Type == events.TypeProgress {
			break
		}
	}
	assert.Less(t, calls.Load(), int32(5))
}

func TestNew_Validation(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	loader, err := glossary.NewLoader(nil, 1, time.Minute, logger)
	require.NoError(t, err)

	_, err = inspection.New(nil, nil, inspection.Config{}, logger)
	assert.Error(t, err)
	_, err = inspection.New(loader, nil, inspection.Config{}, nil)
	assert.Error(t, err)
}

func logLines(evs []events.Event) []string {
	var out []string
	for _, ev := range ofType(evs, events.TypeLog) {
		out = append(out, ev.Message())
	}
	return out
}
