package checker

import (
	"context"
	"errors"
	"iter"

	"github.com/phrazzld/transcheck-api/internal/events"
)

// ErrCheckerFailure wraps failures raised by a checking process.
var ErrCheckerFailure = errors.New("checker failure")

// SheetLanguage overrides the target language for a single sheet.
type SheetLanguage struct {
	Lang string `json:"lang"`
	Code string `json:"code"`
}

// Params holds everything a checking run consumes. Paths are resolved by the
// caller; the checker only reads them.
type Params struct {
	SourcePath   string
	TargetPath   string
	GlossaryPath string
	GlossaryURL  string

	// Sheets limits the run to these sheet names. Empty means all sheets.
	Sheets     []string
	SheetLangs map[string]SheetLanguage

	SourceLang string
	TargetLang string
	TargetCode string

	MaxConcurrency int
	CellRange      string
	ModelName      string
}

// TargetFor returns the target language and locale code for a sheet.
func (p Params) TargetFor(sheet string) (lang, code string) {
	lang, code = p.TargetLang, p.TargetCode
	if override, ok := p.SheetLangs[sheet]; ok {
		if override.Lang != "" {
			lang = override.Lang
		}
		if override.Code != "" {
			code = override.Code
		}
	}
	return lang, code
}

// Checker runs a translation check.
//
// The returned sequence yields events in generation order: any number of
// progress or log events followed by at most one terminal event. The success
// event is built with events.Result and carries the full artifact. A non-nil
// error ends the run abnormally. Stopping iteration early, or cancelling ctx,
// must release everything the run holds.
type Checker interface {
	Check(ctx context.Context, params Params) iter.Seq2[events.Event, error]
}

// Func adapts a plain function to the Checker interface.
type Func func(ctx context.Context, params Params) iter.Seq2[events.Event, error]

// Check implements Checker.
func (f Func) Check(ctx context.Context, params Params) iter.Seq2[events.Event, error] {
	return f(ctx, params)
}

// FromSlice returns a sequence yielding evs in order and then err, if non-nil.
// It is mainly useful for scripted checkers.
func FromSlice(evs []events.Event, err error) iter.Seq2[events.Event, error] {
	return func(yield func(events.Event, error) bool) {
		for _, ev := range evs {
			if !yield(ev, nil) {
				return
			}
		}
		if err != nil {
			yield(events.Event{}, err)
		}
	}
}
