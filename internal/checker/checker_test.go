package checker

import (
	"context"
	"errors"
	"iter"
	"testing"

	"github.com/phrazzld/transcheck-api/internal/events"
	"github.com/stretchr/testify/assert"
)

func TestParams_TargetFor(t *testing.T) {
	p := Params{
		TargetLang: "Korean",
		TargetCode: "ko_KR",
		SheetLangs: map[string]SheetLanguage{
			"JP":      {Lang: "Japanese", Code: "ja_JP"},
			"Partial": {Lang: "Traditional Chinese"},
		},
	}

	lang, code := p.TargetFor("Main")
	assert.Equal(t, "Korean", lang)
	assert.Equal(t, "ko_KR", code)

	lang, code = p.TargetFor("JP")
	assert.Equal(t, "Japanese", lang)
	assert.Equal(t, "ja_JP", code)

	lang, code = p.TargetFor("Partial")
	assert.Equal(t, "Traditional Chinese", lang)
	assert.Equal(t, "ko_KR", code, "missing override fields fall back to the defaults")
}

func TestFromSlice(t *testing.T) {
	boom := errors.New("boom")
	seq := FromSlice([]events.Event{events.Log("a"), events.Log("b")}, boom)

	var got []string
	var gotErr error
	for ev, err := range seq {
		if err != nil {
			gotErr = err
			break
		}
		got = append(got, ev.Message())
	}

	assert.Equal(t, []string{"a", "b"}, got)
	assert.ErrorIs(t, gotErr, boom)
}

func TestFromSlice_StopsEarly(t *testing.T) {
	seq := FromSlice([]events.Event{events.Log("a"), events.Log("b"), events.Log("c")}, nil)

	count := 0
	for range seq {
		count++
		if count == 2 {
			break
		}
	}
	assert.Equal(t, 2, count)
}

func TestFunc(t *testing.T) {
	var c Checker = Func(func(ctx context.Context, p Params) iter.Seq2[events.Event, error] {
		return FromSlice([]events.Event{events.Result(p.ModelName)}, nil)
	})

	for ev, err := range c.Check(context.Background(), Params{ModelName: "m"}) {
		assert.NoError(t, err)
		assert.Equal(t, "m", ev.Output)
	}
}
