package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvent_MarshalJSON(t *testing.T) {
	tests := []struct {
		name  string
		event Event
		want  string
	}{
		{
			name:  "progress keeps checker fields",
			event: Progress(map[string]any{"current": 3, "total": 10, "percent": 30}),
			want:  `{"current":3,"percent":30,"total":10,"type":"progress"}`,
		},
		{
			name:  "progress cannot override its type",
			event: Progress(map[string]any{"type": "complete", "log": "x"}),
			want:  `{"log":"x","type":"progress"}`,
		},
		{
			name:  "complete notice carries only the download url",
			event: Complete("/api/download/t1"),
			want:  `{"downloadUrl":"/api/download/t1","type":"complete"}`,
		},
		{
			name:  "checker result never serializes its output",
			event: Result("OK: 10 rows"),
			want:  `{"type":"complete"}`,
		},
		{
			name:  "error",
			event: Failure("boom"),
			want:  `{"message":"boom","type":"error"}`,
		},
		{
			name:  "log",
			event: Log("Loading glossary"),
			want:  `{"message":"Loading glossary","type":"log"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.event)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))
		})
	}
}

func TestEvent_UnmarshalJSON(t *testing.T) {
	var ev Event
	require.NoError(t, json.Unmarshal([]byte(`{"type":"progress","current":1,"log":"row 1"}`), &ev))

	assert.Equal(t, TypeProgress, ev.Type)
	assert.Equal(t, "row 1", ev.Fields["log"])
	assert.NotContains(t, ev.Fields, FieldType)

	err := json.Unmarshal([]byte(`{"current":1}`), &ev)
	assert.ErrorIs(t, err, ErrMissingType)
}

func TestEvent_IsTerminal(t *testing.T) {
	assert.False(t, Progress(nil).IsTerminal())
	assert.False(t, Log("hi").IsTerminal())
	assert.True(t, Complete("/x").IsTerminal())
	assert.True(t, Result("out").IsTerminal())
	assert.True(t, Failure("bad").IsTerminal())
}

func TestFailuref(t *testing.T) {
	ev := Failuref("inspection failed: %s", "no sheets")
	assert.Equal(t, TypeError, ev.Type)
	assert.Equal(t, "inspection failed: no sheets", ev.Message())
}

func TestProgress_CopiesFields(t *testing.T) {
	fields := map[string]any{"current": 1}
	ev := Progress(fields)
	fields["current"] = 2

	assert.Equal(t, 1, ev.Fields["current"], "later mutation by the producer must not leak into queued events")
}
