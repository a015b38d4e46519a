package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/phrazzld/transcheck-api/internal/events"
)

// setSSEHeaders prepares w for a server-sent event stream.
func setSSEHeaders(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
}

// encodeSSEEvent renders ev as the JSON payload of one frame.
func encodeSSEEvent(ev events.Event) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	return data, nil
}

// writeSSEFrame writes one "data: <json>\n\n" frame.
func writeSSEFrame(w io.Writer, data []byte) error {
	_, err := fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}

// writeSSEHeartbeat writes a comment frame that clients ignore.
func writeSSEHeartbeat(w io.Writer) error {
	_, err := io.WriteString(w, ": ping\n\n")
	return err
}
