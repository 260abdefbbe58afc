package runner

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"
)

// JSONHandler writes the trace as JSON-Lines, one object per message with a
// "type" of frame, system or result.
type JSONHandler struct {
	Reader  *bufio.Reader
	Writer  io.Writer
	Encoder *json.Encoder
}

// NewJSONHandler creates a handler for JSON IO.
func NewJSONHandler(r io.Reader, w io.Writer) *JSONHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	return &JSONHandler{
		Reader:  bufio.NewReader(r),
		Writer:  w,
		Encoder: json.NewEncoder(w),
	}
}

type jsonMessage struct {
	Type    string  `json:"type"`
	Frame   *Frame  `json:"frame,omitempty"`
	Message string  `json:"message,omitempty"`
	Result  *Result `json:"result,omitempty"`
}

func (h *JSONHandler) Frame(ctx context.Context, f Frame) error {
	return h.Encoder.Encode(jsonMessage{Type: "frame", Frame: &f})
}

func (h *JSONHandler) SystemOutput(ctx context.Context, msg string) error {
	return h.Encoder.Encode(jsonMessage{Type: "system", Message: msg})
}

// Input reads one line. A JSON string is unquoted; anything else is
// returned trimmed.
func (h *JSONHandler) Input(ctx context.Context) (string, error) {
	text, err := h.Reader.ReadString('\n')
	if err != nil && (err != io.EOF || text == "") {
		return "", err
	}
	text = strings.TrimSpace(text)

	var val string
	if err := json.Unmarshal([]byte(text), &val); err == nil {
		return val, nil
	}
	return text, nil
}

func (h *JSONHandler) Summary(ctx context.Context, r *Result) error {
	return h.Encoder.Encode(jsonMessage{Type: "result", Result: r})
}
