package sse

import (
	"bytes"
	"encoding/json"
	"strings"
)

// DefaultEvent names frames whose payload carries no type
const DefaultEvent = "message"

// Format renders one server-sent event. Multi-line data is split across
// data fields.
func Format(event string, data []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString("event: ")
	buf.WriteString(event)
	buf.WriteByte('\n')
	for _, line := range bytes.Split(data, []byte("\n")) {
		buf.WriteString("data: ")
		buf.Write(line)
		buf.WriteByte('\n')
	}
	buf.WriteByte('\n')
	return buf.Bytes()
}

// FormatMessage renders a client protocol message, using its type field
// as the event name with spaces replaced by dashes
func FormatMessage(msg []byte) []byte {
	var head struct {
		Type string `json:"type"`
	}
	event := DefaultEvent
	if err := json.Unmarshal(msg, &head); err == nil && head.Type != "" {
		event = strings.ReplaceAll(head.Type, " ", "-")
	}
	return Format(event, msg)
}
