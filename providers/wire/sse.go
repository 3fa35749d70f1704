// Package wire holds the low-level stream framing shared by provider
// adapters: SSE for OpenAI-style and Anthropic-style backends, NDJSON for
// Ollama-style ones.
//
// Grounded on the teacher's pkg/providerutils/streaming/sse.go.
package wire

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// SSEEvent is a single parsed Server-Sent Event.
type SSEEvent struct {
	Event string
	Data  string
	ID    string
	Retry int
}

// SSEParser decodes Server-Sent Events from a stream, field by field.
type SSEParser struct {
	scanner *bufio.Scanner
	err     error
}

func NewSSEParser(r io.Reader) *SSEParser {
	return &SSEParser{scanner: bufio.NewScanner(r)}
}

// Next returns the next event, or io.EOF once the stream is exhausted.
func (p *SSEParser) Next() (*SSEEvent, error) {
	if p.err != nil {
		return nil, p.err
	}

	event := &SSEEvent{}
	var dataLines []string

	for p.scanner.Scan() {
		line := p.scanner.Text()

		if line == "" {
			if len(dataLines) > 0 || event.Event != "" {
				event.Data = strings.Join(dataLines, "\n")
				return event, nil
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		colonIdx := strings.Index(line, ":")
		if colonIdx == -1 {
			continue
		}
		field := line[:colonIdx]
		value := line[colonIdx+1:]
		if len(value) > 0 && value[0] == ' ' {
			value = value[1:]
		}

		switch field {
		case "event":
			event.Event = value
		case "data":
			dataLines = append(dataLines, value)
		case "id":
			event.ID = value
		case "retry":
			var retry int
			_, _ = fmt.Sscanf(value, "%d", &retry)
			event.Retry = retry
		}
	}

	if err := p.scanner.Err(); err != nil {
		p.err = err
		return nil, err
	}

	if len(dataLines) > 0 || event.Event != "" {
		event.Data = strings.Join(dataLines, "\n")
		return event, nil
	}

	p.err = io.EOF
	return nil, io.EOF
}

// IsStreamDone reports whether event is the sentinel terminator.
func IsStreamDone(event *SSEEvent) bool {
	return event.Data == "[DONE]" || event.Event == "done"
}
