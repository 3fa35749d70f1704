package wire

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
)

// NDJSONDecoder reads one JSON value per line, the framing Ollama's native
// /api/chat streaming endpoint uses (each line a complete JSON object,
// terminated by a line with "done": true).
//
// New relative to the teacher, which piggybacked Ollama on an OpenAI-
// compatible SSE endpoint instead of speaking native NDJSON; this decoder
// follows the SSEParser idiom in sse.go (a line-oriented bufio.Scanner cursor)
// applied to Ollama's actual wire format.
type NDJSONDecoder struct {
	scanner *bufio.Scanner
	err     error
}

func NewNDJSONDecoder(r io.Reader) *NDJSONDecoder {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 64*1024), 1<<20)
	return &NDJSONDecoder{scanner: s}
}

// Next decodes the next non-blank line into v. Returns io.EOF when the
// stream is exhausted.
func (d *NDJSONDecoder) Next(v any) error {
	if d.err != nil {
		return d.err
	}
	for d.scanner.Scan() {
		line := bytes.TrimSpace(d.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if err := json.Unmarshal(line, v); err != nil {
			d.err = err
			return err
		}
		return nil
	}
	if err := d.scanner.Err(); err != nil {
		d.err = err
		return err
	}
	d.err = io.EOF
	return io.EOF
}
