package wire

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSSEParserReadsNamedEventAndData(t *testing.T) {
	body := "event: content_block_delta\ndata: {\"text\":\"hi\"}\n\n"
	p := NewSSEParser(strings.NewReader(body))

	ev, err := p.Next()
	require.NoError(t, err)
	assert.Equal(t, "content_block_delta", ev.Event)
	assert.Equal(t, `{"text":"hi"}`, ev.Data)

	_, err = p.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestSSEParserJoinsMultilineData(t *testing.T) {
	body := "data: line1\ndata: line2\n\n"
	p := NewSSEParser(strings.NewReader(body))

	ev, err := p.Next()
	require.NoError(t, err)
	assert.Equal(t, "line1\nline2", ev.Data)
}

func TestSSEParserSkipsCommentLines(t *testing.T) {
	body := ": keep-alive\ndata: ok\n\n"
	p := NewSSEParser(strings.NewReader(body))

	ev, err := p.Next()
	require.NoError(t, err)
	assert.Equal(t, "ok", ev.Data)
}

func TestIsStreamDoneDetectsSentinels(t *testing.T) {
	assert.True(t, IsStreamDone(&SSEEvent{Data: "[DONE]"}))
	assert.True(t, IsStreamDone(&SSEEvent{Event: "done"}))
	assert.False(t, IsStreamDone(&SSEEvent{Data: "{}"}))
}
