package structured

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llmkit-go/llmkit/provider"
)

var personSchema = map[string]any{
	"type":                 "object",
	"properties":           map[string]any{"name": map[string]any{"type": "string"}, "age": map[string]any{"type": "integer"}},
	"required":             []any{"name", "age"},
	"additionalProperties": false,
}

type person struct {
	Name string `json:"name"`
	Age  int    `json:"age"`
}

func TestCompileAndValidateAccepts(t *testing.T) {
	schema, err := Compile("person", personSchema)
	require.NoError(t, err)

	var dst person
	err = Into(schema, `{"name":"Ada","age":36}`, &dst)
	require.NoError(t, err)
	assert.Equal(t, "Ada", dst.Name)
	assert.Equal(t, 36, dst.Age)
}

func TestValidateRejectsMissingRequiredField(t *testing.T) {
	schema, err := Compile("person", personSchema)
	require.NoError(t, err)

	var dst person
	err = Into(schema, `{"name":"Ada"}`, &dst)
	require.Error(t, err)
}

type fakeGenerator struct {
	resp *provider.Response
}

func (f fakeGenerator) Generate(ctx context.Context, req provider.Request) (*provider.Response, error) {
	return f.resp, nil
}

func TestChatSetsResponseFormatAndValidates(t *testing.T) {
	schema, err := Compile("person", personSchema)
	require.NoError(t, err)

	gen := fakeGenerator{resp: &provider.Response{Text: `{"name":"Grace","age":40}`}}
	var dst person
	resp, err := Chat(context.Background(), gen, provider.Request{Model: "m"}, schema, &dst)

	require.NoError(t, err)
	assert.Equal(t, "Grace", dst.Name)
	assert.NotNil(t, resp)
}
