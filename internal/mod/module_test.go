package mod

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubModule struct {
	name string
	io   ModuleIO
}

func (m *stubModule) Name() string                               { return m.name }
func (m *stubModule) GetIO() ModuleIO                             { return m.io }
func (m *stubModule) Validate(params map[string]interface{}) error { return nil }
func (m *stubModule) Execute(ctx context.Context, params map[string]interface{}) (ModuleResult, error) {
	return ModuleResult{}, nil
}

func validIO() ModuleIO {
	return ModuleIO{
		RequiredInputs: []ModuleInput{{Name: "input", Type: string(InputTypeFile)}},
		OptionalInputs: []ModuleInput{{Name: "runId", Type: string(InputTypeData)}},
		ProducedOutputs: []ModuleOutput{
			{Name: "scores", Type: string(OutputTypeFile), Patterns: []string{"scores.json"}},
		},
	}
}

func TestValidateIO(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(io *ModuleIO)
		wantErr string
	}{
		{name: "valid", modify: func(io *ModuleIO) {}},
		{
			name:    "unnamed input",
			modify:  func(io *ModuleIO) { io.RequiredInputs[0].Name = "" },
			wantErr: "required input 0 has empty name",
		},
		{
			name:    "untyped optional input",
			modify:  func(io *ModuleIO) { io.OptionalInputs[0].Type = "" },
			wantErr: "optional input runId has empty type",
		},
		{
			name:    "unknown input type",
			modify:  func(io *ModuleIO) { io.RequiredInputs[0].Type = "url" },
			wantErr: "invalid type: url",
		},
		{
			name: "input declared twice",
			modify: func(io *ModuleIO) {
				io.RequiredInputs = append(io.RequiredInputs, ModuleInput{Name: "input", Type: string(InputTypeFile)})
			},
			wantErr: "declared twice",
		},
		{
			name:    "output without patterns",
			modify:  func(io *ModuleIO) { io.ProducedOutputs[0].Patterns = nil },
			wantErr: "no patterns defined",
		},
		{
			name:    "unknown output type",
			modify:  func(io *ModuleIO) { io.ProducedOutputs[0].Type = "stream" },
			wantErr: "output scores has invalid type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			io := validIO()
			tt.modify(&io)
			err := ValidateIO(io)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestModuleRegistry(t *testing.T) {
	registry := NewModuleRegistry()
	require.NoError(t, registry.Register(&stubModule{name: "score", io: validIO()}))
	require.NoError(t, registry.Register(&stubModule{name: "download", io: validIO()}))

	assert.ErrorContains(t, registry.Register(&stubModule{name: "score", io: validIO()}), "already registered")
	assert.Error(t, registry.Register(nil))
	assert.Error(t, registry.Register(&stubModule{name: "", io: validIO()}))

	bad := validIO()
	bad.ProducedOutputs[0].Patterns = nil
	assert.ErrorContains(t, registry.Register(&stubModule{name: "render", io: bad}), "invalid I/O specification")

	m, err := registry.Get("score")
	require.NoError(t, err)
	assert.Equal(t, "score", m.Name())
	_, err = registry.Get("upload")
	assert.ErrorContains(t, err, "not found")

	var names []string
	for _, m := range registry.ListModules() {
		names = append(names, m.Name())
	}
	assert.Equal(t, []string{"download", "score"}, names)
}

func TestParseParams(t *testing.T) {
	type params struct {
		Input string  `json:"input"`
		Count int     `json:"count"`
		Ratio float64 `json:"ratio"`
	}

	p := params{Count: 3, Ratio: 0.5}
	require.NoError(t, ParseParams(map[string]interface{}{"input": "source.mp4", "count": 5}, &p))
	assert.Equal(t, params{Input: "source.mp4", Count: 5, Ratio: 0.5}, p)

	assert.Error(t, ParseParams(nil, &p))
	assert.Error(t, ParseParams(map[string]interface{}{}, p))
	assert.Error(t, ParseParams(map[string]interface{}{}, nil))
	assert.ErrorContains(t, ParseParams(map[string]interface{}{"count": "many"}, &p), "unmarshaling")
}
