// Package mod defines the contract every pipeline step implements and the
// registry the workflow resolves step modules from.
package mod

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// ErrNothingToDo is returned by a module when there is no work for the rest
// of the workflow. The workflow stops early and is reported as successful.
var ErrNothingToDo = errors.New("nothing to do")

// Module is one pipeline step.
type Module interface {
	// Name is the value workflow steps use in their module field.
	Name() string

	// GetIO describes the parameters the step reads and the files it writes.
	GetIO() ModuleIO

	// Validate checks parameters before any step of the workflow runs.
	Validate(params map[string]interface{}) error

	// Execute runs the step. Parameters have ${output} already expanded.
	Execute(ctx context.Context, params map[string]interface{}) (ModuleResult, error)
}

// ModuleIO describes a step's inputs and outputs. Output patterns are
// matched against later steps' input parameters to order the workflow.
type ModuleIO struct {
	RequiredInputs  []ModuleInput
	OptionalInputs  []ModuleInput
	ProducedOutputs []ModuleOutput
}

// ModuleInput is a parameter a step reads.
type ModuleInput struct {
	Name        string   // Parameter name (e.g. "input", "scores")
	Description string   // Shown by validation errors
	Patterns    []string // Extensions or file names that satisfy it
	Type        string   // One of the InputType values
}

// ModuleOutput is a file or folder a step writes into the run folder.
type ModuleOutput struct {
	Name        string   // Key in ModuleResult.Outputs
	Description string   // What the output holds
	Patterns    []string // Extensions or file names it is written with
	Type        string   // One of the OutputType values
}

// ModuleResult is what a step reports back to the workflow. Outputs and
// Metadata are kept in the run's state file.
type ModuleResult struct {
	Outputs    map[string]string      // Output name to path
	Metadata   map[string]interface{} // Identifiers and flags for later inspection
	Statistics map[string]interface{} // Counts logged after the step
}

// InputType is the kind of value an input parameter holds.
type InputType string

const (
	InputTypeFile      InputType = "file"
	InputTypeDirectory InputType = "directory"
	InputTypeData      InputType = "data"
)

// OutputType is the kind of artifact an output is.
type OutputType string

const (
	OutputTypeFile      OutputType = "file"
	OutputTypeDirectory OutputType = "directory"
	OutputTypeData      OutputType = "data"
)

// ModuleRegistry maps module names to modules.
type ModuleRegistry struct {
	mu      sync.RWMutex
	modules map[string]Module
}

// NewModuleRegistry creates an empty registry.
func NewModuleRegistry() *ModuleRegistry {
	return &ModuleRegistry{modules: make(map[string]Module)}
}

// ValidateIO checks that every input and output is named and typed, and
// that outputs carry the patterns the workflow needs to order steps.
func ValidateIO(io ModuleIO) error {
	if err := validateInputs("required", io.RequiredInputs); err != nil {
		return err
	}
	if err := validateInputs("optional", io.OptionalInputs); err != nil {
		return err
	}

	for i, output := range io.ProducedOutputs {
		if output.Name == "" {
			return fmt.Errorf("output %d has empty name", i)
		}
		switch OutputType(output.Type) {
		case OutputTypeFile, OutputTypeDirectory, OutputTypeData:
		case "":
			return fmt.Errorf("output %s has empty type", output.Name)
		default:
			return fmt.Errorf("output %s has invalid type: %s", output.Name, output.Type)
		}
		if len(output.Patterns) == 0 {
			return fmt.Errorf("output %s has no patterns defined", output.Name)
		}
	}
	return nil
}

func validateInputs(kind string, inputs []ModuleInput) error {
	seen := make(map[string]bool, len(inputs))
	for i, input := range inputs {
		if input.Name == "" {
			return fmt.Errorf("%s input %d has empty name", kind, i)
		}
		if seen[input.Name] {
			return fmt.Errorf("%s input %s is declared twice", kind, input.Name)
		}
		seen[input.Name] = true

		switch InputType(input.Type) {
		case InputTypeFile, InputTypeDirectory, InputTypeData:
		case "":
			return fmt.Errorf("%s input %s has empty type", kind, input.Name)
		default:
			return fmt.Errorf("%s input %s has invalid type: %s", kind, input.Name, input.Type)
		}
	}
	return nil
}

// Register adds m under its name. Names are unique.
func (r *ModuleRegistry) Register(m Module) error {
	if m == nil {
		return fmt.Errorf("cannot register nil module")
	}
	name := m.Name()
	if name == "" {
		return fmt.Errorf("module name cannot be empty")
	}
	if err := ValidateIO(m.GetIO()); err != nil {
		return fmt.Errorf("invalid I/O specification for module %s: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.modules[name]; exists {
		return fmt.Errorf("module %s is already registered", name)
	}
	r.modules[name] = m
	return nil
}

// Get returns the module registered under name.
func (r *ModuleRegistry) Get(name string) (Module, error) {
	if name == "" {
		return nil, fmt.Errorf("module name cannot be empty")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.modules[name]
	if !ok {
		return nil, fmt.Errorf("module %s not found", name)
	}
	return m, nil
}

// ListModules returns the registered modules sorted by name.
func (r *ModuleRegistry) ListModules() []Module {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]Module, 0, len(r.modules))
	for _, m := range r.modules {
		list = append(list, m)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Name() < list[j].Name()
	})
	return list
}

// ParseParams decodes a step's parameter map into target, a pointer to the
// module's Params struct, through its json tags. Fields already set on
// target act as defaults.
func ParseParams(params map[string]interface{}, target interface{}) error {
	if params == nil {
		return fmt.Errorf("params cannot be nil")
	}
	v := reflect.ValueOf(target)
	if target == nil || v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("target must be a pointer to a struct")
	}

	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("error marshaling params: %w", err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("error unmarshaling params: %w", err)
	}
	return nil
}
