package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gnzdotmx/viralshorts/internal/config"
	"github.com/gnzdotmx/viralshorts/internal/mod"
	"github.com/gnzdotmx/viralshorts/internal/services/youtube"
	"github.com/gnzdotmx/viralshorts/internal/utils"
	"github.com/gnzdotmx/viralshorts/workflows"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// RunDirTimeFormat is the timestamp suffix of run folder names.
const RunDirTimeFormat = "20060102-150405"

// videoInputParams lists, per module, the parameters that take the source
// video. A local input video is written into all of them.
var videoInputParams = map[string][]string{
	"transcribe": {"input"},
	"score":      {"input"},
	"render":     {"input"},
}

// sourceModules produce the source video and are skipped when one is given.
var sourceModules = map[string]bool{
	"discover": true,
	"download": true,
}

// LoadFromFile loads a workflow from a YAML file. An empty workflow path
// selects the built-in workflow.
func LoadFromFile(inputConfig *config.InputConfig) (*Workflow, error) {
	data := workflows.Default
	if inputConfig.WorkflowPath != "" {
		var err error
		data, err = os.ReadFile(inputConfig.WorkflowPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read workflow file: %w", err)
		}
	}

	registry, err := NewRegistry()
	if err != nil {
		return nil, err
	}
	return Load(data, inputConfig, registry)
}

// Load parses workflow YAML and binds it to the given registry
func Load(data []byte, inputConfig *config.InputConfig, registry *mod.ModuleRegistry) (*Workflow, error) {
	var workflow Workflow
	if err := yaml.Unmarshal(data, &workflow); err != nil {
		return nil, fmt.Errorf("failed to parse workflow file: %w", err)
	}

	workflow.registry = registry
	workflow.inputConfig = inputConfig
	workflow.Defaults = make(map[string]interface{})
	workflow.Retry = RetryStrategy{MaxAttempts: 1}
	workflow.now = time.Now

	if inputConfig != nil {
		if inputConfig.InputPath != "" {
			workflow.Input = inputConfig.InputPath
		}
		if inputConfig.OutputPath != "" {
			workflow.Output = inputConfig.OutputPath
		}
		if inputConfig.HistoryFile != "" {
			workflow.Defaults["historyFile"] = inputConfig.HistoryFile
		}
	}

	if err := workflow.check(); err != nil {
		return nil, err
	}
	return &workflow, nil
}

// check verifies the workflow structure before anything runs
func (w *Workflow) check() error {
	if w.Name == "" {
		return fmt.Errorf("workflow name is required")
	}
	if len(w.Steps) == 0 {
		return fmt.Errorf("workflow %s has no steps", w.Name)
	}
	if w.Output == "" {
		return fmt.Errorf("workflow %s has no output directory", w.Name)
	}
	if w.Input != "" {
		if err := utils.ValidateFileExtension(w.Input, utils.VideoExtensions); err != nil {
			return fmt.Errorf("input %s: %w", w.Input, err)
		}
	}

	seen := make(map[string]bool, len(w.Steps))
	for i, step := range w.Steps {
		if step.Name == "" {
			return fmt.Errorf("step %d has no name", i+1)
		}
		if seen[step.Name] {
			return fmt.Errorf("duplicate step name: %s", step.Name)
		}
		seen[step.Name] = true
		if _, err := w.registry.Get(step.Module); err != nil {
			return fmt.Errorf("step %s: %w", step.Name, err)
		}
	}
	return nil
}

// SetRetry sets how failed steps are retried
func (w *Workflow) SetRetry(strategy RetryStrategy) {
	w.Retry = strategy
}

// SetDefault adds a parameter given to every step whose module declares it
func (w *Workflow) SetDefault(name string, value interface{}) {
	w.Defaults[name] = value
}

// Execute creates a new run folder under the workflow output and runs every step
func (w *Workflow) Execute(ctx context.Context) (*WorkflowState, error) {
	runDir := filepath.Join(w.Output, fmt.Sprintf("%s-%s",
		strings.ReplaceAll(w.Name, " ", "_"), w.now().Format(RunDirTimeFormat)))
	if err := utils.EnsureDir(runDir); err != nil {
		return nil, fmt.Errorf("failed to create run folder: %w", err)
	}
	utils.LogInfo("Run folder: %s", runDir)

	state, err := w.newState(runDir, uuid.New().String())
	if err != nil {
		return nil, err
	}
	if w.Input != "" {
		for _, nodeID := range state.Order {
			if node := state.Graph.Nodes[nodeID]; sourceModules[node.Step.Module] {
				node.Status = NodeStatusSkipped
				utils.LogVerbose("Skipping %s, using input %s", node.Step.Name, w.Input)
			}
		}
	}

	return state, w.run(ctx, state)
}

// ExecuteRetry resumes a run in an existing run folder. Execution restarts at
// stepName, or at the first step that did not complete when stepName is empty.
// The run keeps its identifier so sidecars stay attributable to it.
func (w *Workflow) ExecuteRetry(ctx context.Context, runDir, stepName string) (*WorkflowState, error) {
	if stepName != "" {
		if _, ok := w.stepIndex(stepName); !ok {
			return nil, fmt.Errorf("workflow step '%s' not found in workflow", stepName)
		}
	}

	var prev *stateFile
	statePath, err := findStateFile(runDir, w.Name)
	switch {
	case err == nil:
		if prev, err = loadStateFile(statePath); err != nil {
			return nil, err
		}
	case errors.Is(err, os.ErrNotExist):
		if stepName == "" {
			return nil, fmt.Errorf("no workflow state in %s; name the step to resume from", runDir)
		}
		utils.LogInfo("No previous state found. Starting from step: %s", stepName)
	default:
		return nil, err
	}

	id := uuid.New().String()
	if prev != nil {
		id = prev.ID
		if w.Input == "" {
			w.Input = prev.Input
		}
	}
	state, err := w.newState(runDir, id)
	if err != nil {
		return nil, err
	}
	if prev != nil {
		state.StartTime = prev.StartTime
		state.History = prev.History
		restoreNodes(state, prev.Nodes)
	}

	start := w.resumeIndex(state, stepName)
	if start < 0 {
		utils.LogInfo("Every step of %s already completed", runDir)
		state.Status = WorkflowStatusComplete
		return state, nil
	}
	for i, nodeID := range state.Order {
		node := state.Graph.Nodes[nodeID]
		switch {
		case i >= start:
			node.Status = NodeStatusPending
			node.Error = ""
		case node.Status != NodeStatusComplete && node.Status != NodeStatusSkipped:
			utils.LogWarning("Step %s did not complete and is skipped", node.Step.Name)
			node.Status = NodeStatusSkipped
		}
	}

	utils.LogInfo("Resuming %s at step %s", runDir, state.Graph.Nodes[state.Order[start]].Step.Name)
	return state, w.run(ctx, state)
}

// restoreNodes copies saved node results onto the matching steps
func restoreNodes(state *WorkflowState, saved []nodeState) {
	for _, s := range saved {
		node, ok := state.Graph.NodeByName(s.Name)
		if !ok || node.Step.Module != s.Module {
			continue
		}
		node.Status = s.Status
		node.Error = s.Error
		if s.Outputs != nil {
			node.Outputs = s.Outputs
		}
		if s.Metadata != nil {
			node.Metadata = s.Metadata
		}
	}
}

// resumeIndex returns the position in state.Order to resume from, or -1
func (w *Workflow) resumeIndex(state *WorkflowState, stepName string) int {
	for i, nodeID := range state.Order {
		node := state.Graph.Nodes[nodeID]
		if stepName != "" {
			if node.Step.Name == stepName {
				return i
			}
			continue
		}
		if node.Status != NodeStatusComplete && node.Status != NodeStatusSkipped {
			return i
		}
	}
	return -1
}

func (w *Workflow) stepIndex(name string) (int, bool) {
	for i, step := range w.Steps {
		if step.Name == name {
			return i, true
		}
	}
	return -1, false
}

// newState builds the execution graph for a run folder
func (w *Workflow) newState(runDir, id string) (*WorkflowState, error) {
	state := &WorkflowState{
		ID:        id,
		Name:      w.Name,
		RunDir:    runDir,
		Input:     w.Input,
		StartTime: w.now(),
		Status:    WorkflowStatusPending,
		History:   make([]WorkflowEvent, 0),
	}

	graph := NewWorkflowGraph()
	state.Graph = graph

	nodeMap := make(map[string]*WorkflowNode)
	for _, step := range w.Steps {
		nodeMap[step.Name] = graph.AddNode(step)
	}
	if err := w.buildDependencyEdges(graph, nodeMap); err != nil {
		return nil, err
	}

	order, err := graph.TopologicalSort()
	if err != nil {
		return nil, fmt.Errorf("failed to determine execution order: %w", err)
	}
	state.Order = order
	return state, nil
}

// run validates every pending step, then executes them in order
func (w *Workflow) run(ctx context.Context, state *WorkflowState) error {
	statePath := filepath.Join(state.RunDir, stateFileName(w.Name))

	if err := w.validatePending(state); err != nil {
		return err
	}

	state.Lock()
	state.Status = WorkflowStatusRunning
	state.Unlock()

	for i, nodeID := range state.Order {
		node := state.Graph.Nodes[nodeID]
		if status := state.GetNodeStatus(nodeID); status == NodeStatusComplete || status == NodeStatusSkipped {
			continue
		}
		if !state.Graph.CanExecuteNode(nodeID) {
			return w.fail(state, statePath, node, fmt.Errorf("dependencies of step %s did not complete", node.Step.Name))
		}

		module, err := w.registry.Get(node.Step.Module)
		if err != nil {
			return w.fail(state, statePath, node, fmt.Errorf("failed to get module %s: %w", node.Step.Module, err))
		}
		params := w.resolveParams(module, node.Step, state)

		state.Lock()
		state.CurrentNode = node.Step.Name
		state.Unlock()
		state.UpdateNodeStatus(nodeID, NodeStatusRunning)
		state.AddEvent(node.Step.Name, "started", fmt.Sprintf("Started executing %s", node.Step.Name), nil)
		utils.LogInfo("Step %d/%d: %s (%s)", i+1, len(state.Order), node.Step.Name, node.Step.Module)

		result, err := w.executeWithRetry(ctx, module, node.Step, params)
		if errors.Is(err, mod.ErrNothingToDo) {
			w.stopEarly(state, i, err)
			break
		}
		if err != nil {
			return w.fail(state, statePath, node, fmt.Errorf("failed to execute module %s: %w", node.Step.Module, err))
		}

		state.updateNode(nodeID, func(n *WorkflowNode) {
			n.Status = NodeStatusComplete
			n.Outputs = result.Outputs
			n.Metadata = result.Metadata
		})
		state.AddEvent(node.Step.Name, "completed", fmt.Sprintf("Completed executing %s", node.Step.Name), result.Statistics)
		utils.LogSuccess("Step %s completed", node.Step.Name)

		if err := SaveWorkflowState(state, statePath); err != nil {
			utils.LogWarning("Failed to save workflow state: %v", err)
		}
	}

	state.Lock()
	state.Status = WorkflowStatusComplete
	state.EndTime = w.now()
	state.CurrentNode = ""
	state.Unlock()

	if err := SaveWorkflowState(state, statePath); err != nil {
		return fmt.Errorf("failed to save workflow state: %w", err)
	}
	return nil
}

// stopEarly marks the current and every later step skipped
func (w *Workflow) stopEarly(state *WorkflowState, from int, reason error) {
	current := state.Graph.Nodes[state.Order[from]]
	utils.LogInfo("Step %s: %v, stopping", current.Step.Name, reason)

	for _, nodeID := range state.Order[from:] {
		state.UpdateNodeStatus(nodeID, NodeStatusSkipped)
	}
	state.Lock()
	state.StoppedBy = current.Step.Name
	state.Unlock()
	state.AddEvent(current.Step.Name, "stopped", reason.Error(), nil)
}

// fail records a failed step and saves the state so the run can be retried
func (w *Workflow) fail(state *WorkflowState, statePath string, node *WorkflowNode, err error) error {
	state.updateNode(node.ID, func(n *WorkflowNode) {
		n.Status = NodeStatusFailed
		n.Error = err.Error()
	})
	state.Lock()
	state.Status = WorkflowStatusFailed
	state.EndTime = w.now()
	state.Unlock()
	state.AddEvent(node.Step.Name, "failed", fmt.Sprintf("Failed executing %s", node.Step.Name),
		map[string]interface{}{"error": err.Error()})

	if saveErr := SaveWorkflowState(state, statePath); saveErr != nil {
		utils.LogWarning("Failed to save workflow state: %v", saveErr)
	}
	return fmt.Errorf("step %s: %w", node.Step.Name, err)
}

// validatePending validates the parameters of every step that will run
func (w *Workflow) validatePending(state *WorkflowState) error {
	for _, nodeID := range state.Order {
		node := state.Graph.Nodes[nodeID]
		if node.Status == NodeStatusComplete || node.Status == NodeStatusSkipped {
			continue
		}
		module, err := w.registry.Get(node.Step.Module)
		if err != nil {
			return err
		}
		if err := module.Validate(w.resolveParams(module, node.Step, state)); err != nil {
			return fmt.Errorf("step %s: invalid parameters: %w", node.Step.Name, err)
		}
	}
	return nil
}

// resolveParams builds the parameters a step runs with: the configured values
// with ${output} replaced by the run folder, the local input video, the run
// folder as output, and defaults for inputs the module declares.
func (w *Workflow) resolveParams(module mod.Module, step Step, state *WorkflowState) map[string]interface{} {
	params := make(map[string]interface{}, len(step.Parameters)+3)
	for k, v := range step.Parameters {
		params[k] = expandOutput(v, state.RunDir)
	}

	if state.Input != "" {
		for _, name := range videoInputParams[step.Module] {
			params[name] = state.Input
		}
	}

	params["output"] = state.RunDir

	defaults := map[string]interface{}{"runId": state.ID}
	for k, v := range w.Defaults {
		defaults[k] = v
	}
	io := module.GetIO()
	for name, value := range defaults {
		if _, set := params[name]; set || !declaresInput(io, name) {
			continue
		}
		params[name] = value
	}
	return params
}

// expandOutput replaces ${output} in strings, lists and nested maps
func expandOutput(value interface{}, runDir string) interface{} {
	switch v := value.(type) {
	case string:
		return strings.ReplaceAll(v, "${output}", runDir)
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = expandOutput(item, runDir)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, item := range v {
			out[k] = expandOutput(item, runDir)
		}
		return out
	default:
		return value
	}
}

func declaresInput(io mod.ModuleIO, name string) bool {
	for _, input := range io.RequiredInputs {
		if input.Name == name {
			return true
		}
	}
	for _, input := range io.OptionalInputs {
		if input.Name == name {
			return true
		}
	}
	return false
}

// executeWithRetry runs a module, retrying failures the strategy allows
func (w *Workflow) executeWithRetry(ctx context.Context, module mod.Module, step Step, params map[string]interface{}) (mod.ModuleResult, error) {
	attempts := w.Retry.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	retryable := w.Retry.OnRetry
	if retryable == nil {
		retryable = Retryable
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return mod.ModuleResult{}, err
		}
		result, err := module.Execute(ctx, params)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if attempt == attempts || !retryable(err) {
			break
		}

		utils.LogWarning("Step %s failed (attempt %d/%d): %v", step.Name, attempt, attempts, err)
		if w.Retry.BackoffDuration > 0 {
			utils.LogVerbose("Retrying in %s", w.Retry.BackoffDuration)
			timer := time.NewTimer(w.Retry.BackoffDuration)
			select {
			case <-ctx.Done():
				timer.Stop()
				return mod.ModuleResult{}, ctx.Err()
			case <-timer.C:
			}
		}
	}
	return mod.ModuleResult{}, lastErr
}

// Retryable reports whether a step error may go away on another attempt.
// Early stops, cancellation, and authentication or quota failures do not.
func Retryable(err error) bool {
	switch {
	case errors.Is(err, mod.ErrNothingToDo),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded),
		youtube.IsFatal(err):
		return false
	default:
		return true
	}
}

// buildDependencyEdges adds edges to the graph based on module dependencies
func (w *Workflow) buildDependencyEdges(graph *WorkflowGraph, nodeMap map[string]*WorkflowNode) error {
	// Steps run in file order
	for i := 1; i < len(w.Steps); i++ {
		if err := graph.AddEdge(nodeMap[w.Steps[i-1].Name].ID, nodeMap[w.Steps[i].Name].ID); err != nil {
			return fmt.Errorf("failed to add sequential edge: %w", err)
		}
	}

	// A step also depends on earlier steps producing one of its inputs
	for i, step := range w.Steps {
		module, err := w.registry.Get(step.Module)
		if err != nil {
			return fmt.Errorf("failed to get module %s: %w", step.Module, err)
		}
		inputs := append(append([]mod.ModuleInput{}, module.GetIO().RequiredInputs...), module.GetIO().OptionalInputs...)

		for _, prevStep := range w.Steps[:i] {
			prevModule, err := w.registry.Get(prevStep.Module)
			if err != nil {
				return fmt.Errorf("failed to get module %s: %w", prevStep.Module, err)
			}
			if producesAny(prevModule.GetIO().ProducedOutputs, inputs) {
				if err := graph.AddEdge(nodeMap[prevStep.Name].ID, nodeMap[step.Name].ID); err != nil {
					return fmt.Errorf("failed to add dependency edge: %w", err)
				}
			}
		}
	}
	return nil
}

func producesAny(outputs []mod.ModuleOutput, inputs []mod.ModuleInput) bool {
	for _, output := range outputs {
		for _, input := range inputs {
			if matchesIOPattern(input, output) {
				return true
			}
		}
	}
	return false
}

// matchesIOPattern checks if an input matches an output's pattern
func matchesIOPattern(input mod.ModuleInput, output mod.ModuleOutput) bool {
	if input.Type != output.Type {
		return false
	}
	for _, inPattern := range input.Patterns {
		for _, outPattern := range output.Patterns {
			if inPattern == outPattern {
				return true
			}
		}
	}
	return false
}
