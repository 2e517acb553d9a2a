package workflow

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// StateFileSuffix ends the name of the state file kept in each run folder.
const StateFileSuffix = ".state.yaml"

// AddEvent adds an event to the workflow history in a thread-safe manner
func (s *WorkflowState) AddEvent(step, eventType, message string, data map[string]interface{}) {
	s.Lock()
	defer s.Unlock()
	s.History = append(s.History, WorkflowEvent{
		ID:        uuid.New().String(),
		Timestamp: time.Now(),
		Step:      step,
		Type:      eventType,
		Message:   message,
		Data:      data,
	})
}

// updateNode applies fn to a node while holding both the state and graph locks
func (s *WorkflowState) updateNode(nodeID string, fn func(*WorkflowNode)) {
	s.Lock()
	defer s.Unlock()
	s.Graph.Lock()
	defer s.Graph.Unlock()
	if node, exists := s.Graph.Nodes[nodeID]; exists {
		fn(node)
	}
}

// UpdateNodeStatus updates a node's status in a thread-safe manner
func (s *WorkflowState) UpdateNodeStatus(nodeID string, status NodeStatus) {
	s.updateNode(nodeID, func(node *WorkflowNode) {
		node.Status = status
	})
}

// GetNodeStatus gets a node's status in a thread-safe manner
func (s *WorkflowState) GetNodeStatus(nodeID string) NodeStatus {
	s.Graph.RLock()
	defer s.Graph.RUnlock()
	if node, exists := s.Graph.Nodes[nodeID]; exists {
		return node.Status
	}
	return NodeStatusPending
}

// StepStatus returns the status of the named step.
func (s *WorkflowState) StepStatus(name string) NodeStatus {
	node, ok := s.Graph.NodeByName(name)
	if !ok {
		return NodeStatusPending
	}
	return s.GetNodeStatus(node.ID)
}

// StepOutputs returns a copy of the outputs recorded for the named step.
func (s *WorkflowState) StepOutputs(name string) map[string]string {
	node, ok := s.Graph.NodeByName(name)
	if !ok {
		return nil
	}
	s.Graph.RLock()
	defer s.Graph.RUnlock()
	outputs := make(map[string]string, len(node.Outputs))
	for k, v := range node.Outputs {
		outputs[k] = v
	}
	return outputs
}

// stateFile is the persisted form of a WorkflowState
type stateFile struct {
	ID          string          `yaml:"id"`
	Name        string          `yaml:"name"`
	Status      WorkflowStatus  `yaml:"status"`
	StartTime   time.Time       `yaml:"startTime"`
	EndTime     time.Time       `yaml:"endTime,omitempty"`
	CurrentNode string          `yaml:"currentNode,omitempty"`
	StoppedBy   string          `yaml:"stoppedBy,omitempty"`
	Input       string          `yaml:"input,omitempty"`
	Nodes       []nodeState     `yaml:"nodes"`
	History     []WorkflowEvent `yaml:"history,omitempty"`
}

type nodeState struct {
	Name     string                 `yaml:"name"`
	Module   string                 `yaml:"module"`
	Status   NodeStatus             `yaml:"status"`
	Outputs  map[string]string      `yaml:"outputs,omitempty"`
	Metadata map[string]interface{} `yaml:"metadata,omitempty"`
	Error    string                 `yaml:"error,omitempty"`
}

// stateFileName returns the state file name for a workflow name
func stateFileName(workflowName string) string {
	return strings.ReplaceAll(workflowName, " ", "_") + StateFileSuffix
}

// SaveWorkflowState saves the workflow state to a file. Nodes are written in
// execution order.
func SaveWorkflowState(state *WorkflowState, outputPath string) error {
	state.RLock()
	summary := stateFile{
		ID:          state.ID,
		Name:        state.Name,
		Status:      state.Status,
		StartTime:   state.StartTime,
		EndTime:     state.EndTime,
		CurrentNode: state.CurrentNode,
		StoppedBy:   state.StoppedBy,
		Input:       state.Input,
		History:     append([]WorkflowEvent(nil), state.History...),
	}
	order := state.Order
	state.RUnlock()

	state.Graph.RLock()
	for _, id := range order {
		node := state.Graph.Nodes[id]
		summary.Nodes = append(summary.Nodes, nodeState{
			Name:     node.Step.Name,
			Module:   node.Step.Module,
			Status:   node.Status,
			Outputs:  node.Outputs,
			Metadata: node.Metadata,
			Error:    node.Error,
		})
	}
	data, err := yaml.Marshal(summary)
	state.Graph.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal workflow state: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write workflow state: %w", err)
	}
	return nil
}

// loadStateFile reads a saved state
func loadStateFile(path string) (*stateFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow state: %w", err)
	}
	var summary stateFile
	if err := yaml.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("failed to parse workflow state: %w", err)
	}
	return &summary, nil
}

// findStateFile locates the state file in a run folder. The file named after
// the workflow wins; otherwise a single state file of any name is accepted.
func findStateFile(runDir, workflowName string) (string, error) {
	preferred := filepath.Join(runDir, stateFileName(workflowName))
	if _, err := os.Stat(preferred); err == nil {
		return preferred, nil
	}

	matches, err := filepath.Glob(filepath.Join(runDir, "*"+StateFileSuffix))
	if err != nil {
		return "", err
	}
	switch len(matches) {
	case 0:
		return "", os.ErrNotExist
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("several workflow states in %s, none named %s", runDir, filepath.Base(preferred))
	}
}
