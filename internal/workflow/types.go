// Package workflow loads YAML workflows and runs their steps in order
package workflow

import (
	"sync"
	"time"

	"github.com/gnzdotmx/viralshorts/internal/config"
	"github.com/gnzdotmx/viralshorts/internal/mod"
)

// Core workflow types

// Workflow represents a complete clip production workflow
type Workflow struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Input       string `yaml:"input,omitempty"`
	Output      string `yaml:"output"`
	Steps       []Step `yaml:"steps"`

	// Registry holds all available modules
	registry    *mod.ModuleRegistry
	inputConfig *config.InputConfig

	// Defaults are added to a step's parameters when the step's module
	// declares the input and the workflow file leaves it unset.
	Defaults map[string]interface{} `yaml:"-"`
	Retry    RetryStrategy          `yaml:"-"`

	// now is replaceable in tests.
	now func() time.Time
}

// Step represents a single processing step in a workflow
type Step struct {
	Name       string                 `yaml:"name"`
	Module     string                 `yaml:"module"`
	Parameters map[string]interface{} `yaml:"parameters"`
}

// Graph-related types

// WorkflowGraph represents the directed acyclic graph of workflow steps
type WorkflowGraph struct {
	sync.RWMutex // Protects all fields below
	Nodes        map[string]*WorkflowNode
	Edges        map[string][]string
}

// WorkflowNode represents a single node in the workflow graph
type WorkflowNode struct {
	ID       string
	Step     Step
	Status   NodeStatus
	Outputs  map[string]string
	Metadata map[string]interface{}
	Error    string
}

// State-related types

// WorkflowState represents the current state of a workflow execution
type WorkflowState struct {
	sync.RWMutex // Protects all fields below

	ID          string
	Name        string
	RunDir      string
	Input       string
	Graph       *WorkflowGraph
	Order       []string
	StartTime   time.Time
	EndTime     time.Time
	Status      WorkflowStatus
	CurrentNode string
	// StoppedBy names the step that ended the run early with nothing to do.
	StoppedBy string
	History   []WorkflowEvent
}

// WorkflowEvent represents an event that occurred during workflow execution
type WorkflowEvent struct {
	ID        string                 `yaml:"id"`
	Timestamp time.Time              `yaml:"timestamp"`
	Step      string                 `yaml:"step"`
	Type      string                 `yaml:"type"`
	Message   string                 `yaml:"message"`
	Data      map[string]interface{} `yaml:"data,omitempty"`
}

// Status types

// NodeStatus represents the current status of a workflow node
type NodeStatus string

const (
	NodeStatusPending  NodeStatus = "pending"
	NodeStatusRunning  NodeStatus = "running"
	NodeStatusComplete NodeStatus = "complete"
	NodeStatusFailed   NodeStatus = "failed"
	NodeStatusSkipped  NodeStatus = "skipped"
)

// WorkflowStatus represents the current status of the workflow
type WorkflowStatus string

const (
	WorkflowStatusPending  WorkflowStatus = "pending"
	WorkflowStatusRunning  WorkflowStatus = "running"
	WorkflowStatusComplete WorkflowStatus = "complete"
	WorkflowStatusFailed   WorkflowStatus = "failed"
)

// Execution types

// RetryStrategy defines how retries should be handled
type RetryStrategy struct {
	MaxAttempts     int
	BackoffDuration time.Duration
	// OnRetry reports whether err is worth another attempt.
	OnRetry func(error) bool
}
