// Package workflow drives an episode run through its state machine.
package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/dukex/episodic/pkg/models"
)

// End terminates a graph walk.
const End models.StepName = "__end__"

const maxSteps = 64

var (
	// ErrUnknownNode is returned when an edge points to a node that is not registered.
	ErrUnknownNode = errors.New("unknown workflow node")

	// ErrNoEdge is returned when a node has no outgoing edge.
	ErrNoEdge = errors.New("workflow node has no outgoing edge")

	// ErrTooManySteps is returned when a walk does not reach End.
	ErrTooManySteps = errors.New("workflow did not terminate")
)

// NodeFunc runs one node. Stage failures are recorded on the state; a
// returned error aborts the walk.
type NodeFunc func(ctx context.Context, state *models.WorkflowState) error

// Router picks the next node from the state.
type Router func(state *models.WorkflowState) models.StepName

// Graph is a directed graph of nodes with static and conditional edges.
type Graph struct {
	entry       models.StepName
	nodes       map[models.StepName]NodeFunc
	edges       map[models.StepName]models.StepName
	conditional map[models.StepName]Router
}

func NewGraph(entry models.StepName) *Graph {
	return &Graph{
		entry:       entry,
		nodes:       make(map[models.StepName]NodeFunc),
		edges:       make(map[models.StepName]models.StepName),
		conditional: make(map[models.StepName]Router),
	}
}

func (g *Graph) AddNode(name models.StepName, node NodeFunc) *Graph {
	g.nodes[name] = node

	return g
}

func (g *Graph) AddEdge(from, to models.StepName) *Graph {
	g.edges[from] = to

	return g
}

func (g *Graph) AddConditionalEdge(from models.StepName, router Router) *Graph {
	g.conditional[from] = router

	return g
}

// Run walks the graph from the entry node until End, appending each
// visited node to state.Path.
func (g *Graph) Run(ctx context.Context, state *models.WorkflowState) error {
	current := g.entry

	for range maxSteps {
		if current == End {
			return nil
		}

		node, ok := g.nodes[current]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownNode, current)
		}

		state.Path = append(state.Path, current)

		if err := node(ctx, state); err != nil {
			return fmt.Errorf("node %s: %w", current, err)
		}

		next, err := g.next(current, state)
		if err != nil {
			return err
		}

		current = next
	}

	return ErrTooManySteps
}

func (g *Graph) next(current models.StepName, state *models.WorkflowState) (models.StepName, error) {
	if router, ok := g.conditional[current]; ok {
		return router(state), nil
	}

	if next, ok := g.edges[current]; ok {
		return next, nil
	}

	return "", fmt.Errorf("%w: %s", ErrNoEdge, current)
}

// continueUnless routes to next when the run has no error and ready holds,
// and to handle_error otherwise.
func continueUnless(next models.StepName, ready func(*models.WorkflowState) bool) Router {
	return func(state *models.WorkflowState) models.StepName {
		if state.Failed() || !ready(state) {
			return models.StepHandleError
		}

		return next
	}
}
