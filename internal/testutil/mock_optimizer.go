package testutil

import (
	"context"
	"sync"

	"route-logger/internal/directions"
	"route-logger/internal/models"
)

// MockOptimizer returns a fixed optimization or error and records submitted waypoints
type MockOptimizer struct {
	mu     sync.Mutex
	Result *directions.Optimization
	Err    error
	Calls  [][]models.Coordinates
}

func NewMockOptimizer(order []int, legs []models.RouteLeg) *MockOptimizer {
	return &MockOptimizer{Result: &directions.Optimization{Order: order, Legs: legs}}
}

func (m *MockOptimizer) Name() string { return "mock" }

// CallCount returns how many optimizations were requested
func (m *MockOptimizer) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

func (m *MockOptimizer) Optimize(ctx context.Context, points []models.Coordinates) (*directions.Optimization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	submitted := make([]models.Coordinates, len(points))
	copy(submitted, points)
	m.Calls = append(m.Calls, submitted)

	if m.Err != nil {
		return nil, m.Err
	}
	return m.Result, nil
}
