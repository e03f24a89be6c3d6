package services

import (
	"errors"
	"fmt"
	"matrix-routing-client/internal/domain"
)

// Represents a visiting order over the points of a square matrix.
type Tour struct {
	Order []int `json:"order"`
	// Sum of the matrix entries along Order.
	TotalCost float64 `json:"total_cost"`
	// Points left out because no reachable leg led to them.
	Unreachable []int `json:"unreachable,omitempty"`
}

// Build a visiting order using a greedy nearest-neighbor step.
//
// Starting at start, the next point is the one with the cheapest leg from the
// current point; ties go to the lower index. Legs marked unreachable are never
// taken. The result is deterministic but not globally optimal.
func NearestNeighborOrder(costs [][]float64, start int, returnToStart bool) (*Tour, error) {
	n := len(costs)
	if n == 0 {
		return nil, errors.New("nearest neighbor: matrix must not be empty")
	}
	for i, row := range costs {
		if len(row) != n {
			return nil, fmt.Errorf("nearest neighbor: matrix must be square, row %d has %d columns, want %d", i, len(row), n)
		}
	}
	if start < 0 || start >= n {
		return nil, fmt.Errorf("nearest neighbor: start %d out of range [0, %d)", start, n)
	}

	visited := make([]bool, n)
	visited[start] = true

	tour := &Tour{Order: []int{start}}
	current := start

	for len(tour.Order) < n {
		best := -1
		var bestCost float64

		for j := range n {
			if visited[j] {
				continue
			}
			c := costs[current][j]
			if c == domain.Unreachable {
				continue
			}
			if best == -1 || c < bestCost {
				best, bestCost = j, c
			}
		}

		if best == -1 {
			break
		}

		visited[best] = true
		tour.Order = append(tour.Order, best)
		tour.TotalCost += bestCost
		current = best
	}

	for j := range n {
		if !visited[j] {
			tour.Unreachable = append(tour.Unreachable, j)
		}
	}

	// Optionally includes return leg to the start point.
	if returnToStart && current != start {
		back := costs[current][start]
		if back == domain.Unreachable {
			return nil, fmt.Errorf("nearest neighbor: return leg from %d to %d is unreachable", current, start)
		}
		tour.Order = append(tour.Order, start)
		tour.TotalCost += back
	}

	return tour, nil
}
