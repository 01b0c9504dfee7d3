package core

import (
	"fmt"
	"sort"
	"strings"

	"github.com/san-kum/boxclim/internal/dynamo"
)

// topoSort orders nodes so every edge from -> to places from first. Ready
// nodes are taken in name order. A cycle is an error naming the nodes left.
func topoSort(nodes []string, edges map[string][]string) ([]string, error) {
	inDegree := make(map[string]int, len(nodes))
	for _, n := range nodes {
		inDegree[n] = 0
	}
	for from, tos := range edges {
		if _, ok := inDegree[from]; !ok {
			continue
		}
		for _, to := range tos {
			if _, ok := inDegree[to]; ok {
				inDegree[to]++
			}
		}
	}

	ready := make([]string, 0, len(nodes))
	for n, d := range inDegree {
		if d == 0 {
			ready = append(ready, n)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(nodes))
	for len(ready) > 0 {
		node := ready[0]
		ready = ready[1:]
		order = append(order, node)

		var next []string
		for _, to := range edges[node] {
			if _, ok := inDegree[to]; !ok {
				continue
			}
			inDegree[to]--
			if inDegree[to] == 0 {
				next = append(next, to)
			}
		}
		if len(next) > 0 {
			ready = append(ready, next...)
			sort.Strings(ready)
		}
	}

	if len(order) != len(nodes) {
		var stuck []string
		for n, d := range inDegree {
			if d > 0 {
				stuck = append(stuck, n)
			}
		}
		sort.Strings(stuck)
		return nil, fmt.Errorf("%w: %s", dynamo.ErrCyclicDependency, strings.Join(stuck, ", "))
	}
	return order, nil
}
