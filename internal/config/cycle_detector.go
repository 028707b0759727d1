package config

import "sort"

// detectCycle reports one dependency cycle among the enabled steps, as the
// step IDs along the loop with the entry step repeated at the end. Returns
// nil when the dependency graph is acyclic. Disabled steps and edges to
// disabled steps are ignored; they never execute, so they cannot deadlock
// the plan.
func detectCycle(steps []Step) []string {
	deps := make(map[string][]string, len(steps))
	for _, step := range steps {
		if step.Enabled {
			deps[step.ID] = nil
		}
	}
	for _, step := range steps {
		if _, on := deps[step.ID]; !on {
			continue
		}
		for _, dep := range step.DependsOn {
			if _, on := deps[dep]; on {
				deps[step.ID] = append(deps[step.ID], dep)
			}
		}
	}

	// Peel away steps with no pending dependencies. Whatever survives is
	// either on a cycle or depends on one.
	pending := make(map[string]int, len(deps))
	dependents := make(map[string][]string, len(deps))
	for id, ds := range deps {
		pending[id] = len(ds)
		for _, dep := range ds {
			dependents[dep] = append(dependents[dep], id)
		}
	}

	queue := make([]string, 0, len(pending))
	for id, n := range pending {
		if n == 0 {
			queue = append(queue, id)
		}
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, dependent := range dependents[id] {
			pending[dependent]--
			if pending[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
		delete(pending, id)
	}

	if len(pending) == 0 {
		return nil
	}

	// Walk dependency edges inside the surviving set until a step repeats;
	// the segment from its first occurrence onward is the loop. Start from
	// the smallest ID so the reported cycle is deterministic.
	start := ""
	for id := range pending {
		if start == "" || id < start {
			start = id
		}
	}

	seenAt := map[string]int{}
	var path []string
	node := start
	for {
		if at, seen := seenAt[node]; seen {
			cycle := append([]string{}, path[at:]...)
			return append(cycle, node)
		}
		seenAt[node] = len(path)
		path = append(path, node)
		node = nextInCycle(deps[node], pending)
	}
}

// nextInCycle picks the first surviving dependency, in sorted order so the
// walk is stable.
func nextInCycle(candidates []string, surviving map[string]int) string {
	sorted := append([]string(nil), candidates...)
	sort.Strings(sorted)
	for _, dep := range sorted {
		if _, on := surviving[dep]; on {
			return dep
		}
	}
	return ""
}
