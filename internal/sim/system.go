package sim

import (
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// DefineSystem adds or replaces (by name) a system and re-sorts the list by
// phase. The sort is stable, so within a phase systems keep insertion order.
func (s *State) DefineSystem(sys System) error {
	if _, ok := phaseRank(sys.Phase); !ok {
		return fmt.Errorf("unknown phase: %s", sys.Phase)
	}
	if sys.Name == "" {
		return fmt.Errorf("system name required")
	}
	replaced := false
	for i, existing := range s.Systems {
		if existing.Name == sys.Name {
			s.Systems[i] = &sys
			replaced = true
			break
		}
	}
	if !replaced {
		s.Systems = append(s.Systems, &sys)
	}
	sort.SliceStable(s.Systems, func(i, j int) bool {
		ri, _ := phaseRank(s.Systems[i].Phase)
		rj, _ := phaseRank(s.Systems[j].Phase)
		return ri < rj
	})
	return nil
}

// RemoveSystem deletes by name.
func (s *State) RemoveSystem(name string) bool {
	for i, sys := range s.Systems {
		if sys.Name == name {
			s.Systems = append(s.Systems[:i], s.Systems[i+1:]...)
			return true
		}
	}
	return false
}

// RunResult reports one scheduler pass.
type RunResult struct {
	SystemsRun int            `json:"systemsRun"`
	Events     []EmittedEvent `json:"eventsEmitted,omitempty"`
}

// RunSystems executes every system in phase order. For each system the query
// is evaluated once, then the action list runs per matching entity with that
// entity's components bound as "entity" and the full entity reachable as
// "data.entity". An action failure aborts that entity's list only; the tick
// carries on.
func (s *State) RunSystems(dt float64, input map[string]any) RunResult {
	out := RunResult{}
	for _, sys := range s.Systems {
		for _, e := range s.GetEntities(sys.Query) {
			ctx := &ActionCtx{
				Entity: e.Components,
				Data:   map[string]any{"entity": e},
				Input:  input,
				Dt:     dt,
			}
			r := s.ExecuteActions(sys.Actions, ctx)
			out.Events = append(out.Events, r.Events...)
			if !r.Success {
				s.log.Debug("system action failed",
					zap.String("system", sys.Name),
					zap.String("entity", e.ID),
					zap.String("error", r.Error))
			}
		}
		out.SystemsRun++
	}
	return out
}
