package sim

// StepResult reports one simulation tick.
type StepResult struct {
	Frame           int64   `json:"frame"`
	Time            float64 `json:"time"`
	SystemsRun      int     `json:"systemsRun"`
	Collisions      int     `json:"collisionsDetected"`
	EventsProcessed int     `json:"eventsProcessed"`
}

// Step advances the simulation by dt seconds: frame and time move, every
// system runs in phase order, collisions are detected, and all emitted
// events drain through the bounded router queue. This is the only operation
// that advances frame/time, and it runs to completion with no internal
// concurrency.
func (s *State) Step(dt float64, input map[string]any) StepResult {
	s.Frame++
	s.Time += dt

	rr := s.RunSystems(dt, input)
	cr := s.DetectCollisions()

	queue := make([]EmittedEvent, 0, len(rr.Events)+len(cr.Events))
	queue = append(queue, rr.Events...)
	queue = append(queue, cr.Events...)
	pr := s.ProcessEvents(queue, DefaultMaxEventIterations)

	return StepResult{
		Frame:           s.Frame,
		Time:            s.Time,
		SystemsRun:      rr.SystemsRun,
		Collisions:      cr.Collisions,
		EventsProcessed: pr.Processed,
	}
}
