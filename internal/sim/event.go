package sim

import "go.uber.org/zap"

// eventDt is the nominal frame time used when an event fires outside the
// tick loop.
const eventDt = 1.0 / 60.0

// DefaultMaxEventIterations bounds chained event processing.
const DefaultMaxEventIterations = 100

// DefineEvent binds an action list to an event name. Redefining a name
// fully replaces the prior handler.
func (s *State) DefineEvent(name string, actions []Action) {
	s.Events[name] = actions
}

// RemoveEvent deletes the handler for the event name.
func (s *State) RemoveEvent(name string) bool {
	if _, ok := s.Events[name]; !ok {
		return false
	}
	delete(s.Events, name)
	return true
}

// TriggerResult reports one event trigger.
type TriggerResult struct {
	Handled bool           `json:"handled"`
	Events  []EmittedEvent `json:"eventsEmitted,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// TriggerEvent runs the handler for the event, if any, with the supplied
// data bag. Events with no handler are silently ignored.
func (s *State) TriggerEvent(name string, data map[string]any) TriggerResult {
	actions, ok := s.Events[name]
	if !ok {
		return TriggerResult{}
	}
	if data == nil {
		data = make(map[string]any)
	}
	ctx := &ActionCtx{Data: data, Dt: eventDt}
	r := s.ExecuteActions(actions, ctx)
	if !r.Success {
		s.log.Debug("event handler failed",
			zap.String("event", name), zap.String("error", r.Error))
	}
	return TriggerResult{Handled: true, Events: r.Events, Error: r.Error}
}

// ProcessResult aggregates a ProcessEvents run.
type ProcessResult struct {
	Processed int             `json:"processed"`
	Log       []TriggerResult `json:"log,omitempty"`
}

// ProcessEvents drains a FIFO work queue of events. Handler-emitted events
// are pushed back onto the same queue, so one event can cascade into others.
// Processing stops silently after maxIterations dequeues: an unbounded emit
// cycle terminates instead of hanging the tick.
func (s *State) ProcessEvents(queue []EmittedEvent, maxIterations int) ProcessResult {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxEventIterations
	}
	pending := make([]EmittedEvent, len(queue))
	copy(pending, queue)

	out := ProcessResult{}
	for len(pending) > 0 && out.Processed < maxIterations {
		ev := pending[0]
		pending = pending[1:]
		out.Processed++

		r := s.TriggerEvent(ev.Name, ev.Data)
		if r.Handled {
			out.Log = append(out.Log, r)
		}
		pending = append(pending, r.Events...)
	}
	return out
}
