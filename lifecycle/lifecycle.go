// Package lifecycle tracks the start/stop state shared by every long-lived
// component of the service.
package lifecycle

import "sync/atomic"

type State int32

const (
	Stopped State = iota
	Starting
	Running
	Stopping
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Machine is a component's state. The zero value is Stopped.
type Machine struct {
	state atomic.Int32
}

func (m *Machine) State() State {
	return State(m.state.Load())
}

func (m *Machine) Running() bool {
	return m.State() == Running
}

// Move switches from one state to another and reports whether the component
// was in from.
func (m *Machine) Move(from, to State) bool {
	return m.state.CompareAndSwap(int32(from), int32(to))
}

// Set forces a state regardless of the current one.
func (m *Machine) Set(state State) {
	m.state.Store(int32(state))
}

// Run drives Stopped -> Starting -> Running around start. A failed start
// returns the machine to Stopped. busy is returned when the component was not
// stopped.
func (m *Machine) Run(busy error, start func() error) error {
	if !m.Move(Stopped, Starting) {
		return busy
	}

	if start != nil {
		if err := start(); err != nil {
			m.Set(Stopped)
			return err
		}
	}

	m.Set(Running)
	return nil
}

// Halt drives Running -> Stopping -> Stopped around stop. idle is returned
// when the component was not running.
func (m *Machine) Halt(idle error, stop func() error) error {
	if !m.Move(Running, Stopping) {
		return idle
	}
	defer m.Set(Stopped)

	if stop == nil {
		return nil
	}

	return stop()
}
