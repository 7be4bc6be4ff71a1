// Package popup implements the open/closed visibility state machine of a
// hover-and-click popup panel anchored to a trigger.
//
// The machine owns the lifetime of its outside-click listener: the listener is
// installed on entry to Open and removed on exit from Open or on Close.
package popup

import "sync"

type State int

const (
	Closed State = iota
	Open
)

func (s State) String() string {
	if s == Open {
		return "open"
	}
	return "closed"
}

type Event int

const (
	TriggerClick Event = iota
	TriggerEnter
	TriggerLeave
	PanelEnter
	PanelLeave
	PointerDownOutside
)

func (e Event) String() string {
	switch e {
	case TriggerClick:
		return "trigger_click"
	case TriggerEnter:
		return "trigger_enter"
	case TriggerLeave:
		return "trigger_leave"
	case PanelEnter:
		return "panel_enter"
	case PanelLeave:
		return "panel_leave"
	case PointerDownOutside:
		return "pointer_down_outside"
	default:
		return "unknown"
	}
}

// transitions is the declared table. Missing entries leave the state unchanged.
var transitions = map[State]map[Event]State{
	Closed: {
		TriggerClick: Open,
		TriggerEnter: Open,
	},
	Open: {
		TriggerClick:       Open,
		TriggerEnter:       Open,
		PanelEnter:         Open,
		TriggerLeave:       Closed,
		PanelLeave:         Closed,
		PointerDownOutside: Closed,
	},
}

// guards veto a transition out of Open. A leave only closes the popup once the
// pointer is over neither region.
var guards = map[Event]func(m *Machine) bool{
	TriggerLeave: (*Machine).pointerOutsideBoth,
	PanelLeave:   (*Machine).pointerOutsideBoth,
}

type Point struct {
	X int
	Y int
}

type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

func (r Rect) Contains(p Point) bool {
	if r.Empty() {
		return false
	}
	return p.X >= r.X && p.X < r.X+r.Width && p.Y >= r.Y && p.Y < r.Y+r.Height
}

// PointerSource delivers process-wide pointer-down events. The returned func
// removes the listener and is safe to call more than once.
type PointerSource interface {
	OnPointerDown(listener func(Point)) (remove func())
}

type Machine struct {
	source      PointerSource
	state       State
	trigger     Rect
	panel       Rect
	overTrigger bool
	overPanel   bool
	remove      func()
	closed      bool
}

func New(source PointerSource) *Machine {
	return &Machine{source: source, state: Closed}
}

func (m *Machine) State() State {
	return m.state
}

func (m *Machine) IsOpen() bool {
	return m.state == Open
}

func (m *Machine) Listening() bool {
	return m.remove != nil
}

// SetRegions records where the trigger and panel are drawn.
func (m *Machine) SetRegions(trigger, panel Rect) {
	m.trigger = trigger
	m.panel = panel
}

func (m *Machine) Regions() (Rect, Rect) {
	return m.trigger, m.panel
}

// Fire applies one event and returns the resulting state. Enter and leave
// events update the hover flags before any guard runs, so callers that report
// hover changes as events see the same behaviour as Move.
func (m *Machine) Fire(event Event) State {
	if m.closed {
		return m.state
	}
	m.track(event)
	next, ok := transitions[m.state][event]
	if !ok {
		return m.state
	}
	if guard, guarded := guards[event]; guarded && next != m.state && !guard(m) {
		return m.state
	}
	m.enter(next)
	return m.state
}

// Move tracks the pointer and fires the enter/leave events it implies. Hover
// flags are updated before any event fires so guards see the new position.
func (m *Machine) Move(p Point) State {
	inTrigger := m.trigger.Contains(p)
	inPanel := m.state == Open && m.panel.Contains(p)
	wasTrigger, wasPanel := m.overTrigger, m.overPanel
	m.overTrigger, m.overPanel = inTrigger, inPanel

	if inTrigger && !wasTrigger {
		m.Fire(TriggerEnter)
	}
	if inPanel && !wasPanel {
		m.Fire(PanelEnter)
	}
	if !inTrigger && wasTrigger {
		m.Fire(TriggerLeave)
	}
	if !inPanel && wasPanel {
		m.Fire(PanelLeave)
	}
	return m.state
}

// Click handles a primary click that landed on p. Clicks elsewhere are the
// pointer source's business.
func (m *Machine) Click(p Point) State {
	if m.trigger.Contains(p) {
		return m.Fire(TriggerClick)
	}
	return m.state
}

// Close tears the machine down. The outside listener is always removed.
func (m *Machine) Close() {
	m.exitOpen()
	m.state = Closed
	m.closed = true
}

func (m *Machine) enter(next State) {
	if next == m.state {
		return
	}
	if m.state == Open {
		m.exitOpen()
	}
	m.state = next
	if next == Open {
		m.overPanel = false
		if m.source != nil {
			m.remove = m.source.OnPointerDown(m.pointerDown)
		}
	}
}

func (m *Machine) exitOpen() {
	if m.remove != nil {
		m.remove()
		m.remove = nil
	}
	m.overPanel = false
}

func (m *Machine) pointerDown(p Point) {
	if m.trigger.Contains(p) || m.panel.Contains(p) {
		return
	}
	m.Fire(PointerDownOutside)
}

func (m *Machine) track(event Event) {
	switch event {
	case TriggerEnter:
		m.overTrigger = true
	case TriggerLeave:
		m.overTrigger = false
	case PanelEnter:
		// A hidden panel cannot be hovered.
		m.overPanel = m.state == Open
	case PanelLeave:
		m.overPanel = false
	}
}

func (m *Machine) pointerOutsideBoth() bool {
	return !m.overTrigger && !m.overPanel
}

// Dispatcher is an in-process PointerSource. UI loops feed it every
// pointer-down they observe.
type Dispatcher struct {
	mu        sync.Mutex
	nextID    int
	listeners map[int]func(Point)
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{listeners: map[int]func(Point){}}
}

func (d *Dispatcher) OnPointerDown(listener func(Point)) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.nextID
	d.nextID++
	d.listeners[id] = listener
	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			defer d.mu.Unlock()
			delete(d.listeners, id)
		})
	}
}

func (d *Dispatcher) Dispatch(p Point) {
	d.mu.Lock()
	listeners := make([]func(Point), 0, len(d.listeners))
	for _, listener := range d.listeners {
		listeners = append(listeners, listener)
	}
	d.mu.Unlock()
	for _, listener := range listeners {
		listener(p)
	}
}

func (d *Dispatcher) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.listeners)
}
