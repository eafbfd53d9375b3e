// Package prompt implements the modal choice dialog: a prompt instance
// holds at most one outstanding show at a time, and a manager serializes
// visibility so at most one prompt is on screen across the whole process,
// in FIFO order.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Style selects how options are rendered.
type Style string

const (
	StyleRadio Style = "radio"
	StyleTiles Style = "tiles"
)

// Option is one selectable choice. Example is only rendered for radio
// prompts, Details only for tiles.
type Option struct {
	Message string
	Value   string
	Example string
	Details string
}

// Config describes a prompt instance. Options are immutable for the
// instance's lifetime. Transform, when set, is applied to the resolution
// value before it is delivered.
type Config struct {
	Title     string
	Style     Style
	Options   []Option
	Transform func(value *string) *string
}

var (
	// ErrAlreadyShowing means Show was called while a previous show on the
	// same instance is still unresolved.
	ErrAlreadyShowing = errors.New("prompt: instance already has an outstanding prompt")
	// ErrNotActive means a submit/dismiss addressed a prompt that is not
	// currently visible.
	ErrNotActive = errors.New("prompt: prompt is not active")
)

// Prompt is a reusable modal dialog instance.
type Prompt struct {
	id       string
	cfg      Config
	mgr      *Manager
	renderer renderer

	mu      sync.Mutex
	pending *Pending
	view    renderState
}

// New validates the configuration and creates a prompt bound to the
// manager. Invalid style or an empty options list is a configuration
// error, reported immediately.
func New(mgr *Manager, cfg Config) (*Prompt, error) {
	var r renderer
	switch cfg.Style {
	case StyleRadio:
		r = radioRenderer{}
	case StyleTiles:
		r = tilesRenderer{}
	default:
		return nil, fmt.Errorf("prompt: invalid style %q", cfg.Style)
	}
	if len(cfg.Options) == 0 {
		return nil, errors.New("prompt: options must not be empty")
	}
	return &Prompt{
		id:       uuid.NewString(),
		cfg:      cfg,
		mgr:      mgr,
		renderer: r,
		view:     uncompiled{},
	}, nil
}

// ID returns the prompt's stable identifier, used by the submit/dismiss
// endpoints.
func (p *Prompt) ID() string { return p.id }

// Pending is the one-shot future for a single show. It resolves to the
// selected value on submit or nil on dismissal.
type Pending struct {
	p    *Prompt
	once sync.Once
	ch   chan *string
}

// Await blocks until the prompt is resolved or ctx expires.
func (pd *Pending) Await(ctx context.Context) (*string, error) {
	select {
	case v := <-pd.ch:
		return v, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// resolve delivers the value exactly once, clears the instance's pending
// state so it can be shown again, and advances the manager queue.
func (pd *Pending) resolve(value *string) {
	pd.once.Do(func() {
		if pd.p.cfg.Transform != nil {
			value = pd.p.cfg.Transform(value)
		}
		pd.p.mu.Lock()
		pd.p.pending = nil
		pd.p.mu.Unlock()
		pd.p.mgr.remove(pd.p)
		pd.ch <- value
	})
}

// Show enqueues the prompt for display and returns its future. It fails if
// this instance already has an outstanding prompt.
func (p *Prompt) Show() (*Pending, error) {
	p.mu.Lock()
	if p.pending != nil {
		p.mu.Unlock()
		return nil, ErrAlreadyShowing
	}
	pd := &Pending{p: p, ch: make(chan *string, 1)}
	p.pending = pd
	p.mu.Unlock()

	p.mgr.enqueue(p)
	return pd, nil
}

// validValue reports whether v matches one of the configured options.
func (p *Prompt) validValue(v string) bool {
	for _, opt := range p.cfg.Options {
		if opt.Value == v {
			return true
		}
	}
	return false
}

// Manager owns the process-wide FIFO prompt queue. The prompt at the front
// of the queue is the only visible one.
type Manager struct {
	mu    sync.Mutex
	queue []*Prompt
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{}
}

func (m *Manager) enqueue(p *Prompt) {
	m.mu.Lock()
	m.queue = append(m.queue, p)
	m.mu.Unlock()
}

func (m *Manager) remove(p *Prompt) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, q := range m.queue {
		if q == p {
			m.queue = append(m.queue[:i], m.queue[i+1:]...)
			return
		}
	}
}

// Active returns the currently visible prompt, or nil.
func (m *Manager) Active() *Prompt {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.queue) == 0 {
		return nil
	}
	return m.queue[0]
}

// active pending of the prompt with the given id, if it is the visible one.
func (m *Manager) activePending(promptID string) (*Prompt, *Pending, error) {
	p := m.Active()
	if p == nil || p.id != promptID {
		return nil, nil, ErrNotActive
	}
	p.mu.Lock()
	pd := p.pending
	p.mu.Unlock()
	if pd == nil {
		return nil, nil, ErrNotActive
	}
	return p, pd, nil
}

// Submit resolves the visible prompt with the selected option value.
func (m *Manager) Submit(promptID, value string) error {
	p, pd, err := m.activePending(promptID)
	if err != nil {
		return err
	}
	if !p.validValue(value) {
		return fmt.Errorf("prompt: %q is not a configured option", value)
	}
	pd.resolve(&value)
	return nil
}

// Dismiss resolves the visible prompt with nil. Close, outside click and
// Escape all land here.
func (m *Manager) Dismiss(promptID string) error {
	_, pd, err := m.activePending(promptID)
	if err != nil {
		return err
	}
	pd.resolve(nil)
	return nil
}
