// Package eval implements constant evaluation of expressions against a
// mutable evaluation context.
package eval

import (
	"sort"

	"go.uber.org/zap"

	"github.com/gnoswap-labs/unroll/internal/ast"
	"github.com/gnoswap-labs/unroll/internal/constant"
)

// DefaultMaxSteps bounds the constant-evaluation work of one walk.
const DefaultMaxSteps = 100000

// Slot holds the current value of a bound local variable.
type Slot struct {
	value constant.Value
}

// Get returns the value held by the slot.
func (s *Slot) Get() constant.Value { return s.value }

// Set overwrites the value held by the slot.
func (s *Slot) Set(v constant.Value) { s.value = v }

// Binding is a snapshot of one local binding.
type Binding struct {
	Var   *ast.Variable
	Value constant.Value
}

// Frame is an ordered set of local bindings.
type Frame struct {
	slots map[*ast.Variable]*Slot
	order []*ast.Variable
}

func newFrame() *Frame {
	return &Frame{slots: make(map[*ast.Variable]*Slot)}
}

func (f *Frame) bind(v *ast.Variable, init constant.Value) *Slot {
	if _, ok := f.slots[v]; !ok {
		f.order = append(f.order, v)
	}
	s := &Slot{value: init}
	f.slots[v] = s
	return s
}

func (f *Frame) unbind(v *ast.Variable) {
	if _, ok := f.slots[v]; !ok {
		return
	}
	delete(f.slots, v)
	for i, o := range f.order {
		if o == v {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
}

// Context is the state threaded through constant evaluation: a stack of
// frames and a step budget shared by the whole walk.
type Context struct {
	frames    []*Frame
	steps     int
	maxSteps  int
	exhausted bool
	exhaustAt ast.Location
	logger    *zap.Logger

	// parameter values, computed on first use
	params  map[*ast.Parameter]constant.Value
	pending map[*ast.Parameter]bool
}

// Option configures a Context.
type Option func(*Context)

// WithMaxSteps sets the step budget. Non-positive values keep the default.
func WithMaxSteps(n int) Option {
	return func(c *Context) {
		if n > 0 {
			c.maxSteps = n
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Context) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewContext creates a context with no frames.
func NewContext(opts ...Option) *Context {
	c := &Context{
		maxSteps: DefaultMaxSteps,
		logger:   zap.NewNop(),
		params:   make(map[*ast.Parameter]constant.Value),
		pending:  make(map[*ast.Parameter]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PushEmptyFrame pushes a frame with no bindings.
func (c *Context) PushEmptyFrame() {
	c.frames = append(c.frames, newFrame())
}

// PopFrame discards the top frame and all of its bindings.
func (c *Context) PopFrame() {
	if len(c.frames) == 0 {
		return
	}
	c.frames = c.frames[:len(c.frames)-1]
}

// Depth returns the number of frames on the stack.
func (c *Context) Depth() int { return len(c.frames) }

func (c *Context) top() *Frame {
	if len(c.frames) == 0 {
		c.PushEmptyFrame()
	}
	return c.frames[len(c.frames)-1]
}

// CreateLocal binds v in the top frame to a fresh slot holding init and
// returns the slot. Binding an already bound variable replaces its slot.
func (c *Context) CreateLocal(v *ast.Variable, init constant.Value) *Slot {
	return c.top().bind(v, init)
}

// DeleteLocal removes the binding of v from the top frame, if any.
func (c *Context) DeleteLocal(v *ast.Variable) {
	if len(c.frames) == 0 {
		return
	}
	c.top().unbind(v)
}

// FindLocal returns the slot bound to v in the top frame.
func (c *Context) FindLocal(v *ast.Variable) (*Slot, bool) {
	if len(c.frames) == 0 {
		return nil, false
	}
	s, ok := c.top().slots[v]
	return s, ok
}

// Locals returns the bindings of the top frame in binding order.
func (c *Context) Locals() []Binding {
	if len(c.frames) == 0 {
		return nil
	}
	f := c.top()
	out := make([]Binding, 0, len(f.order))
	for _, v := range f.order {
		out = append(out, Binding{Var: v, Value: f.slots[v].value})
	}
	return out
}

// SortedLocals returns the top-frame bindings ordered by variable name.
func (c *Context) SortedLocals() []Binding {
	out := c.Locals()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Var.Name < out[j].Var.Name
	})
	return out
}

// Step consumes one unit of budget. It returns false once the budget is
// exhausted and keeps returning false from then on.
func (c *Context) Step(loc ast.Location) bool {
	if c.exhausted {
		return false
	}
	if c.steps >= c.maxSteps {
		c.exhausted = true
		c.exhaustAt = loc
		c.logger.Debug("evaluation step limit reached",
			zap.Int("max_steps", c.maxSteps),
			zap.Stringer("location", loc))
		return false
	}
	c.steps++
	return true
}

// StepsUsed returns the number of steps consumed so far.
func (c *Context) StepsUsed() int { return c.steps }

// MaxSteps returns the step budget.
func (c *Context) MaxSteps() int { return c.maxSteps }

// Exhausted reports whether the budget ran out and where.
func (c *Context) Exhausted() (ast.Location, bool) {
	return c.exhaustAt, c.exhausted
}
