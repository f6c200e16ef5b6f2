// Package workspace keeps the part table of an interactive modelling
// session: parts and assemblies keyed by a serial id, the set of parts on
// display and the active part. Deriving a part from another keeps the
// ancestor in the table but takes it off the display.
//
// A Table is owned by one goroutine; it does no locking.
package workspace

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"

	"github.com/leefowlercu/aocxchange/internal/exchange"
	"github.com/leefowlercu/aocxchange/internal/kernel"
	"github.com/leefowlercu/aocxchange/internal/kernel/reference"
)

var (
	ErrNotFound       = errors.New("no such record")
	ErrNotPart        = errors.New("record is an assembly, not a part")
	ErrNotAssembly    = errors.New("record is not an assembly")
	ErrNothingVisible = errors.New("no part is visible")
	ErrNoModeler      = errors.New("kernel builder cannot make primitives")
)

// ID is a record serial number. Zero is the table root.
type ID int

// Root is the implicit top-level assembly.
const Root ID = 0

// Kind tells parts from assemblies.
type Kind int

const (
	KindPart Kind = iota + 1
	KindAssembly
)

func (k Kind) String() string {
	switch k {
	case KindPart:
		return "part"
	case KindAssembly:
		return "assembly"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Display defaults.
const (
	DefaultPartName = "Part"
	Transparency    = 0.6
)

// DefaultColor is given to parts created without one.
var DefaultColor = kernel.Color{R: 0.2, G: 0.1, B: 0.1}

// Record is one row of the table. Assemblies have no shape.
type Record struct {
	ID           ID
	UUID         uuid.UUID
	Kind         Kind
	Name         string
	Shape        kernel.Shape
	Color        kernel.Color
	Transparency float64
	Ancestor     ID
	Parent       ID
}

// Table is the part table.
type Table struct {
	kernel  kernel.Kernel
	logger  *slog.Logger
	records map[ID]*Record
	order   []ID
	last    ID
	draw    []ID
	active  ID
}

// Option configures a Table.
type Option func(*Table)

// WithKernel sets the kernel used for primitives and file exchange.
func WithKernel(k kernel.Kernel) Option {
	return func(t *Table) {
		t.kernel = k
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Table) {
		t.logger = logger
	}
}

// New returns an empty table.
func New(opts ...Option) *Table {
	t := &Table{
		kernel:  reference.New(),
		logger:  slog.Default(),
		records: make(map[ID]*Record),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Table) insert(r *Record) ID {
	t.last++
	r.ID = t.last
	r.UUID = uuid.New()
	t.records[r.ID] = r
	t.order = append(t.order, r.ID)
	return r.ID
}

// AddPart records shape as a new top-level part. The part becomes active and
// visible. An empty name becomes DefaultPartName, a nil color DefaultColor.
func (t *Table) AddPart(shape kernel.Shape, name string, color *kernel.Color) (ID, error) {
	return t.AddPartTo(Root, shape, name, color)
}

// AddPartTo is AddPart below assembly parent.
func (t *Table) AddPartTo(parent ID, shape kernel.Shape, name string, color *kernel.Color) (ID, error) {
	if err := exchange.CheckShape(shape); err != nil {
		return 0, err
	}
	if err := t.checkAssembly(parent); err != nil {
		return 0, err
	}
	if name == "" {
		name = DefaultPartName
	}
	c := DefaultColor
	if color != nil {
		c = *color
	}
	id := t.insert(&Record{Kind: KindPart, Name: name, Shape: shape, Color: c, Parent: parent})
	t.draw = append(t.draw, id)
	t.active = id
	t.logger.Debug("part added", "id", id, "name", name)
	return id, nil
}

// Derive records shape as the result of an operation on ancestor. The
// ancestor stays in the table but leaves the display; the new part takes its
// place under the same parent, inherits its colour, and by default its name.
func (t *Table) Derive(ancestor ID, shape kernel.Shape, name string) (ID, error) {
	anc, err := t.part(ancestor)
	if err != nil {
		return 0, err
	}
	if err := exchange.CheckShape(shape); err != nil {
		return 0, err
	}
	if name == "" {
		name = anc.Name
	}
	t.draw = slices.DeleteFunc(t.draw, func(id ID) bool { return id == ancestor })
	id := t.insert(&Record{
		Kind:     KindPart,
		Name:     name,
		Shape:    shape,
		Color:    anc.Color,
		Ancestor: ancestor,
		Parent:   anc.Parent,
	})
	t.draw = append(t.draw, id)
	t.active = id
	t.logger.Debug("part derived", "id", id, "ancestor", ancestor, "name", name)
	return id, nil
}

// AddAssembly records an empty assembly below parent.
func (t *Table) AddAssembly(name string, parent ID) (ID, error) {
	if err := t.checkAssembly(parent); err != nil {
		return 0, err
	}
	return t.insert(&Record{Kind: KindAssembly, Name: name, Parent: parent}), nil
}

// Get returns a copy of record id.
func (t *Table) Get(id ID) (Record, bool) {
	r, ok := t.records[id]
	if !ok {
		return Record{}, false
	}
	return *r, true
}

// Len returns the number of records.
func (t *Table) Len() int {
	return len(t.order)
}

// Records returns copies of every record in creation order.
func (t *Table) Records() []Record {
	out := make([]Record, len(t.order))
	for i, id := range t.order {
		out[i] = *t.records[id]
	}
	return out
}

// Children returns the direct members of assembly id in creation order.
func (t *Table) Children(id ID) []ID {
	var out []ID
	for _, c := range t.order {
		if t.records[c].Parent == id {
			out = append(out, c)
		}
	}
	return out
}

// PartsInAssembly returns the parts anywhere below assembly id in creation
// order.
func (t *Table) PartsInAssembly(id ID) ([]ID, error) {
	if err := t.checkAssembly(id); err != nil {
		return nil, err
	}
	var out []ID
	for _, c := range t.order {
		if r := t.records[c]; r.Kind == KindPart && t.within(c, id) {
			out = append(out, c)
		}
	}
	return out, nil
}

// within reports whether assembly a is an ancestor of id. Parents always
// precede their members, so the chain ends at Root.
func (t *Table) within(id, a ID) bool {
	for p := t.records[id].Parent; ; p = t.records[p].Parent {
		if p == a {
			return true
		}
		if p == Root {
			return false
		}
	}
}

func (t *Table) record(id ID) (*Record, error) {
	r, ok := t.records[id]
	if !ok {
		return nil, fmt.Errorf("id %d; %w", id, ErrNotFound)
	}
	return r, nil
}

func (t *Table) checkAssembly(id ID) error {
	if id == Root {
		return nil
	}
	r, ok := t.records[id]
	if !ok {
		return fmt.Errorf("id %d; %w", id, ErrNotFound)
	}
	if r.Kind != KindAssembly {
		return fmt.Errorf("id %d; %w", id, ErrNotAssembly)
	}
	return nil
}

// parts resolves id to the parts it stands for: itself, or every part below
// an assembly.
func (t *Table) parts(id ID) ([]ID, error) {
	r, err := t.record(id)
	if err != nil {
		return nil, err
	}
	if r.Kind == KindPart {
		return []ID{id}, nil
	}
	return t.PartsInAssembly(id)
}
