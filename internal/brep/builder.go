package brep

import (
	"fmt"

	"github.com/leefowlercu/aocxchange/internal/kernel"
)

// Builder exposes the construction primitives through the kernel contract.
type Builder struct{}

var (
	_ kernel.Modeler   = Builder{}
	_ kernel.Inspector = Builder{}
)

// MakeCompound groups shapes. Handles from another kernel and null shapes are
// left out.
func (Builder) MakeCompound(shapes ...kernel.Shape) kernel.Shape {
	members := make([]Shape, 0, len(shapes))
	for _, s := range shapes {
		if b, ok := FromKernel(s); ok {
			members = append(members, b)
		}
	}
	return MakeCompound(members...)
}

// MakeShell assembles faces into a shell.
func (Builder) MakeShell(faces ...kernel.Shape) (kernel.Shape, error) {
	members, err := fromKernelAll(faces)
	if err != nil {
		return nil, err
	}
	shell, err := MakeShell(members...)
	if err != nil {
		return nil, err
	}
	return shell, nil
}

// MakeSolid builds a solid bounded by shell.
func (Builder) MakeSolid(shell kernel.Shape) (kernel.Shape, error) {
	s, ok := FromKernel(shell)
	if !ok {
		return nil, ErrForeignShape
	}
	solid, err := MakeSolid(s)
	if err != nil {
		return nil, err
	}
	return solid, nil
}

// Explore returns the sub-shapes of s of type t. See Explore.
func (Builder) Explore(s kernel.Shape, t kernel.ShapeType) []kernel.Shape {
	b, ok := FromKernel(s)
	if !ok {
		return nil
	}
	found := Explore(b, t)
	out := make([]kernel.Shape, len(found))
	for i, f := range found {
		out[i] = f
	}
	return out
}

// MakeBox returns a box with one corner at the origin.
func (Builder) MakeBox(dx, dy, dz float64) (kernel.Shape, error) {
	return wrap(MakeBox(dx, dy, dz))
}

// MakeCylinder returns a cylinder faceted with DefaultSegments sides.
func (Builder) MakeCylinder(r, h float64) (kernel.Shape, error) {
	return wrap(MakeCylinder(r, h, DefaultSegments))
}

// MakeSphere returns a sphere faceted with DefaultSegments meridians.
func (Builder) MakeSphere(r float64) (kernel.Shape, error) {
	return wrap(MakeSphere(r, DefaultSegments))
}

// Translate returns a moved copy of s.
func (Builder) Translate(s kernel.Shape, dx, dy, dz float64) (kernel.Shape, error) {
	b, ok := FromKernel(s)
	if !ok {
		return nil, ErrForeignShape
	}
	if b.IsNull() {
		return nil, ErrNullShape
	}
	return Translate(b, V(dx, dy, dz)), nil
}

// CountUnique counts the distinct sub-shapes of s of type t.
func (Builder) CountUnique(s kernel.Shape, t kernel.ShapeType) int {
	b, ok := FromKernel(s)
	if !ok {
		return 0
	}
	return Count(b, t)
}

// Bounds returns the bounding box of s.
func (Builder) Bounds(s kernel.Shape) (lo, hi [3]float64, ok bool) {
	b, isBrep := FromKernel(s)
	if !isBrep {
		return lo, hi, false
	}
	box := Bounds(b)
	if box.IsEmpty() {
		return lo, hi, false
	}
	return [3]float64{box.Min.X, box.Min.Y, box.Min.Z}, [3]float64{box.Max.X, box.Max.Y, box.Max.Z}, true
}

func wrap(s Shape, err error) (kernel.Shape, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}

func fromKernelAll(shapes []kernel.Shape) ([]Shape, error) {
	out := make([]Shape, len(shapes))
	for i, s := range shapes {
		b, ok := FromKernel(s)
		if !ok {
			return nil, fmt.Errorf("shape %d; %w", i, ErrForeignShape)
		}
		out[i] = b
	}
	return out, nil
}
