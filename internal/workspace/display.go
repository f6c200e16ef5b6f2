package workspace

import (
	"slices"

	"github.com/leefowlercu/aocxchange/internal/kernel"
)

// Show puts id on display. For an assembly every part below it is shown.
func (t *Table) Show(id ID) error {
	ids, err := t.parts(id)
	if err != nil {
		return err
	}
	for _, p := range ids {
		if !slices.Contains(t.draw, p) {
			t.draw = append(t.draw, p)
		}
	}
	return nil
}

// Hide takes id off display. For an assembly every part below it is hidden.
func (t *Table) Hide(id ID) error {
	ids, err := t.parts(id)
	if err != nil {
		return err
	}
	t.draw = slices.DeleteFunc(t.draw, func(p ID) bool { return slices.Contains(ids, p) })
	return nil
}

// ShowAll displays every part, ancestors included, in creation order.
func (t *Table) ShowAll() {
	t.draw = t.draw[:0]
	for _, id := range t.order {
		if t.records[id].Kind == KindPart {
			t.draw = append(t.draw, id)
		}
	}
}

// ShowOnly displays id and nothing else.
func (t *Table) ShowOnly(id ID) error {
	ids, err := t.parts(id)
	if err != nil {
		return err
	}
	t.draw = append(t.draw[:0], ids...)
	return nil
}

// Visible returns the displayed parts in display order.
func (t *Table) Visible() []ID {
	return slices.Clone(t.draw)
}

// IsVisible reports whether part id is displayed.
func (t *Table) IsVisible(id ID) bool {
	return slices.Contains(t.draw, id)
}

// SetActive makes part id the target of subsequent operations.
func (t *Table) SetActive(id ID) error {
	if _, err := t.part(id); err != nil {
		return err
	}
	t.active = id
	return nil
}

// Active returns the active part. ok is false on an empty table.
func (t *Table) Active() (Record, bool) {
	if t.active == 0 {
		return Record{}, false
	}
	return t.Get(t.active)
}

// Rename changes the name of a part or assembly.
func (t *Table) Rename(id ID, name string) error {
	r, err := t.record(id)
	if err != nil {
		return err
	}
	r.Name = name
	return nil
}

// SetColor sets the display colour of part id.
func (t *Table) SetColor(id ID, c kernel.Color) error {
	r, err := t.part(id)
	if err != nil {
		return err
	}
	r.Color = c
	return nil
}

// SetTransparent draws part id at Transparency.
func (t *Table) SetTransparent(id ID) error {
	r, err := t.part(id)
	if err != nil {
		return err
	}
	r.Transparency = Transparency
	return nil
}

// SetOpaque clears the transparency of part id.
func (t *Table) SetOpaque(id ID) error {
	r, err := t.part(id)
	if err != nil {
		return err
	}
	r.Transparency = 0
	return nil
}
