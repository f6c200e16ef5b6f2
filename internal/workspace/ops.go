package workspace

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/leefowlercu/aocxchange/internal/exchange"
	"github.com/leefowlercu/aocxchange/internal/kernel"
)

func (t *Table) modeler() (kernel.Modeler, error) {
	m, ok := t.kernel.Builder().(kernel.Modeler)
	if !ok {
		return nil, ErrNoModeler
	}
	return m, nil
}

// MakeBox adds a box named "Box".
func (t *Table) MakeBox(dx, dy, dz float64) (ID, error) {
	m, err := t.modeler()
	if err != nil {
		return 0, err
	}
	s, err := m.MakeBox(dx, dy, dz)
	if err != nil {
		return 0, fmt.Errorf("failed to make box; %w", err)
	}
	return t.AddPart(s, "Box", nil)
}

// MakeCylinder adds a cylinder named "Cylinder".
func (t *Table) MakeCylinder(r, h float64) (ID, error) {
	m, err := t.modeler()
	if err != nil {
		return 0, err
	}
	s, err := m.MakeCylinder(r, h)
	if err != nil {
		return 0, fmt.Errorf("failed to make cylinder; %w", err)
	}
	return t.AddPart(s, "Cylinder", nil)
}

// MakeSphere adds a sphere named "Sphere".
func (t *Table) MakeSphere(r float64) (ID, error) {
	m, err := t.modeler()
	if err != nil {
		return 0, err
	}
	s, err := m.MakeSphere(r)
	if err != nil {
		return 0, fmt.Errorf("failed to make sphere; %w", err)
	}
	return t.AddPart(s, "Sphere", nil)
}

// Translate derives a moved copy of part id.
func (t *Table) Translate(id ID, dx, dy, dz float64) (ID, error) {
	r, err := t.part(id)
	if err != nil {
		return 0, err
	}
	m, err := t.modeler()
	if err != nil {
		return 0, err
	}
	s, err := m.Translate(r.Shape, dx, dy, dz)
	if err != nil {
		return 0, fmt.Errorf("failed to translate part %d; %w", id, err)
	}
	return t.Derive(id, s, "")
}

// LoadSTEP imports a STEP file as an assembly named after the file, with one
// part per root shape. Colours come from the file; a part is named after its
// layer when it has one.
func (t *Table) LoadSTEP(path string) (ID, error) {
	im, err := exchange.NewSTEPImporter(path, t.exchangeOptions()...)
	if err != nil {
		return 0, err
	}
	return t.load(im, im.Styles())
}

// Load imports a file of any supported format as an assembly. STEP files
// keep their styles.
func (t *Table) Load(path string) (ID, error) {
	im, err := exchange.Open(path, t.exchangeOptions()...)
	if err != nil {
		return 0, err
	}
	var styles []kernel.Style
	if s, ok := im.(*exchange.STEPImporter); ok {
		styles = s.Styles()
	}
	return t.load(im, styles)
}

func (t *Table) load(im exchange.Imported, styles []kernel.Style) (ID, error) {
	base := filepath.Base(im.Path())
	name := strings.TrimSuffix(base, filepath.Ext(base))
	assy, err := t.AddAssembly(name, Root)
	if err != nil {
		return 0, err
	}
	for i, s := range im.Shapes() {
		partName := fmt.Sprintf("%s %d", name, i+1)
		var color *kernel.Color
		if i < len(styles) {
			if styles[i].Layer != "" {
				partName = styles[i].Layer
			}
			color = styles[i].Color
		}
		if _, err := t.AddPartTo(assy, s, partName, color); err != nil {
			return 0, fmt.Errorf("shape %d of %s; %w", i+1, base, err)
		}
	}
	t.logger.Info("file loaded", "path", im.Path(), "assembly", assy, "parts", len(im.Shapes()))
	return assy, nil
}

// SaveSTEP exports the visible parts to a STEP file, each with its colour and
// with its name as layer.
func (t *Table) SaveSTEP(path string, opts ...exchange.Option) error {
	if len(t.draw) == 0 {
		return ErrNothingVisible
	}
	ex, err := exchange.NewSTEPExporter(path, append(t.exchangeOptions(), opts...)...)
	if err != nil {
		return err
	}
	for _, id := range t.draw {
		r := t.records[id]
		c := r.Color
		if err := ex.AddStyledShape(r.Shape, kernel.Style{Color: &c, Layer: r.Name}); err != nil {
			return fmt.Errorf("part %d; %w", id, err)
		}
	}
	return ex.WriteFile()
}

// Save exports the visible parts to path in the format its extension names.
// STEP output keeps colours and names as SaveSTEP does; STL takes the
// visible parts as one compound.
func (t *Table) Save(path string, opts ...exchange.Option) error {
	f, err := exchange.FormatForPath(path)
	if err != nil {
		return err
	}
	if f == kernel.STEP {
		return t.SaveSTEP(path, opts...)
	}
	if len(t.draw) == 0 {
		return ErrNothingVisible
	}
	ex, err := exchange.Create(path, append(t.exchangeOptions(), opts...)...)
	if err != nil {
		return err
	}
	shapes := make([]kernel.Shape, len(t.draw))
	for i, id := range t.draw {
		shapes[i] = t.records[id].Shape
	}
	if f == kernel.STL && len(shapes) > 1 {
		shapes = []kernel.Shape{t.kernel.Builder().MakeCompound(shapes...)}
	}
	for _, s := range shapes {
		if err := ex.AddShape(s); err != nil {
			return err
		}
	}
	return ex.WriteFile()
}

func (t *Table) exchangeOptions() []exchange.Option {
	return []exchange.Option{exchange.WithKernel(t.kernel), exchange.WithLogger(t.logger)}
}
