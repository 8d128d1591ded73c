package excel

import (
	"context"
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	"qaebench/domain/estimation"
	"qaebench/ports"
)

// IndexSheet lists the stored labels in registry order.
const IndexSheet = "labels"

var indexHeader = []interface{}{"label", "sheet", "points", "has_stds", "has_bounds"}

var curveHeader = []interface{}{"x", "error", "std", "bound"}

// RegistryStore saves registries as xlsx workbooks: an index sheet plus one
// sheet per curve. Floats are written in their shortest exact form and read
// back raw, so a round trip is lossless.
type RegistryStore struct{}

// NewRegistryStore creates an xlsx registry store.
func NewRegistryStore() ports.RegistryStore {
	return RegistryStore{}
}

// curveSheet names the sheet of the i-th curve. Labels are not used
// directly because sheet names are limited in length and characters.
func curveSheet(i int) string {
	return fmt.Sprintf("curve_%d", i+1)
}

// Save writes reg to path, replacing any existing file.
func (RegistryStore) Save(ctx context.Context, path string, reg estimation.Registry) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), IndexSheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(IndexSheet, "A1", &indexHeader); err != nil {
		return err
	}

	for i, c := range reg.Curves() {
		if err := ctx.Err(); err != nil {
			return err
		}
		sheet := curveSheet(i)
		row := []interface{}{c.Label, sheet, len(c.X), c.Stds != nil, c.Bounds != nil}
		if err := f.SetSheetRow(IndexSheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return err
		}
		if err := writeCurve(f, sheet, c); err != nil {
			return fmt.Errorf("writing %q: %w", c.Label, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}

func writeCurve(f *excelize.File, sheet string, c estimation.Curve) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, "A1", &curveHeader); err != nil {
		return err
	}
	columns := []struct {
		name   string
		values []float64
	}{
		{"A", c.X},
		{"B", c.Errors},
		{"C", c.Stds},
		{"D", c.Bounds},
	}
	for _, col := range columns {
		for i, v := range col.values {
			if err := f.SetCellFloat(sheet, fmt.Sprintf("%s%d", col.name, i+2), v, -1, 64); err != nil {
				return err
			}
		}
	}
	return nil
}

// Load reads a workbook written by Save.
func (RegistryStore) Load(ctx context.Context, path string) (estimation.Registry, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return estimation.Registry{}, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer f.Close()

	index, err := f.GetRows(IndexSheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return estimation.Registry{}, fmt.Errorf("failed to read %s sheet: %w", IndexSheet, err)
	}

	reg := estimation.NewRegistry()
	for i, row := range index {
		if i == 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return estimation.Registry{}, err
		}
		if len(row) < len(indexHeader) {
			return estimation.Registry{}, fmt.Errorf("%s row %d: expected %d cells, got %d", IndexSheet, i+1, len(indexHeader), len(row))
		}
		entry, err := parseIndexRow(row)
		if err != nil {
			return estimation.Registry{}, fmt.Errorf("%s row %d: %w", IndexSheet, i+1, err)
		}
		c, err := readCurve(f, entry)
		if err != nil {
			return estimation.Registry{}, fmt.Errorf("reading %q: %w", entry.label, err)
		}
		if reg, err = reg.AddCurve(c); err != nil {
			return estimation.Registry{}, err
		}
	}
	return reg, nil
}

type indexEntry struct {
	label     string
	sheet     string
	points    int
	hasStds   bool
	hasBounds bool
}

func parseIndexRow(row []string) (indexEntry, error) {
	points, err := strconv.Atoi(row[2])
	if err != nil {
		return indexEntry{}, fmt.Errorf("invalid point count %q", row[2])
	}
	hasStds, err := strconv.ParseBool(row[3])
	if err != nil {
		return indexEntry{}, fmt.Errorf("invalid has_stds %q", row[3])
	}
	hasBounds, err := strconv.ParseBool(row[4])
	if err != nil {
		return indexEntry{}, fmt.Errorf("invalid has_bounds %q", row[4])
	}
	return indexEntry{label: row[0], sheet: row[1], points: points, hasStds: hasStds, hasBounds: hasBounds}, nil
}

func readCurve(f *excelize.File, e indexEntry) (estimation.Curve, error) {
	rows, err := f.GetRows(e.sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return estimation.Curve{}, err
	}
	if len(rows)-1 != e.points {
		return estimation.Curve{}, fmt.Errorf("sheet %s: expected %d points, found %d", e.sheet, e.points, len(rows)-1)
	}

	c := estimation.Curve{
		Label:  e.label,
		X:      make([]float64, e.points),
		Errors: make([]float64, e.points),
	}
	if e.hasStds {
		c.Stds = make([]float64, e.points)
	}
	if e.hasBounds {
		c.Bounds = make([]float64, e.points)
	}

	for i, row := range rows[1:] {
		targets := [][]float64{c.X, c.Errors, c.Stds, c.Bounds}
		for col, dst := range targets {
			if dst == nil {
				continue
			}
			if col >= len(row) || row[col] == "" {
				return estimation.Curve{}, fmt.Errorf("sheet %s row %d: missing %s", e.sheet, i+2, curveHeader[col])
			}
			v, err := strconv.ParseFloat(row[col], 64)
			if err != nil {
				return estimation.Curve{}, fmt.Errorf("sheet %s row %d: invalid %s %q", e.sheet, i+2, curveHeader[col], row[col])
			}
			dst[i] = v
		}
	}
	return c, nil
}
