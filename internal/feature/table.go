package feature

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"github.com/twpayne/go-geom/encoding/wkt"
)

// geometryColumn is the trailing WKT column in tabular exports.
const geometryColumn = "geometry"

// tableRows flattens the collection into a header and string rows.
func tableRows(c *Collection) ([]string, [][]string, error) {
	cols := c.Columns()
	header := append(append([]string{"id"}, cols...), geometryColumn)

	rows := make([][]string, 0, len(c.Features))
	for i, f := range c.Features {
		row := make([]string, 0, len(header))
		row = append(row, f.ID)
		for _, col := range cols {
			row = append(row, formatValue(f.Properties[col]))
		}
		var g string
		if f.Geometry != nil {
			s, err := wkt.Marshal(f.Geometry)
			if err != nil {
				return nil, nil, eris.Wrapf(err, "table: encode geometry for feature %d", i)
			}
			g = s
		}
		rows = append(rows, append(row, g))
	}
	return header, rows, nil
}

// WriteCSV writes attributes plus a WKT geometry column.
func WriteCSV(w io.Writer, c *Collection) error {
	header, rows, err := tableRows(c)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "csv: write header")
	}
	if err := cw.WriteAll(rows); err != nil {
		return eris.Wrap(err, "csv: write rows")
	}
	return nil
}

// WriteXLSX writes attributes plus a WKT geometry column to a single sheet.
// Numeric attributes are stored as numbers.
func WriteXLSX(path string, c *Collection) error {
	cols := c.Columns()
	header, rows, err := tableRows(c)
	if err != nil {
		return err
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("features")
	if err != nil {
		return eris.Wrap(err, "xlsx: add sheet")
	}

	hr := sheet.AddRow()
	for _, h := range header {
		hr.AddCell().SetString(h)
	}

	for i, row := range rows {
		r := sheet.AddRow()
		for j, val := range row {
			cell := r.AddCell()
			// Columns between id and geometry map onto cols.
			if j > 0 && j <= len(cols) {
				if n, ok := nativeNumber(c.Features[i].Properties[cols[j-1]]); ok {
					cell.SetFloat(n)
					continue
				}
			}
			cell.SetString(val)
		}
	}

	if err := file.Save(path); err != nil {
		return eris.Wrapf(err, "xlsx: save %s", path)
	}
	return nil
}

// nativeNumber is toFloat without string parsing, so text codes such as zip
// codes stay text in spreadsheets.
func nativeNumber(v any) (float64, bool) {
	if _, ok := v.(string); ok {
		return 0, false
	}
	return toFloat(v)
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return fmt.Sprintf("%g", x)
	}
	return fmt.Sprint(v)
}
