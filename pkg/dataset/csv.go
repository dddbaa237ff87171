package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/exchequer/exchequer/pkg/model"
)

// ExportCSV writes the named variables over [start, end] as CSV: one row
// per quarter, first column the period, remaining columns the variables in
// the given order. A quarter/variable combination without a value is left
// empty.
func ExportCSV(w io.Writer, st *model.ModelState, variables []string, start, end model.Period) error {
	cw := csv.NewWriter(w)

	header := append([]string{"period"}, variables...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for p := start; !p.After(end); p = p.Next() {
		row := make([]string, 0, len(header))
		row = append(row, p.String())
		for _, name := range variables {
			v, err := st.Value(name, p)
			if err != nil {
				row = append(row, "")
				continue
			}
			row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row for %s: %w", p, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ImportCSV reads series in the ExportCSV layout into st, declaring any
// unknown variable with the kind given in kinds (endogenous when absent).
// Empty cells are skipped.
func ImportCSV(r io.Reader, st *model.ModelState, kinds map[string]model.VariableKind) error {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err != nil {
		return fmt.Errorf("failed to read csv header: %w", err)
	}
	if len(header) < 2 || header[0] != "period" {
		return fmt.Errorf("invalid csv header: first column must be period")
	}

	series := make([]*model.VariableSeries, len(header))
	for i, name := range header[1:] {
		kind := model.Endogenous
		if k, ok := kinds[name]; ok {
			kind = k
		}
		series[i+1] = st.Declare(name, kind)
	}

	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read csv row: %w", err)
		}
		p, err := model.ParsePeriod(row[0])
		if err != nil {
			return fmt.Errorf("invalid period in csv: %w", err)
		}
		for i := 1; i < len(row) && i < len(series); i++ {
			if row[i] == "" {
				continue
			}
			v, err := strconv.ParseFloat(row[i], 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s at %s: %w", header[i], p, err)
			}
			series[i].Set(p, v)
		}
	}
	return nil
}
