// Copyright 2024 CamiloSR

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     http://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package table

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/iterator"
	"github.com/stockparfait/logging"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Value is an arbitrary value of a table cell. A nil Value marks a cell as
// absent from its record.
type Value interface{}

// Record is a single table row, a mapping from column keys to cell values.
// Records are schemaless: each record may carry an arbitrary subset of the
// table's columns.
type Record map[string]Value

// Table is a container for schemaless records with an explicitly maintained
// column set, the union of all keys seen across its records.
//
// A typical use:
//
//	t := New("id", "name")
//	t.AddRecord(Record{"id": "a1", "name": "first"})
//	t.AddRecord(Record{"id": "a2", "quantity": 5.0})
//	t.Columns() // ["id", "name", "quantity"]
type Table struct {
	columns []string
	known   map[string]bool
	rows    []Record
}

// New creates a new Table instance with optional seed columns, typically the
// field keys from the table's schema. Keys not seeded here are appended to the
// column set as records carrying them are added.
func New(columns ...string) *Table {
	t := &Table{known: make(map[string]bool)}
	t.addColumns(columns)
	return t
}

func (t *Table) addColumns(cols []string) {
	for _, c := range cols {
		if !t.known[c] {
			t.known[c] = true
			t.columns = append(t.columns, c)
		}
	}
}

// AddRecord adds one or more records to the table, extending the column set
// with keys not yet seen. Since Go map iteration order is random, the new keys
// of each record are appended in sorted order to keep the column order
// deterministic.
func (t *Table) AddRecord(recs ...Record) {
	for _, r := range recs {
		keys := maps.Keys(r)
		slices.Sort(keys)
		t.addColumns(keys)
		t.rows = append(t.rows, r)
	}
}

// Columns returns a copy of the current column set, in order.
func (t *Table) Columns() []string {
	return slices.Clone(t.columns)
}

// NumRows returns the number of records in the table.
func (t *Table) NumRows() int { return len(t.rows) }

// Row returns the i'th record as stored, without filling in absent columns.
func (t *Table) Row(i int) Record { return t.rows[i] }

// Values returns the cells of the i'th row aligned with Columns(). Cells
// absent from the record are nil.
func (t *Table) Values(i int) []Value {
	vals := make([]Value, len(t.columns))
	for j, c := range t.columns {
		vals[j] = t.rows[i][c]
	}
	return vals
}

// Records iterates over all records in the order they were added.
func (t *Table) Records() iterator.Iterator[Record] {
	return iterator.FromSlice(t.rows)
}

// Rename substitutes column keys according to mapping, in both the column set
// and the records. The substitution is simultaneous: it operates on the
// original keys only, so applying the same mapping twice does not rename
// anything twice. Columns without a mapping entry are left unchanged. The
// substitution must remain a bijection; a mapping that collapses two columns
// into one is an error, and the table is left unmodified.
func (t *Table) Rename(mapping map[string]string) error {
	renamed := make([]string, len(t.columns))
	seen := make(map[string]bool, len(t.columns))
	for i, c := range t.columns {
		if to, ok := mapping[c]; ok {
			c = to
		}
		if seen[c] {
			return errors.Reason("column rename collides on '%s'", c)
		}
		seen[c] = true
		renamed[i] = c
	}
	for i, r := range t.rows {
		r2 := make(Record, len(r))
		for k, v := range r {
			if to, ok := mapping[k]; ok {
				k = to
			}
			r2[k] = v
		}
		t.rows[i] = r2
	}
	t.columns = renamed
	t.known = seen
	return nil
}

// Known layouts of the remote API timestamps. Values without an explicit
// timezone are assumed to be UTC.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05.999999999",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02",
	}
	var err error
	for _, f := range formats {
		var tm time.Time
		tm, err = time.Parse(f, s)
		if err == nil {
			return tm, nil
		}
	}
	return time.Time{}, err
}

// ConvertTime reinterprets the values of the given columns as UTC instants
// and converts them to the loc timezone, storing them as time.Time values.
// Columns not present in the table are silently skipped. Cells that cannot be
// parsed as a time are left as is with a warning.
func (t *Table) ConvertTime(ctx context.Context, loc *time.Location, columns ...string) {
	for _, col := range columns {
		if !t.known[col] {
			continue
		}
		for _, r := range t.rows {
			v, ok := r[col]
			if !ok || v == nil {
				continue
			}
			switch x := v.(type) {
			case time.Time:
				r[col] = x.In(loc)
			case string:
				tm, err := parseTime(x)
				if err != nil {
					logging.Warningf(ctx, "column %s: cannot parse time '%s', leaving as is", col, x)
					continue
				}
				r[col] = tm.In(loc)
			default:
				logging.Warningf(ctx, "column %s: cannot convert %T value to a time, leaving as is", col, v)
			}
		}
	}
}

// standardizeName title-cases every letter run, replaces spaces with
// underscores, and special-cases "id" to the conventional all-caps form.
func standardizeName(name string) string {
	if strings.EqualFold(name, "id") {
		return "ID"
	}
	var b strings.Builder
	prevLetter := false
	for _, r := range name {
		switch {
		case r == ' ':
			b.WriteRune('_')
			prevLetter = false
		case unicode.IsLetter(r):
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
		default:
			b.WriteRune(r)
			prevLetter = false
		}
	}
	return b.String()
}

// StandardizeColumns normalizes the column names for presentation:
// title-cased, with spaces replaced by underscores, and "id" spelled "ID".
// This is a cosmetic pass for printed output; it fails like Rename if two
// standardized names collide.
func (t *Table) StandardizeColumns() error {
	mapping := make(map[string]string)
	for _, c := range t.columns {
		if s := standardizeName(c); s != c {
			mapping[c] = s
		}
	}
	return t.Rename(mapping)
}

// formatValue renders a single cell for CSV or text output.
func formatValue(v Value) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case time.Time:
		return x.Format(time.RFC3339)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprintf("%v", x)
	}
}

// csvRecord formats a record as an encoding/csv compatible row aligned with
// the column set.
func (t *Table) csvRecord(r Record) []string {
	row := make([]string, len(t.columns))
	for i, c := range t.columns {
		row[i] = formatValue(r[c])
	}
	return row
}

// Params are parameters for pretty-printing or CSV export of Table data.
type Params struct {
	Rows        int  // max. number of rows to write; 0 = unlimited (default)
	NoHeader    bool // whether to print the header, default - yes
	MaxColWidth int  // for WriteText only; 0 = unlimited, otherwise must be >= 4
}

// WriteCSV writes the entire table to w in CSV format.
func (t *Table) WriteCSV(w io.Writer, p Params) error {
	cw := csv.NewWriter(w)
	if !p.NoHeader && len(t.columns) > 0 {
		if err := cw.Write(t.columns); err != nil {
			return errors.Annotate(err, "failed to write header")
		}
	}
	it := t.Records()
	for i := 0; ; i++ {
		r, ok := it.Next()
		if !ok || (p.Rows > 0 && i >= p.Rows) {
			break
		}
		if err := cw.Write(t.csvRecord(r)); err != nil {
			return errors.Annotate(err, "failed to write row")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Annotate(err, "failed to flush written rows")
	}
	return nil
}

// WriteText writes the table as a text formatted for ease of reading.
func (t *Table) WriteText(w io.Writer, p Params) error {
	if p.MaxColWidth != 0 && p.MaxColWidth < 4 {
		return errors.Reason("MaxColWidth [%d] must be 0 or >= 4", p.MaxColWidth)
	}
	widths := make([]int, len(t.columns))
	update := func(row []string) {
		for i := range widths {
			if widths[i] < len(row[i]) {
				widths[i] = len(row[i])
				if p.MaxColWidth > 0 && widths[i] > p.MaxColWidth {
					widths[i] = p.MaxColWidth
				}
			}
		}
	}

	write := func(row []string) error {
		trimmed := make([]string, len(row))
		for i, s := range row {
			trimmed[i] = s
			if len([]rune(s)) > widths[i] {
				r := []rune(s)[:widths[i]-2]
				trimmed[i] = string(r) + ".."
			}
			trimmed[i] = fmt.Sprintf("%[2]*[1]s", trimmed[i], widths[i])
		}
		_, err := fmt.Fprintf(w, "%s\n", strings.Join(trimmed, " | "))
		return err
	}

	dashes := func(n int) string {
		b := make([]byte, n)
		for i := range b {
			b[i] = byte('-')
		}
		return string(b)
	}

	dashedRow := func() []string {
		row := make([]string, len(widths))
		for i, w := range widths {
			row[i] = dashes(w)
		}
		return row
	}

	eachRow := func(f func(row []string) error) error {
		it := t.Records()
		for i := 0; ; i++ {
			r, ok := it.Next()
			if !ok || (p.Rows > 0 && i >= p.Rows) {
				return nil
			}
			if err := f(t.csvRecord(r)); err != nil {
				return err
			}
		}
	}

	if !p.NoHeader && len(t.columns) > 0 {
		update(t.columns)
	}
	if err := eachRow(func(row []string) error { update(row); return nil }); err != nil {
		return errors.Annotate(err, "failed to update row widths")
	}

	if !p.NoHeader && len(t.columns) > 0 {
		if err := write(t.columns); err != nil {
			return errors.Annotate(err, "failed to write header")
		}
		if err := write(dashedRow()); err != nil {
			return errors.Annotate(err, "failed to write header separator")
		}
	}
	if err := eachRow(write); err != nil {
		return errors.Annotate(err, "failed to write row")
	}
	return nil
}
