// Package metric defines the schema descriptors that parametrize the generic
// metric-table machinery. Each follow-up statistics table (table one through
// table five) shares the same shape: an owner, a statistic date and a fixed
// set of nullable integer count columns, sometimes accompanied by one or two
// nullable free-text columns. Instead of five hand-copied repositories and
// handler sets, a single repository and handler operate on a Schema value.
package metric

import "fmt"

// Column maps one metric or text column between its JSON field name and its
// database column name.
//
// Fields:
//  Field – camelCase name used in request/response bodies (e.g. "numOfDeaths").
//  DB    – snake_case column name in the table (e.g. "num_of_deaths").
type Column struct {
	Field string
	DB    string
}

// Schema describes one metric table variant.
//
// Fields:
//  Name    – short identifier used as JSON group key and event label ("tableOne").
//  Route   – URL path segment the table is served under ("table-1").
//  Table   – database table name ("table_one").
//  Alias   – column prefix inside the followup_overview view ("t1").
//  Numeric – nullable integer count columns, in declaration order.
//  Text    – nullable free-text columns, possibly empty.
type Schema struct {
	Name    string
	Route   string
	Table   string
	Alias   string
	Numeric []Column
	Text    []Column
}

// Columns returns numeric columns followed by text columns, in declaration
// order. This is the column order used in SELECT lists, INSERT statements and
// export headers so all layers agree on positions.
func (s Schema) Columns() []Column {
	out := make([]Column, 0, len(s.Numeric)+len(s.Text))
	out = append(out, s.Numeric...)
	out = append(out, s.Text...)
	return out
}

// NumericFields returns the JSON field names of all numeric columns.
func (s Schema) NumericFields() []string {
	out := make([]string, len(s.Numeric))
	for i, c := range s.Numeric {
		out[i] = c.Field
	}
	return out
}

// Validate checks that a schema is internally consistent: non-empty
// identifiers, at least one numeric column, and no duplicate field or column
// names. Descriptors are fixed at compile time, so a failure here is a
// programming error; main calls this once at startup and aborts on error.
func (s Schema) Validate() error {
	if s.Name == "" || s.Route == "" || s.Table == "" || s.Alias == "" {
		return fmt.Errorf("metric schema missing identifiers: %+v", s)
	}
	if len(s.Numeric) == 0 {
		return fmt.Errorf("metric schema %s has no numeric columns", s.Name)
	}
	seenField := map[string]bool{}
	seenDB := map[string]bool{}
	for _, c := range s.Columns() {
		if c.Field == "" || c.DB == "" {
			return fmt.Errorf("metric schema %s has an unnamed column", s.Name)
		}
		if seenField[c.Field] {
			return fmt.Errorf("metric schema %s duplicates field %q", s.Name, c.Field)
		}
		if seenDB[c.DB] {
			return fmt.Errorf("metric schema %s duplicates column %q", s.Name, c.DB)
		}
		seenField[c.Field] = true
		seenDB[c.DB] = true
	}
	return nil
}
