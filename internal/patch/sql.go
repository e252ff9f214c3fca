package patch

import (
	"strconv"
	"strings"
)

// Table describes the fixed identifiers a statement is built from. None of
// them ever come from a request.
type Table struct {
	Name       string
	Returning  []string
	ConflictOn string
}

// BuildInsert renders an insert that returns no row when the conflict column
// already holds the value.
func (t Table) BuildInsert(set []Assignment) (string, []any) {
	columns := make([]string, 0, len(set))
	placeholders := make([]string, 0, len(set))
	args := make([]any, 0, len(set))
	for _, a := range set {
		columns = append(columns, a.Column)
		args = append(args, a.Value)
		placeholders = append(placeholders, "$"+strconv.Itoa(len(args)))
	}

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(t.Name)
	b.WriteString(" (")
	b.WriteString(strings.Join(columns, ", "))
	b.WriteString(") VALUES (")
	b.WriteString(strings.Join(placeholders, ", "))
	b.WriteString(")")
	if t.ConflictOn != "" {
		b.WriteString(" ON CONFLICT (")
		b.WriteString(t.ConflictOn)
		b.WriteString(") DO NOTHING")
	}
	b.WriteString(" RETURNING ")
	b.WriteString(strings.Join(t.Returning, ", "))
	return b.String(), args
}

// BuildUpdate renders an update of the row with the given id. Null assignments
// are written as literal NULLs and updated_at is always touched.
func (t Table) BuildUpdate(set []Assignment, id any) (string, []any) {
	clauses := make([]string, 0, len(set)+1)
	args := make([]any, 0, len(set)+1)
	for _, a := range set {
		if a.Value == nil {
			clauses = append(clauses, a.Column+" = NULL")
			continue
		}
		args = append(args, a.Value)
		clauses = append(clauses, a.Column+" = $"+strconv.Itoa(len(args)))
	}
	clauses = append(clauses, "updated_at = NOW()")
	args = append(args, id)

	var b strings.Builder
	b.WriteString("UPDATE ")
	b.WriteString(t.Name)
	b.WriteString(" SET ")
	b.WriteString(strings.Join(clauses, ", "))
	b.WriteString(" WHERE id = $")
	b.WriteString(strconv.Itoa(len(args)))
	b.WriteString(" RETURNING ")
	b.WriteString(strings.Join(t.Returning, ", "))
	return b.String(), args
}
