package database

import (
	"fmt"
	"strings"
)

// Assignment is one "column = value" pair of a sparse UPDATE.
type Assignment struct {
	Column string
	Value  any
}

// Assignments collects only the columns a caller actually supplied.
type Assignments []Assignment

func (a *Assignments) Set(column string, value any) {
	*a = append(*a, Assignment{Column: column, Value: value})
}

// UpdateQuery renders "UPDATE table SET c1 = $1, ... WHERE key = $n RETURNING
// returning". It reports false when nothing was assigned.
func (a Assignments) UpdateQuery(table, key string, id any, returning string) (string, []any, bool) {
	if len(a) == 0 {
		return "", nil, false
	}
	sets := make([]string, len(a))
	args := make([]any, 0, len(a)+1)
	for i, as := range a {
		sets[i] = fmt.Sprintf("%s = $%d", as.Column, i+1)
		args = append(args, as.Value)
	}
	args = append(args, id)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = $%d RETURNING %s",
		table, strings.Join(sets, ", "), key, len(args), returning)
	return query, args, true
}

// Lookup returns the value assigned to column, if any.
func (a Assignments) Lookup(column string) (any, bool) {
	for _, as := range a {
		if as.Column == column {
			return as.Value, true
		}
	}
	return nil, false
}

// Put replaces the value for column, appending it when absent.
func (a *Assignments) Put(column string, value any) {
	for i := range *a {
		if (*a)[i].Column == column {
			(*a)[i].Value = value
			return
		}
	}
	a.Set(column, value)
}
