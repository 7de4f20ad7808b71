package db

import (
	"strconv"
	"strings"
)

// Where accumulates AND-ed conditions for a dynamically filtered query. Each
// condition is a constant SQL fragment with one "?" that is rewritten to the
// next positional parameter; values only ever travel as arguments.
type Where struct {
	conds []string
	args  []interface{}
}

// Add appends cond bound to arg.
func (w *Where) Add(cond string, arg interface{}) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, strings.Replace(cond, "?", "$"+strconv.Itoa(len(w.args)), 1))
}

// SQL renders " WHERE a AND b", or "" when there are no conditions.
func (w *Where) SQL() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// Args returns the bound values in placeholder order.
func (w *Where) Args() []interface{} {
	return w.args
}

// Page renders the LIMIT/OFFSET clause bound to the next two placeholders and
// returns the arguments extended with limit and offset.
func (w *Where) Page(limit, offset int) (string, []interface{}) {
	n := len(w.args)
	args := append(append([]interface{}{}, w.args...), limit, offset)
	return " LIMIT $" + strconv.Itoa(n+1) + " OFFSET $" + strconv.Itoa(n+2), args
}
