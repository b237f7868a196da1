package postgres

import (
	"fmt"
	"strings"

	"github.com/jwalitptl/health-enrollment/internal/model"
)

const (
	clientColumns = `id, first_name, last_name, date_of_birth, gender, phone_number,
		email, address, national_id, created_at, updated_at`
	programColumns    = `id, name, description, created_at, updated_at`
	enrollmentColumns = `id, client_id, program_id, enrollment_date, is_active, notes, created_at, updated_at`
)

var (
	clientSearchColumns  = []string{"first_name", "last_name", "national_id", "phone_number", "email"}
	programSearchColumns = []string{"name", "description"}
)

// whereBuilder collects conditions and numbers their placeholders.
type whereBuilder struct {
	conds []string
	args  []interface{}
}

func (w *whereBuilder) arg(v interface{}) string {
	w.args = append(w.args, v)
	return fmt.Sprintf("$%d", len(w.args))
}

func (w *whereBuilder) add(cond string) {
	w.conds = append(w.conds, cond)
}

// search adds a case-insensitive substring match OR-ed across columns.
func (w *whereBuilder) search(term string, columns []string) {
	if term == "" {
		return
	}
	p := w.arg("%" + escapeLike(term) + "%")
	parts := make([]string, len(columns))
	for i, col := range columns {
		parts[i] = fmt.Sprintf("%s ILIKE %s", col, p)
	}
	w.add("(" + strings.Join(parts, " OR ") + ")")
}

func (w *whereBuilder) sql() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// orderBy renders an ORDER BY clause. o.Field must come from an allow list.
func orderBy(o model.Ordering) string {
	dir := "ASC"
	if o.Desc {
		dir = "DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s, id ASC", o.Field, dir)
}

// listQuery builds the page query and the matching count query over one table.
func listQuery(table, columns string, w *whereBuilder, o model.Ordering, p model.ListParams) (string, string, []interface{}) {
	where := w.sql()
	count := "SELECT COUNT(*) FROM " + table + where

	args := append([]interface{}{}, w.args...)
	list := fmt.Sprintf("SELECT %s FROM %s%s%s LIMIT $%d OFFSET $%d",
		columns, table, where, orderBy(o), len(args)+1, len(args)+2)
	args = append(args, p.PageSize, p.Offset())

	return list, count, args
}

func clientListQuery(f model.ClientFilter) (string, string, []interface{}, []interface{}) {
	w := &whereBuilder{}
	w.search(f.Search, clientSearchColumns)
	if f.Gender != "" {
		w.add("gender = " + w.arg(string(f.Gender)))
	}
	o := model.ParseOrdering(f.Ordering, model.ClientOrderFields, model.DefaultOrdering)
	list, count, args := listQuery("clients", clientColumns, w, o, f.ListParams)
	return list, count, args, w.args
}

func programListQuery(f model.ProgramFilter) (string, string, []interface{}, []interface{}) {
	w := &whereBuilder{}
	w.search(f.Search, programSearchColumns)
	o := model.ParseOrdering(f.Ordering, model.ProgramOrderFields, model.DefaultOrdering)
	list, count, args := listQuery("health_programs", programColumns, w, o, f.ListParams)
	return list, count, args, w.args
}
