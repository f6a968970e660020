package repository

import (
	"strconv"
	"strings"

	"github.com/minicrm/backend/internal/model"
)

// dialect captures the few SQL differences between the supported stores.
type dialect struct {
	placeholder func(n int) string
	like        string
	// fold wraps a column so it can be compared with a lower-cased
	// pattern. Nil means the LIKE operator already ignores case.
	fold func(column string) string
}

// SQLite's LIKE and lower() only fold ASCII, so its columns go through
// foldFunc instead.
var (
	pgDialect     = dialect{placeholder: func(n int) string { return "$" + strconv.Itoa(n) }, like: "ILIKE"}
	sqliteDialect = dialect{
		placeholder: func(int) string { return "?" },
		like:        "LIKE",
		fold:        func(column string) string { return foldFunc + "(" + column + ")" },
	}
)

func (d dialect) column(name string) string {
	if d.fold == nil {
		return name
	}
	return d.fold(name)
}

// contactFilter builds the WHERE clause for a contact query. Owner scoping
// comes first, then the free-text search, then the company filter.
func (d dialect) contactFilter(q model.ContactQuery) (string, []any) {
	var conditions []string
	var args []any
	next := func(v any) string {
		args = append(args, v)
		return d.placeholder(len(args))
	}

	if q.OwnerID != "" {
		conditions = append(conditions, "owner_id = "+next(q.OwnerID))
	}
	if q.Search != "" {
		search := q.Search
		if d.fold != nil {
			search = strings.ToLower(search)
		}
		pattern := "%" + escapeLike(search) + "%"
		match := func(column string) string {
			return d.column(column) + " " + d.like + " " + next(pattern) + ` ESCAPE '\'`
		}
		conditions = append(conditions, "("+match("first_name")+" OR "+match("last_name")+" OR "+match("email")+")")
	}
	if q.Company != "" {
		conditions = append(conditions, "company = "+next(q.Company))
	}

	if len(conditions) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

// contactOrderBy returns the ORDER BY clause for a sort key. A missing
// company sorts as the empty string in both stores; id is the final
// tie-breaker so pages are stable.
func contactOrderBy(sort string) string {
	switch model.NormalizeSort(sort) {
	case model.SortLastNameDesc:
		return "ORDER BY last_name DESC, first_name ASC, id ASC"
	case model.SortCompanyAsc:
		return "ORDER BY COALESCE(company, '') ASC, last_name ASC, id ASC"
	case model.SortCompanyDesc:
		return "ORDER BY COALESCE(company, '') DESC, last_name ASC, id ASC"
	default:
		return "ORDER BY last_name ASC, first_name ASC, id ASC"
	}
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
