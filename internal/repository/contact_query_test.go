package repository

import (
	"database/sql/driver"
	"strings"
	"testing"

	"github.com/minicrm/backend/internal/model"
)

func TestContactFilter_OwnerFirstAndArgsInOrder(t *testing.T) {
	where, args := pgDialect.contactFilter(model.ContactQuery{OwnerID: "u1", Search: "smi", Company: "Acme"})

	if !strings.HasPrefix(where, "WHERE owner_id = $1") {
		t.Errorf("expected owner predicate first, got %q", where)
	}
	if !strings.Contains(where, "company = $5") {
		t.Errorf("expected company placeholder $5, got %q", where)
	}
	if len(args) != 5 {
		t.Fatalf("expected 5 args, got %d", len(args))
	}
	if args[0] != "u1" || args[1] != "%smi%" || args[4] != "Acme" {
		t.Errorf("unexpected args %v", args)
	}
}

func TestContactFilter_Unrestricted(t *testing.T) {
	where, args := sqliteDialect.contactFilter(model.ContactQuery{})
	if where != "" || len(args) != 0 {
		t.Errorf("expected no filter, got %q %v", where, args)
	}
}

func TestContactFilter_EscapesWildcards(t *testing.T) {
	_, args := sqliteDialect.contactFilter(model.ContactQuery{Search: "50%_off"})
	if args[0] != `%50\%\_off%` {
		t.Errorf("expected escaped pattern, got %v", args[0])
	}
}

func TestContactFilter_SQLiteFoldsColumnsAndPattern(t *testing.T) {
	where, args := sqliteDialect.contactFilter(model.ContactQuery{Search: "ŁUKASZ"})
	if !strings.Contains(where, foldFunc+"(first_name) LIKE ?") || !strings.Contains(where, foldFunc+"(email) LIKE ?") {
		t.Errorf("expected folded columns, got %q", where)
	}
	if args[0] != "%łukasz%" {
		t.Errorf("expected lower-cased pattern, got %v", args[0])
	}

	where, args = pgDialect.contactFilter(model.ContactQuery{Search: "ŁUKASZ"})
	if strings.Contains(where, foldFunc) || args[0] != "%ŁUKASZ%" {
		t.Errorf("postgres should rely on ILIKE, got %q %v", where, args)
	}
}

func TestUnicodeLower(t *testing.T) {
	got, err := unicodeLower(nil, []driver.Value{"ŻÓŁW Äpfel"})
	if err != nil || got != "żółw äpfel" {
		t.Errorf("unicodeLower = %v, %v", got, err)
	}
	if got, _ := unicodeLower(nil, []driver.Value{nil}); got != nil {
		t.Errorf("NULL should stay NULL, got %v", got)
	}
}

func TestContactOrderBy(t *testing.T) {
	cases := map[string]string{
		"":                       "ORDER BY last_name ASC, first_name ASC",
		model.SortLastNameDesc:   "ORDER BY last_name DESC, first_name ASC",
		model.SortCompanyAsc:     "ORDER BY COALESCE(company, '') ASC, last_name ASC",
		model.SortCompanyDesc:    "ORDER BY COALESCE(company, '') DESC, last_name ASC",
		"DROP TABLE contacts; --": "ORDER BY last_name ASC, first_name ASC",
	}
	for sort, prefix := range cases {
		if got := contactOrderBy(sort); !strings.HasPrefix(got, prefix) {
			t.Errorf("contactOrderBy(%q) = %q, want prefix %q", sort, got, prefix)
		}
	}
}
