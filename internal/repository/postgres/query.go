package postgres

import (
	"fmt"
	"strings"
	"unicode"

	"docvault/internal/access"
)

// placeholder marks an argument position inside a clause. Markers are
// renumbered left to right when the clause list is rendered.
const placeholder = "$%d"

type condition struct {
	clause string
	args   []any
}

// conditions accumulates AND-ed predicates with automatic parameter numbering.
type conditions struct {
	items []condition
}

func (c *conditions) add(clause string, args ...any) *conditions {
	c.items = append(c.items, condition{clause: clause, args: args})
	return c
}

// where renders " WHERE ..." starting at parameter startParam and returns
// the next free parameter index.
func (c *conditions) where(startParam int) (string, []any, int) {
	if len(c.items) == 0 {
		return "", nil, startParam
	}

	clauses := make([]string, 0, len(c.items))
	args := make([]any, 0)
	paramIdx := startParam

	for _, cond := range c.items {
		clause := cond.clause
		for _, arg := range cond.args {
			clause = strings.Replace(clause, placeholder, fmt.Sprintf("$%d", paramIdx), 1)
			args = append(args, arg)
			paramIdx++
		}
		clauses = append(clauses, clause)
	}

	return " WHERE " + strings.Join(clauses, " AND "), args, paramIdx
}

// addAccess renders f over the aliases d (documents) and o (owner users).
// An All filter adds nothing.
func (c *conditions) addAccess(f access.Filter) *conditions {
	if f.All {
		return c
	}
	ors := []string{"d.access_level = 'public'"}
	var args []any
	if f.OwnerID != "" {
		ors = append(ors, "d.owner_id = "+placeholder)
		args = append(args, f.OwnerID)
	}
	if f.TeamOwnerManagerID != "" {
		ors = append(ors, "(d.access_level = 'team' AND o.manager_id = "+placeholder+")")
		args = append(args, f.TeamOwnerManagerID)
	}
	if f.TeamOwnerID != "" {
		ors = append(ors, "(d.access_level = 'team' AND d.owner_id = "+placeholder+")")
		args = append(args, f.TeamOwnerID)
	}
	return c.add("("+strings.Join(ors, " OR ")+")", args...)
}

// searchDocument is the text indexed for full-text search. Punctuation in
// the filename is folded to spaces so "quarterly-report.pdf" indexes as
// three words instead of one host token.
const searchDocument = "to_tsvector('simple', regexp_replace(%s, '[^[:alnum:]]+', ' ', 'g') || ' ' || array_to_string(%s::text[], ' '))"

func searchVector(filenameExpr, tagsExpr string) string {
	return fmt.Sprintf(searchDocument, filenameExpr, tagsExpr)
}

// anyTermsQuery turns free text into a to_tsquery expression matching any of
// its words. Only letters and digits survive, so the result carries no
// tsquery operators from user input. Empty means nothing searchable.
func anyTermsQuery(text string) string {
	terms := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(terms, " | ")
}
