package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// ErrDuplicate signals a unique constraint violation. Services map it to
// the matching conflict error.
var ErrDuplicate = errors.New("duplicate record")

const (
	uniqueViolation           = "23505"
	invalidTextRepresentation = "22P02"
)

func isUniqueViolation(err error) bool {
	return hasCode(err, uniqueViolation)
}

// isMalformedID reports a parameter Postgres could not cast, e.g. a non-UUID id.
func isMalformedID(err error) bool {
	return hasCode(err, invalidTextRepresentation)
}

// isMissing treats a malformed id as a row that does not exist.
func isMissing(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || isMalformedID(err)
}

func hasCode(err error, code pq.ErrorCode) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == code
}

// conditions accumulates AND-ed predicates with positional placeholders.
// Each "?" in a predicate is replaced by the next $n.
type conditions struct {
	clauses []string
	args    []interface{}
}

func (c *conditions) add(clause string, args ...interface{}) {
	for _, arg := range args {
		c.args = append(c.args, arg)
		clause = strings.Replace(clause, "?", fmt.Sprintf("$%d", len(c.args)), 1)
	}
	c.clauses = append(c.clauses, clause)
}

// contains adds a case-insensitive substring match across columns, OR-ed.
func (c *conditions) contains(term string, columns ...string) {
	if term == "" || len(columns) == 0 {
		return
	}
	c.args = append(c.args, likePattern(term))
	placeholder := fmt.Sprintf("$%d", len(c.args))
	parts := make([]string, len(columns))
	for i, col := range columns {
		parts[i] = fmt.Sprintf("%s ILIKE %s", col, placeholder)
	}
	if len(parts) == 1 {
		c.clauses = append(c.clauses, parts[0])
		return
	}
	c.clauses = append(c.clauses, "("+strings.Join(parts, " OR ")+")")
}

// apply appends the predicates to a base query ending in "WHERE 1=1".
func (c *conditions) apply(base string) string {
	if len(c.clauses) == 0 {
		return base
	}
	return base + " AND " + strings.Join(c.clauses, " AND ")
}

// likePattern wraps term in % after escaping LIKE metacharacters.
func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(term) + "%"
}

// orderBy resolves a client sort key through an allowlist of columns.
func orderBy(sortBy, sortOrder string, allowed map[string]string, fallback string) string {
	column, ok := allowed[sortBy]
	if !ok {
		column = fallback
	}
	order := "DESC"
	if strings.EqualFold(sortOrder, "asc") {
		order = "ASC"
	}
	return fmt.Sprintf("ORDER BY %s %s", column, order)
}

func paginate(limit, offset int) string {
	return fmt.Sprintf("LIMIT %d OFFSET %d", limit, offset)
}
