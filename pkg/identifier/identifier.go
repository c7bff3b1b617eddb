// Package identifier validates table/column-style identifiers before they
// are interpolated into SQL text. database/sql placeholders cover values;
// identifiers (table and column names) can never be bound parameters, so
// every identifier the store interpolates is checked here first.
package identifier

import (
	"fmt"
	"strings"

	"github.com/dukaforge/silo/pkg/dberr"
)

const maxLength = 128

// reserved is the closed set of ~45 SQL keywords rejected as identifiers,
// matched case-insensitively.
var reserved = map[string]bool{
	"SELECT": true, "INSERT": true, "UPDATE": true, "DELETE": true, "DROP": true,
	"CREATE": true, "ALTER": true, "TABLE": true, "INDEX": true, "VIEW": true,
	"FROM": true, "WHERE": true, "JOIN": true, "INNER": true, "OUTER": true,
	"LEFT": true, "RIGHT": true, "ON": true, "AND": true, "OR": true,
	"NOT": true, "NULL": true, "IS": true, "IN": true, "LIKE": true,
	"BETWEEN": true, "EXISTS": true, "UNION": true, "ALL": true, "DISTINCT": true,
	"ORDER": true, "BY": true, "GROUP": true, "HAVING": true, "LIMIT": true,
	"OFFSET": true, "ASC": true, "DESC": true, "AS": true, "CASE": true,
	"WHEN": true, "THEN": true, "ELSE": true, "END": true, "BEGIN": true,
	"COMMIT": true, "ROLLBACK": true, "PRAGMA": true, "STRICT": true,
}

// IsValid reports whether identifier starts with a letter or underscore,
// contains only letters/digits/underscore thereafter, and is 1-128 bytes
// long.
func IsValid(id string) bool {
	if id == "" || len(id) > maxLength {
		return false
	}
	first := id[0]
	if !isAlpha(first) && first != '_' {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if !isAlpha(c) && !isDigit(c) && c != '_' {
			return false
		}
	}
	return true
}

func isAlpha(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// IsReserved reports whether word, compared case-insensitively, is one of
// the reserved SQL keywords.
func IsReserved(word string) bool {
	return reserved[strings.ToUpper(word)]
}

// Validate checks both shape and reserved-word rules, returning an
// InvalidIdentifier error naming context on failure.
func Validate(id, context string) error {
	if !IsValid(id) {
		return dberr.Newf(dberr.InvalidIdentifier, context,
			"invalid identifier %q: must start with a letter/underscore, contain only alphanumeric/underscore characters, and be 1-128 characters", id)
	}
	if IsReserved(id) {
		return dberr.Newf(dberr.InvalidIdentifier, context, "%q is a reserved SQL keyword", id)
	}
	return nil
}

// Quote wraps a validated identifier in double quotes for safe
// interpolation into SQL text that database/sql cannot parameterise.
func Quote(id string) string {
	return fmt.Sprintf(`"%s"`, strings.ReplaceAll(id, `"`, `""`))
}
