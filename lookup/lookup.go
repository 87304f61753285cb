// Package lookup builds SQL fragments that query compressed columns by
// delegating decompression to the MySQL server.
//
// A column holding values in the COMPRESS() format is opaque to ordinary
// string predicates. Wrapping the column in UNCOMPRESS() lets the server
// decompress each row at query time, so substring, prefix, suffix and
// membership predicates work without fetching and decoding rows in the
// application:
//
//	p := lookup.Contains("content", "<html")
//	rows, err := db.Query("SELECT id FROM files WHERE "+p.SQL, p.Args...)
//
// Fragments use `?` placeholders and are intended for MySQL; other engines
// do not provide a compatible UNCOMPRESS() function. Column arguments are
// interpolated into the SQL text verbatim and must be trusted identifiers,
// never user input.
package lookup

import "strings"

// Compress wraps expr in MySQL's COMPRESS() function.
func Compress(expr string) string {
	return "COMPRESS(" + expr + ")"
}

// Uncompress wraps expr in MySQL's UNCOMPRESS() function.
func Uncompress(expr string) string {
	return "UNCOMPRESS(" + expr + ")"
}

// UncompressedLength wraps expr in MySQL's UNCOMPRESSED_LENGTH() function.
func UncompressedLength(expr string) string {
	return "UNCOMPRESSED_LENGTH(" + expr + ")"
}

// Predicate is a SQL boolean expression with `?` placeholders and the
// arguments that bind to them, in order.
type Predicate struct {
	SQL  string
	Args []any
}

// likeEscaper escapes the characters that are special inside a LIKE
// pattern, so needle text matches literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Contains matches rows whose decompressed column value contains needle.
func Contains(column, needle string) Predicate {
	return like(column, "%"+likeEscaper.Replace(needle)+"%")
}

// HasPrefix matches rows whose decompressed column value starts with prefix.
func HasPrefix(column, prefix string) Predicate {
	return like(column, likeEscaper.Replace(prefix)+"%")
}

// HasSuffix matches rows whose decompressed column value ends with suffix.
func HasSuffix(column, suffix string) Predicate {
	return like(column, "%"+likeEscaper.Replace(suffix))
}

func like(column, pattern string) Predicate {
	return Predicate{
		SQL:  Uncompress(column) + " LIKE ?",
		Args: []any{pattern},
	}
}

// Equals matches rows whose decompressed column value equals value.
func Equals(column, value string) Predicate {
	return Predicate{
		SQL:  Uncompress(column) + " = ?",
		Args: []any{value},
	}
}

// In matches rows whose decompressed column value equals any of values.
// With no values the predicate matches nothing, since SQL's IN () is a
// syntax error.
func In(column string, values ...string) Predicate {
	if len(values) == 0 {
		return Predicate{SQL: "0 = 1"}
	}

	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}

	return Predicate{
		SQL:  Uncompress(column) + " IN (?" + strings.Repeat(", ?", len(values)-1) + ")",
		Args: args,
	}
}

// UncompressedLengthEquals matches rows whose decompressed column value is
// exactly n bytes long, using only the blob's length header. The server
// never decompresses the row, which makes this the cheapest size predicate
// available.
func UncompressedLengthEquals(column string, n int) Predicate {
	return Predicate{
		SQL:  UncompressedLength(column) + " = ?",
		Args: []any{n},
	}
}
