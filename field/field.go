// Package field adapts compressed text values for database/sql.
//
// CompressedText behaves like a plain string in application code while its
// database column (typically LONGBLOB) holds bytes in the format of MySQL's
// COMPRESS() function. Because the stored format matches the server's own,
// queries can decompress the column server-side with UNCOMPRESS() instead
// of fetching every row; see the lookup package for building such queries.
package field

import (
	"database/sql/driver"
	"fmt"

	"github.com/techsmartkids/mysqlcompress"
)

// CompressedText is a string stored compressed in the database.
//
// It implements driver.Valuer (compressing on write) and sql.Scanner
// (decompressing on read). The column must be treated as an opaque
// variable-length byte sequence; LONGBLOB fits any value the 4-byte length
// header can describe. Text is compressed as the bytes of the Go string,
// which for source code and templates means UTF-8.
//
// CompressedText cannot represent SQL NULL; use NullCompressedText for
// NULLable columns.
type CompressedText string

var (
	_ driver.Valuer = CompressedText("")
	_ driver.Valuer = NullCompressedText{}
)

// Value returns the compressed database representation of the text.
//
// The empty string is stored as an empty blob rather than NULL, matching
// COMPRESS('') and keeping "" distinct from NULL in the column.
func (t CompressedText) Value() (driver.Value, error) {
	if t == "" {
		return []byte{}, nil
	}

	return mysqlcompress.Compress([]byte(t)), nil
}

// Scan decompresses a value read from the database. It accepts []byte and
// string source values; anything else, including NULL, is an error.
func (t *CompressedText) Scan(src any) error {
	switch v := src.(type) {
	case []byte:
		raw, err := mysqlcompress.Uncompress(v)
		if err != nil {
			return fmt.Errorf("field: scanning CompressedText: %w", err)
		}
		*t = CompressedText(raw)

		return nil
	case string:
		raw, err := mysqlcompress.Uncompress([]byte(v))
		if err != nil {
			return fmt.Errorf("field: scanning CompressedText: %w", err)
		}
		*t = CompressedText(raw)

		return nil
	case nil:
		return fmt.Errorf("field: cannot scan NULL into CompressedText, use NullCompressedText")
	default:
		return fmt.Errorf("field: cannot scan %T into CompressedText", src)
	}
}

// NullCompressedText is a CompressedText that may be NULL.
// It mirrors sql.NullString.
type NullCompressedText struct {
	String string
	Valid  bool
}

// Value returns the compressed database representation, or NULL when Valid
// is false.
func (n NullCompressedText) Value() (driver.Value, error) {
	if !n.Valid {
		return nil, nil
	}

	return CompressedText(n.String).Value()
}

// Scan decompresses a value read from the database, treating NULL as an
// invalid (absent) value.
func (n *NullCompressedText) Scan(src any) error {
	if src == nil {
		n.String, n.Valid = "", false

		return nil
	}

	var t CompressedText
	if err := t.Scan(src); err != nil {
		return err
	}
	n.String, n.Valid = string(t), true

	return nil
}
