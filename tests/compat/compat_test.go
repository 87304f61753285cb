// Package compat verifies bit-level interoperability with a live MySQL
// server: blobs produced by this module must decode through the server's
// UNCOMPRESS(), and blobs produced by the server's COMPRESS() must decode
// through this module.
//
// The tests are skipped unless MYSQL_COMPAT_DSN is set, e.g.:
//
//	MYSQL_COMPAT_DSN='root:secret@tcp(127.0.0.1:3306)/test' go test ./tests/compat/
package compat

import (
	"bytes"
	"database/sql"
	"os"
	"strings"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/require"

	"github.com/techsmartkids/mysqlcompress"
	"github.com/techsmartkids/mysqlcompress/field"
	"github.com/techsmartkids/mysqlcompress/lookup"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := os.Getenv("MYSQL_COMPAT_DSN")
	if dsn == "" {
		t.Skip("MYSQL_COMPAT_DSN not set, skipping live MySQL compatibility tests")
	}

	db, err := sql.Open("mysql", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Ping())

	return db
}

// compatValues are the contents exchanged with the server in both
// directions. Empty values and trailing spaces are handled specially by
// COMPRESS(), so both appear here.
var compatValues = [][]byte{
	{},
	[]byte("hello"),
	[]byte("hello  "),
	[]byte("aaaaaaaaaa"),
	[]byte(strings.Repeat("<html lang=\"en\">", 4096)),
	{0x00, 0xff, 0x1f, 0x8b, 0x00},
}

func TestServerCompressDecodesLocally(t *testing.T) {
	db := openDB(t)

	for _, value := range compatValues {
		var blob []byte
		require.NoError(t, db.QueryRow("SELECT COMPRESS(?)", value).Scan(&blob))

		decoded, err := mysqlcompress.Uncompress(blob)
		require.NoError(t, err)
		require.True(t, bytes.Equal(value, decoded))
	}
}

func TestLocalCompressDecodesOnServer(t *testing.T) {
	db := openDB(t)

	for _, value := range compatValues {
		blob := mysqlcompress.Compress(value)
		if blob == nil {
			// A nil []byte binds as NULL; the empty blob must reach the
			// server as an empty string to exercise UNCOMPRESS('').
			blob = []byte{}
		}

		var decoded []byte
		require.NoError(t, db.QueryRow("SELECT UNCOMPRESS(?)", blob).Scan(&decoded))
		require.True(t, bytes.Equal(value, decoded))
	}
}

func TestUncompressedLengthMatchesServer(t *testing.T) {
	db := openDB(t)

	for _, value := range compatValues {
		blob := mysqlcompress.Compress(value)

		local, err := mysqlcompress.UncompressedLength(blob)
		require.NoError(t, err)
		require.Equal(t, len(value), local)

		arg := blob
		if arg == nil {
			arg = []byte{}
		}
		var server sql.NullInt64
		require.NoError(t, db.QueryRow("SELECT UNCOMPRESSED_LENGTH(?)", arg).Scan(&server))
		require.Equal(t, int64(local), server.Int64)
	}
}

// End-to-end through a real table: values stored via field.CompressedText
// are readable by the server's UNCOMPRESS(), and the lookup predicates
// match against the decompressed content server-side.
func TestFieldAndLookupsAgainstLiveTable(t *testing.T) {
	db := openDB(t)

	_, err := db.Exec(`CREATE TEMPORARY TABLE compat_files (
		id INT AUTO_INCREMENT PRIMARY KEY,
		content LONGBLOB NOT NULL
	)`)
	require.NoError(t, err)

	insert := func(text string) int64 {
		res, err := db.Exec("INSERT INTO compat_files (content) VALUES (?)", field.CompressedText(text))
		require.NoError(t, err)
		id, err := res.LastInsertId()
		require.NoError(t, err)

		return id
	}

	abcID := insert("abc")
	insert("def")

	queryIDs := func(p lookup.Predicate) []int64 {
		rows, err := db.Query("SELECT id FROM compat_files WHERE "+p.SQL+" ORDER BY id", p.Args...)
		require.NoError(t, err)
		defer rows.Close()

		var ids []int64
		for rows.Next() {
			var id int64
			require.NoError(t, rows.Scan(&id))
			ids = append(ids, id)
		}
		require.NoError(t, rows.Err())

		return ids
	}

	require.Equal(t, []int64{abcID}, queryIDs(lookup.Contains("content", "b")))
	require.Equal(t, []int64{abcID}, queryIDs(lookup.HasPrefix("content", "a")))
	require.Equal(t, []int64{abcID}, queryIDs(lookup.HasSuffix("content", "c")))
	require.Equal(t, []int64{abcID}, queryIDs(lookup.In("content", "abc", "123")))
	require.Len(t, queryIDs(lookup.UncompressedLengthEquals("content", 3)), 2)

	var loaded field.CompressedText
	require.NoError(t, db.QueryRow(
		"SELECT content FROM compat_files WHERE id = ?", abcID).Scan(&loaded))
	require.Equal(t, "abc", string(loaded))
}
