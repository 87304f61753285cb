// Package mysqlcompress implements the value format produced by MySQL's
// COMPRESS() function, together with a streaming length estimator for it.
//
// The format is a thin frame around a standard zlib stream:
//
//	empty input  -> empty output
//	non-empty    -> [4 bytes: uncompressed length, little-endian, mod 2^32]
//	               [N bytes: zlib stream of the input]
//
// Blobs produced by Compress decompress correctly with MySQL's own
// UNCOMPRESS() function, and blobs produced by COMPRESS() on the server
// decompress correctly with Uncompress. This makes it practical to store
// large text values compressed at rest while still letting the database
// decompress them server-side at query time, e.g. to answer substring
// lookups without shipping every row to the application. The lookup
// subpackage builds such queries; the field subpackage adapts values for
// database/sql.
//
// # Basic Usage
//
//	blob := mysqlcompress.Compress([]byte("<html>...</html>"))
//	// store blob in a LONGBLOB column ...
//
//	raw, err := mysqlcompress.Uncompress(blob)
//	if err != nil {
//	    // blob is corrupt or truncated
//	}
//
// To decide whether a value is worth compressing without materializing the
// full compressed output, use CompressedLength with a stop threshold:
//
//	est, _ := mysqlcompress.CompressedLength(raw,
//	    mysqlcompress.WithStopIfGreaterThan(64*1024))
//	if !est.Exact {
//	    // compressed size already exceeds 64 KiB; est.Length is a lower bound
//	}
//
// # Concurrency
//
// All functions are pure: each call owns its compressor or decompressor
// state exclusively for the call's duration, so concurrent use requires no
// coordination.
package mysqlcompress

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// headerSize is the size of the uncompressed-length prefix that MySQL's
// COMPRESS() places before the zlib stream.
const headerSize = 4

// ErrCorrupt reports a compressed value that Uncompress or
// UncompressedLength cannot interpret: a non-empty blob shorter than the
// length header, an invalid or checksum-failing zlib stream, or a stream
// whose decompressed length disagrees with the header. Errors returned by
// this package wrap ErrCorrupt, so callers can test for it with errors.Is.
var ErrCorrupt = errors.New("mysqlcompress: corrupt compressed value")

// Compress returns data encoded in the format of MySQL's COMPRESS()
// function: a 4-byte little-endian uncompressed-length prefix followed by a
// zlib stream of data at the default compression level.
//
// Empty input returns an empty result, mirroring COMPRESS(''), which skips
// the header for the degenerate case.
//
// The length prefix stores len(data) mod 2^32. Inputs of 4 GiB and above
// wrap around, exactly as MySQL's own function does; callers storing such
// values are responsible for keeping them below the server's
// max_allowed_packet anyway.
func Compress(data []byte) []byte {
	if len(data) == 0 {
		return nil
	}

	out := make([]byte, headerSize, headerSize+len(data)/2+64)
	binary.LittleEndian.PutUint32(out, uint32(len(data)))

	buf := bytes.NewBuffer(out)
	zw := zlib.NewWriter(buf)
	_, _ = zw.Write(data) // writes to a bytes.Buffer cannot fail
	_ = zw.Close()

	return buf.Bytes()
}

// Uncompress decodes a blob in the format of MySQL's COMPRESS() function
// and returns the original content.
//
// Empty input returns an empty result. For non-empty input, Uncompress
// fails with an error wrapping ErrCorrupt when the blob is shorter than the
// 4-byte length header, when the remaining bytes are not a valid zlib
// stream, or when the decompressed length disagrees with the header. The
// last case is treated as corruption rather than tolerated: the same blob
// may be decompressed independently by the database server, and a value
// that lies about its own length is not safe to hand back.
func Uncompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: %d bytes is too short to carry a length header", ErrCorrupt, len(data))
	}

	want := binary.LittleEndian.Uint32(data[:headerSize])

	zr, err := zlib.NewReader(bytes.NewReader(data[headerSize:]))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if uint32(len(out)) != want {
		return nil, fmt.Errorf("%w: length header claims %d bytes, stream yields %d", ErrCorrupt, want, len(out))
	}

	return out, nil
}

// UncompressedLength returns the decompressed size recorded in a blob's
// length header without decompressing it, matching MySQL's
// UNCOMPRESSED_LENGTH() function. Empty input reports zero. A non-empty
// blob shorter than the header fails with an error wrapping ErrCorrupt.
//
// The header is advisory: it is written by Compress and verified against
// the stream by Uncompress, but a hand-crafted blob can claim any value.
func UncompressedLength(data []byte) (int, error) {
	if len(data) == 0 {
		return 0, nil
	}
	if len(data) < headerSize {
		return 0, fmt.Errorf("%w: %d bytes is too short to carry a length header", ErrCorrupt, len(data))
	}

	return int(binary.LittleEndian.Uint32(data[:headerSize])), nil
}
