package mysqlcompress

import (
	"errors"
	"fmt"

	"github.com/klauspost/compress/zlib"

	"github.com/techsmartkids/mysqlcompress/internal/options"
)

// DefaultChunkSize is the number of input bytes fed to the streaming
// compressor per iteration when no WithChunkSize option is given. The value
// balances per-chunk bookkeeping against how promptly an early-exit
// threshold is noticed.
const DefaultChunkSize = 64 * 1000

// ErrInvalidOption reports an option with an out-of-range value, such as a
// non-positive chunk size or a negative threshold.
var ErrInvalidOption = errors.New("mysqlcompress: invalid option")

// Estimate is the result of CompressedLength.
//
// When Exact is true, Length equals len(Compress(data)) for the estimated
// content. When Exact is false the estimator stopped early because a
// WithStopIfGreaterThan threshold was crossed, and Length is a lower bound:
// the true compressed length is guaranteed to be no less than Length. It is
// never an overestimate.
type Estimate struct {
	Length int
	Exact  bool
}

type lengthConfig struct {
	chunkSize int
	limit     int
	hasLimit  bool
}

// LengthOption configures CompressedLength.
type LengthOption = options.Option[*lengthConfig]

// WithChunkSize sets how many input bytes are fed to the compressor per
// iteration. Smaller chunks make an early-exit threshold trip sooner at the
// cost of more iterations. The chunk size must be positive.
func WithChunkSize(n int) LengthOption {
	return options.New(func(c *lengthConfig) error {
		if n <= 0 {
			return fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidOption, n)
		}
		c.chunkSize = n

		return nil
	})
}

// WithStopIfGreaterThan makes CompressedLength stop as soon as the running
// compressed length exceeds limit, returning a lower-bound Estimate instead
// of scanning the remaining input. The limit must not be negative.
func WithStopIfGreaterThan(limit int) LengthOption {
	return options.New(func(c *lengthConfig) error {
		if limit < 0 {
			return fmt.Errorf("%w: threshold must not be negative, got %d", ErrInvalidOption, limit)
		}
		c.limit = limit
		c.hasLimit = true

		return nil
	})
}

// countingWriter discards everything written to it and keeps only the total
// byte count. It lets the estimator observe the size of the compressed
// stream without retaining it.
type countingWriter int64

func (w *countingWriter) Write(p []byte) (int, error) {
	*w += countingWriter(len(p))

	return len(p), nil
}

// CompressedLength reports the length of Compress(data) without retaining
// the compressed output, and optionally without compressing all of data.
//
// The input is fed in chunks through a single streaming compressor whose
// output is counted rather than stored; carrying compressor state across
// chunks is what keeps the count identical to compressing the content as
// one stream. After each chunk, if a WithStopIfGreaterThan threshold is set
// and the running length already exceeds it, CompressedLength returns
// immediately with Exact set to false. The bytes counted so far are a
// prefix of the real compressed stream, so the returned Length can only
// under-report, never over-report; see Estimate.
//
// Without a threshold (or when the threshold is never crossed) the stream
// is finalized and the result is exact: equal to len(Compress(data)),
// including the 4-byte length header. Empty input reports an exact zero.
//
// The only failure mode is an invalid option.
func CompressedLength(data []byte, opts ...LengthOption) (Estimate, error) {
	cfg := &lengthConfig{chunkSize: DefaultChunkSize}
	if err := options.Apply(cfg, opts...); err != nil {
		return Estimate{}, err
	}

	if len(data) == 0 {
		return Estimate{Length: 0, Exact: true}, nil
	}

	var emitted countingWriter
	zw := zlib.NewWriter(&emitted)

	for len(data) > 0 {
		chunk := data
		if len(chunk) > cfg.chunkSize {
			chunk = chunk[:cfg.chunkSize]
		}
		_, _ = zw.Write(chunk) // countingWriter cannot fail
		data = data[len(chunk):]

		if cfg.hasLimit && headerSize+int(emitted) > cfg.limit {
			return Estimate{Length: headerSize + int(emitted), Exact: false}, nil
		}
	}

	// Terminate the stream so the final partial block and the zlib trailer
	// are counted; without this the total would stop short of Compress.
	_ = zw.Close()

	return Estimate{Length: headerSize + int(emitted), Exact: true}, nil
}
