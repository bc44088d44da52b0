package rewrite

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// NewDecoder wraps r so that reading it yields the identity coding of a body
// sent with the given Content-Encoding. The boolean reports whether any
// decoding happens; for identity and for codings it does not know, r is
// returned as is (wrapped in a no-op closer).
func NewDecoder(r io.Reader, contentEncoding string) (io.ReadCloser, bool, error) {
	switch strings.ToLower(strings.TrimSpace(contentEncoding)) {
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, false, fmt.Errorf("gzip: %w", err)
		}
		return zr, true, nil
	case "deflate":
		return newDeflateReader(r), true, nil
	case "br":
		return io.NopCloser(brotli.NewReader(r)), true, nil
	case "zstd":
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, false, fmt.Errorf("zstd: %w", err)
		}
		return zr.IOReadCloser(), true, nil
	default:
		return io.NopCloser(r), false, nil
	}
}

// newDeflateReader handles both zlib-wrapped deflate (what RFC 9110 means by
// "deflate") and the raw deflate streams some servers send instead.
func newDeflateReader(r io.Reader) io.ReadCloser {
	br := bufio.NewReader(r)
	if hdr, err := br.Peek(2); err == nil && isZlibHeader(hdr[0], hdr[1]) {
		if zr, err := zlib.NewReader(br); err == nil {
			return zr
		}
	}
	return flate.NewReader(br)
}

func isZlibHeader(cmf, flg byte) bool {
	return cmf&0x0f == 8 && (uint16(cmf)<<8|uint16(flg))%31 == 0
}
