package internal

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// UTF8StreamDecoder decodes a byte stream delivered in arbitrary blocks.
// An incomplete multi-byte sequence at the end of a block is held back and
// completed by the next block; invalid bytes become U+FFFD.
type UTF8StreamDecoder struct {
	t       transform.Transformer
	pending []byte
}

// NewUTF8StreamDecoder creates a decoder with no pending bytes
func NewUTF8StreamDecoder() *UTF8StreamDecoder {
	return &UTF8StreamDecoder{t: unicode.UTF8.NewDecoder()}
}

// Decode returns the text decodable from the pending bytes plus p.
// With final set, any leftover partial sequence is flushed as U+FFFD.
func (d *UTF8StreamDecoder) Decode(p []byte, final bool) string {
	src := make([]byte, 0, len(d.pending)+len(p))
	src = append(src, d.pending...)
	src = append(src, p...)
	d.pending = nil

	var out strings.Builder
	dst := make([]byte, 3*len(src)+utf8.UTFMax)
	for {
		nDst, nSrc, err := d.t.Transform(dst, src, final)
		out.Write(dst[:nDst])
		src = src[nSrc:]

		switch err {
		case nil:
			if final {
				d.t.Reset()
			}
			return out.String()
		case transform.ErrShortSrc:
			d.pending = append(d.pending, src...)
			return out.String()
		case transform.ErrShortDst:
			if nDst == 0 && nSrc == 0 {
				dst = make([]byte, 2*len(dst))
			}
		default:
			LogWarn("utf-8 decode failed, dropping %d bytes: %v", len(src), err)
			d.t.Reset()
			return out.String()
		}
	}
}

// Pending returns the number of bytes held back for the next block
func (d *UTF8StreamDecoder) Pending() int {
	return len(d.pending)
}
