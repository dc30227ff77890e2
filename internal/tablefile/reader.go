package tablefile

// reader.go cleans raw bytes before they reach the CSV parser:
//
//   - a leading UTF-8 BOM (0xEF 0xBB 0xBF) from spreadsheet exports is dropped
//   - invalid UTF-8 bytes are replaced with '?'
//
// Use cleanReader to apply both in the right order.

import (
	"bufio"
	"bytes"
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// skipBOM returns a reader positioned after a leading BOM, if any.
func skipBOM(r io.Reader) (*bufio.Reader, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(utf8BOM))
	if err != nil && err != io.EOF {
		return nil, err
	}
	if bytes.Equal(head, utf8BOM) {
		if _, err := br.Discard(len(utf8BOM)); err != nil {
			return nil, err
		}
	}
	return br, nil
}

// sanitizer replaces each invalid UTF-8 byte with '?'. Valid multi-byte
// sequences split across reads are never broken since decoding goes through
// bufio's rune reader.
type sanitizer struct {
	src *bufio.Reader
	buf [utf8.UTFMax]byte
	out []byte
}

func (s *sanitizer) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if len(s.out) > 0 {
			c := copy(p[n:], s.out)
			s.out = s.out[c:]
			n += c
			continue
		}

		r, size, err := s.src.ReadRune()
		if err != nil {
			if n > 0 && err == io.EOF {
				return n, nil
			}
			return n, err
		}

		switch {
		case r == utf8.RuneError && size == 1:
			p[n] = '?'
			n++
		case size == 1:
			p[n] = byte(r)
			n++
		default:
			w := utf8.EncodeRune(s.buf[:], r)
			s.out = s.buf[:w]
		}

		// Never block on the source while holding data.
		if s.src.Buffered() == 0 && len(s.out) == 0 {
			return n, nil
		}
	}
	return n, nil
}

// cleanReader strips a BOM and then sanitizes UTF-8.
func cleanReader(r io.Reader) (io.Reader, error) {
	br, err := skipBOM(r)
	if err != nil {
		return nil, err
	}
	return &sanitizer{src: br}, nil
}
