package streambuffer

import (
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Input is data handed to Source.Put: either raw bytes or text to be encoded.
type Input struct {
	data   []byte
	text   string
	enc    encoding.Encoding
	isText bool
}

// Bytes wraps raw bytes. The bytes are copied by Put.
func Bytes(b []byte) Input {
	return Input{data: b}
}

// Text wraps a string to be encoded with enc. A nil enc is UTF-8.
func Text(s string, enc encoding.Encoding) Input {
	return Input{text: s, enc: enc, isText: true}
}

// encoded returns the raw bytes of the input.
func (in Input) encoded() ([]byte, error) {
	if !in.isText {
		return in.data, nil
	}
	return encodeText(in.text, in.enc)
}

// LookupEncoding resolves an encoding by its WHATWG or IANA name, such as
// "utf-8", "utf-16le" or "latin1".
func LookupEncoding(name string) (encoding.Encoding, error) {
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("streambuffer: unknown encoding %q: %w", name, err)
	}
	return enc, nil
}

func isUTF8(enc encoding.Encoding) bool {
	return enc == nil || enc == unicode.UTF8 || enc == encoding.Nop
}

func encodeText(s string, enc encoding.Encoding) ([]byte, error) {
	if isUTF8(enc) {
		return []byte(s), nil
	}
	b, err := enc.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("streambuffer: encode text: %w", err)
	}
	return b, nil
}

// decodePrefix decodes as much of src as forms complete characters under enc.
// It returns the text and the number of source bytes it used; a trailing
// partial character is left unconsumed.
func decodePrefix(src []byte, enc encoding.Encoding) (string, int) {
	if enc == nil || enc == encoding.Nop {
		enc = unicode.UTF8
	}
	dec := enc.NewDecoder()
	dst := make([]byte, 3*len(src)+utf8.UTFMax)
	for {
		nDst, nSrc, err := dec.Transform(dst, src, false)
		if err == transform.ErrShortDst {
			dst = make([]byte, 2*len(dst))
			dec.Reset()
			continue
		}
		return string(dst[:nDst]), nSrc
	}
}
