package journal

import (
	"fmt"

	"github.com/dfandrich/testclutch-curl-web/pkg/stringutil"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// Decoder turns raw field bytes into text. Decoding never fails: bytes that
// cannot be decoded are replaced with visible escapes.
type Decoder interface {
	Decode(b []byte) string
}

type utf8Decoder struct{}

func (utf8Decoder) Decode(b []byte) string {
	return stringutil.BackslashReplace(b)
}

type textDecoder struct {
	enc encoding.Encoding
}

func (d textDecoder) Decode(b []byte) string {
	out, err := d.enc.NewDecoder().Bytes(b)
	if err != nil {
		return stringutil.BackslashReplace(b)
	}
	return string(out)
}

// NewDecoder returns a Decoder for a WHATWG charset label such as "utf-8",
// "latin1" or "windows-1252".
func NewDecoder(charset string) (Decoder, error) {
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, fmt.Errorf("unknown charset %q: %w", charset, err)
	}
	if name, _ := htmlindex.Name(enc); name == "utf-8" {
		return utf8Decoder{}, nil
	}
	return textDecoder{enc: enc}, nil
}

// UTF8 is the default decoder.
var UTF8 Decoder = utf8Decoder{}
