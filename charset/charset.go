// Package charset converts card data to the legacy single-byte encoding
// expected by practice management software reading the output files.
package charset

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// Name is the IANA name written into XML declarations.
const Name = "ISO-8859-15"

// XMLProlog is the declaration prepended to documents delivered without one.
const XMLProlog = `<?xml version="1.0" encoding="` + Name + `" standalone="yes"?>`

// Encode converts UTF-8 text to ISO-8859-15. Runes outside the charset are
// written as numeric character references (&#NNNN;), which keeps XML
// documents equivalent.
func Encode(s string) ([]byte, error) {
	enc := encoding.HTMLEscapeUnsupported(charmap.ISO8859_15.NewEncoder())
	return enc.Bytes([]byte(s))
}

// Decode converts ISO-8859-15 bytes to UTF-8 text.
func Decode(b []byte) (string, error) {
	out, err := charmap.ISO8859_15.NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// EncodeXML prepends XMLProlog to the fragment and encodes the result.
func EncodeXML(fragment string) ([]byte, error) {
	return Encode(XMLProlog + fragment)
}

// NewReader returns a reader converting input in the named charset to
// UTF-8. It is suitable as xml.Decoder.CharsetReader.
func NewReader(label string, input io.Reader) (io.Reader, error) {
	switch strings.ToUpper(label) {
	case "", "UTF-8", "UTF8":
		return input, nil
	case Name, "ISO8859-15", "LATIN-9", "LATIN9":
		return charmap.ISO8859_15.NewDecoder().Reader(input), nil
	default:
		return nil, fmt.Errorf("unsupported charset %q", label)
	}
}
