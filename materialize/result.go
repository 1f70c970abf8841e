package materialize

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"github.com/maxmartens/k2-creek/charset"
	"github.com/maxmartens/k2-creek/types"
)

// ResultDocument is the content of Result.xml. Every field holds the
// envelope value as text, or "null" when the envelope did not supply one.
type ResultDocument struct {
	XMLName     xml.Name `xml:"Result" json:"-" yaml:"-"`
	CardType    string   `xml:"cardType" json:"card_type" yaml:"card_type"`
	ICCSN       string   `xml:"iccsn" json:"iccsn" yaml:"iccsn"`
	ErrorText   string   `xml:"errorText" json:"error_text" yaml:"error_text"`
	Instruction string   `xml:"instruction" json:"instruction" yaml:"instruction"`
	ErrorCode   string   `xml:"errorCode" json:"error_code" yaml:"error_code"`
}

// NewResultDocument renders the scalar fields of env.
func NewResultDocument(env *types.Envelope) *ResultDocument {
	if env == nil {
		env = &types.Envelope{}
	}
	return &ResultDocument{
		CardType:    env.CardType.Text(),
		ICCSN:       env.ICCSN.Text(),
		ErrorText:   env.ErrorText.Text(),
		Instruction: env.Instruction.Text(),
		ErrorCode:   env.ErrorCode.Text(),
	}
}

// BuildResult renders Result.xml for env, ISO-8859-15 encoded.
func BuildResult(env *types.Envelope) ([]byte, error) {
	body, err := xml.MarshalIndent(NewResultDocument(env), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result document: %w", err)
	}

	var doc bytes.Buffer
	doc.WriteString(charset.XMLProlog)
	doc.WriteByte('\n')
	doc.Write(body)
	doc.WriteByte('\n')

	return charset.Encode(doc.String())
}

// ParseResult decodes a Result.xml document.
func ParseResult(data []byte) (*ResultDocument, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charset.NewReader

	var doc ResultDocument
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse result document: %w", err)
	}
	return &doc, nil
}
