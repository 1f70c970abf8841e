//nolint:revive // types is a common Go package naming convention
package types

import (
	"bytes"
	"encoding/json"
)

// NullText is how an absent or null scalar is rendered.
const NullText = "null"

// NotFoundText is the error text reported when K2 finds no card.
const NotFoundText = "Keine Karte gefunden"

// Envelope is the JSON document K2 returns for one card query.
//
// Scalar result fields keep their raw JSON so that absent values, null,
// strings and other scalars can each be rendered faithfully.
type Envelope struct {
	CardType    Scalar `json:"cardType"`
	ICCSN       Scalar `json:"iccsn"`
	ErrorText   Scalar `json:"errorText"`
	Instruction Scalar `json:"instruction"`
	ErrorCode   Scalar `json:"errorCode"`

	// EGKData is nil when no card matched the query.
	EGKData *EGKData `json:"eGKData,omitempty"`

	// MFEFGDO is the raw EF.GDO XML document.
	MFEFGDO *string `json:"mfefgdo,omitempty"`
	// KVKBinData is the legacy card image (base64 on the wire).
	KVKBinData []byte `json:"kvkBinData,omitempty"`
	// KVKData is the legacy card data in text form.
	KVKData *string `json:"kvkData,omitempty"`
}

// EGKData holds the per-file card contents.
type EGKData struct {
	// VD is the general insurance data (allgemeine Versicherungsdaten).
	VD *string `json:"vd,omitempty"`
	// GVD is the protected insurance data (geschuetzte Versichertendaten).
	GVD *string `json:"gvd,omitempty"`
	// PD is the personal insurance data (persoenliche Versichertendaten).
	PD *string `json:"pd,omitempty"`
	// StatusVD is the EF.StatusVD document without its XML declaration.
	StatusVD *string `json:"statusVd,omitempty"`
	// PN is the examination proof, present only after an online check.
	PN *ExaminationProof `json:"pn,omitempty"`
}

// ExaminationProof is the Pruefungsnachweis returned by an online check.
type ExaminationProof struct {
	// XML is the proof document without its XML declaration.
	XML         *string `json:"xml,omitempty"`
	Result      Scalar  `json:"ergebnis,omitempty"`
	CheckDigits Scalar  `json:"pruefziffer,omitempty"`
}

// HasCardData reports whether the envelope carries the nested card data
// object. Its absence means no card was found.
func (e *Envelope) HasCardData() bool {
	return e != nil && e.EGKData != nil
}

// NotFoundEnvelope returns the envelope standing in for a "no card" reply.
// Only the error text is set.
func NotFoundEnvelope(text string) *Envelope {
	return &Envelope{ErrorText: StringScalar(text)}
}

// Scalar is a raw JSON scalar. The zero value means the field was absent.
type Scalar []byte

// StringScalar returns a Scalar holding the JSON string s.
func StringScalar(s string) Scalar {
	b, _ := json.Marshal(s)
	return Scalar(b)
}

// UnmarshalJSON keeps a copy of the raw value, including a literal null.
func (s *Scalar) UnmarshalJSON(data []byte) error {
	*s = append((*s)[0:0], bytes.TrimSpace(data)...)
	return nil
}

// MarshalJSON writes the raw value back, or null when absent.
func (s Scalar) MarshalJSON() ([]byte, error) {
	if len(s) == 0 {
		return []byte(NullText), nil
	}
	return []byte(s), nil
}

// IsNull reports whether the value is absent or the JSON null literal.
func (s Scalar) IsNull() bool {
	return len(s) == 0 || string(s) == NullText
}

// Text renders the scalar for an XML text node: strings yield their
// content, absent and null yield "null", anything else its JSON text.
func (s Scalar) Text() string {
	if s.IsNull() {
		return NullText
	}
	if s[0] == '"' {
		var str string
		if err := json.Unmarshal(s, &str); err == nil {
			return str
		}
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, s); err != nil {
		return string(s)
	}
	return compact.String()
}
