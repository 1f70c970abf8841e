//nolint:revive // types is a common Go package naming convention
package types

import (
	"errors"
	"fmt"
)

// ArtifactKind identifies one of the output files a run can produce.
// The set is closed; every kind maps to exactly one filename.
type ArtifactKind int

// Artifact kinds in table order.
const (
	ArtifactGeneralInsuranceData ArtifactKind = iota
	ArtifactProtectedInsuranceData
	ArtifactPersonalInsuranceData
	ArtifactStatusVD
	ArtifactExaminationProof
	ArtifactMFEFGDO
	ArtifactResultSummary
	ArtifactLegacyCardBinary
	ArtifactLegacyCardData
)

// ErrUnknownArtifactKind is returned for a kind outside the filename table.
// Seeing it means the enumeration grew without the table being updated.
var ErrUnknownArtifactKind = errors.New("unknown artifact kind")

type artifactEntry struct {
	name     string
	filename string
}

// artifactTable is indexed by ArtifactKind and never mutated.
var artifactTable = [...]artifactEntry{
	ArtifactGeneralInsuranceData:   {"vd", "eGK_allgemeineVersicherungsdaten.xml"},
	ArtifactProtectedInsuranceData: {"gvd", "eGK_geschuetzteVersichertendaten.xml"},
	ArtifactPersonalInsuranceData:  {"pd", "eGK_PersoenlicheVersichertendaten.xml"},
	ArtifactStatusVD:               {"status_vd", "eGK_MFDF_HCA_EF_StatusVD.xml"},
	ArtifactExaminationProof:       {"pn", "eGK_Pruefungsnachweis.xml"},
	ArtifactMFEFGDO:                {"mfefgdo", "eGK_MFEFGDO.xml"},
	ArtifactResultSummary:          {"result", "Result.xml"},
	ArtifactLegacyCardBinary:       {"kvk_bin", "KVK_Daten.bin"},
	ArtifactLegacyCardData:         {"kvk_dat", "KVK.dat"},
}

// Valid reports whether k is part of the artifact table.
func (k ArtifactKind) Valid() bool {
	return k >= 0 && int(k) < len(artifactTable)
}

// String returns a short stable name used in logs and reports.
func (k ArtifactKind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("ArtifactKind(%d)", int(k))
	}
	return artifactTable[k].name
}

// Filename returns the canonical filename for the kind.
func Filename(k ArtifactKind) (string, error) {
	if !k.Valid() {
		return "", fmt.Errorf("%w: %d", ErrUnknownArtifactKind, int(k))
	}
	return artifactTable[k].filename, nil
}

// MustFilename is Filename for kinds known at compile time.
// It panics on an unknown kind.
func MustFilename(k ArtifactKind) string {
	name, err := Filename(k)
	if err != nil {
		panic(err)
	}
	return name
}

// AllArtifactKinds returns every kind in table order.
func AllArtifactKinds() []ArtifactKind {
	kinds := make([]ArtifactKind, len(artifactTable))
	for i := range artifactTable {
		kinds[i] = ArtifactKind(i)
	}
	return kinds
}

// DataArtifactKinds returns every kind carrying card data, i.e. all kinds
// except the result summary.
func DataArtifactKinds() []ArtifactKind {
	kinds := make([]ArtifactKind, 0, len(artifactTable)-1)
	for _, k := range AllArtifactKinds() {
		if k != ArtifactResultSummary {
			kinds = append(kinds, k)
		}
	}
	return kinds
}
