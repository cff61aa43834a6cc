package replication

import (
	"fmt"
	"time"

	"github.com/erp/replicator/internal/domain/shared"
)

// Mapper builds a derived document from a source document.
// Map is pure: the same source and the same now always produce the same result.
type Mapper struct {
	DerivedKind DocumentKind
	SourceLabel string // human name of the source kind used in the provenance note
}

// NewMapper creates a mapper producing documents of derivedKind
func NewMapper(derivedKind DocumentKind, sourceLabel string) Mapper {
	return Mapper{
		DerivedKind: derivedKind,
		SourceLabel: sourceLabel,
	}
}

// Map copies the header and every line of src into a new derived document dated now.
// Line i of the result is a copy of line i of src with a back-reference to it.
func (m Mapper) Map(src *SourceDocument, now time.Time) (*DerivedDocument, error) {
	if src == nil {
		return nil, shared.NewDomainError(shared.ErrInvalidSource.Code, "Source document is nil")
	}
	if src.Key == "" {
		return nil, shared.NewDomainError(shared.ErrInvalidSource.Code, "Source document has no key")
	}

	doc := &DerivedDocument{
		Kind:            m.DerivedKind,
		CardCode:        src.CardCode,
		CardName:        src.CardName,
		DocDate:         now,
		DueDate:         now,
		NumAtCard:       src.NumAtCard,
		Comments:        m.ProvenanceNote(src.Key),
		SalesPersonCode: src.SalesPersonCode,
		OwnerCode:       src.OwnerCode,
		Address:         src.Address,
		Lines:           make([]DerivedLine, len(src.Lines)),
	}

	for i, line := range src.Lines {
		copied := line
		copied.LineNum = i
		doc.Lines[i] = DerivedLine{
			LineItem: copied,
			Base: BaseReference{
				Kind: src.Kind,
				Key:  src.Key,
				// position in the source sequence; the host resolves BaseLine by LineNum, which
				// matches only while source line numbers are contiguous from zero
				Line: i,
			},
		}
	}

	return doc, nil
}

// ProvenanceNote returns the header comment identifying the source document
func (m Mapper) ProvenanceNote(sourceKey string) string {
	label := m.SourceLabel
	if label == "" {
		label = "Source Document"
	}
	return fmt.Sprintf("Based On %s %s.", label, sourceKey)
}
