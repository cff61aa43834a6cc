package replication

import (
	"time"

	"github.com/shopspring/decimal"
)

// DocumentKind is the host's object type code for a document (e.g. "17" for sales orders).
type DocumentKind string

// Host object type codes for the marketing documents the replicator knows about
const (
	KindSalesQuotation       DocumentKind = "23"
	KindSalesOrder           DocumentKind = "17"
	KindDeliveryNote         DocumentKind = "15"
	KindReturn               DocumentKind = "16"
	KindInvoice              DocumentKind = "13"
	KindPurchaseOrder        DocumentKind = "22"
	KindPurchaseDeliveryNote DocumentKind = "20"
)

// String returns the string representation of DocumentKind
func (k DocumentKind) String() string {
	return string(k)
}

// Address holds the ship-to and bill-to fields of a document header
type Address struct {
	ShipToCode string
	ShipTo     string
	PayToCode  string
	BillTo     string
}

// LineItem is one row of a document. LineNum is its zero-based position in the owning document.
type LineItem struct {
	LineNum         int
	ItemCode        string
	Description     string
	Quantity        decimal.Decimal
	UnitPrice       decimal.Decimal
	Currency        string
	DiscountPercent decimal.Decimal
	TaxCode         string
	WarehouseCode   string
}

// SourceDocument is a finalized host document that triggers replication.
// It is read-only to the replicator.
type SourceDocument struct {
	Kind            DocumentKind
	Key             string
	Number          string
	CardCode        string
	CardName        string
	DocDate         time.Time
	DueDate         time.Time
	NumAtCard       string // external reference number
	Comments        string
	SalesPersonCode int
	OwnerCode       int
	Address         Address
	Lines           []LineItem
}

// BaseReference links a derived line to the exact source line it was copied from
type BaseReference struct {
	Kind DocumentKind
	Key  string
	Line int
}

// DerivedLine is a copied line carrying its back-reference
type DerivedLine struct {
	LineItem
	Base BaseReference
}

// DerivedDocument is the document built from a SourceDocument.
// Key is empty until the host store assigns one on create.
type DerivedDocument struct {
	Kind            DocumentKind
	Key             string
	CardCode        string
	CardName        string
	DocDate         time.Time
	DueDate         time.Time
	NumAtCard       string
	Comments        string // provenance note
	SalesPersonCode int
	OwnerCode       int
	Address         Address
	Lines           []DerivedLine
}

// LineCount returns the number of lines in the derived document
func (d *DerivedDocument) LineCount() int {
	return len(d.Lines)
}
