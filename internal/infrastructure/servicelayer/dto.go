package servicelayer

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"github.com/erp/replicator/internal/domain/replication"
	"github.com/shopspring/decimal"
)

// entitySets maps host object types to their Service Layer entity sets
var entitySets = map[replication.DocumentKind]string{
	replication.KindSalesQuotation:       "Quotations",
	replication.KindSalesOrder:           "Orders",
	replication.KindDeliveryNote:         "DeliveryNotes",
	replication.KindReturn:               "Returns",
	replication.KindInvoice:              "Invoices",
	replication.KindPurchaseOrder:        "PurchaseOrders",
	replication.KindPurchaseDeliveryNote: "PurchaseDeliveryNotes",
}

// EntitySet returns the Service Layer entity set for a document kind
func EntitySet(kind replication.DocumentKind) (string, bool) {
	set, ok := entitySets[kind]
	return set, ok
}

const dateLayout = "2006-01-02"

// slDate is a Service Layer date. Reads accept both date and timestamp forms.
type slDate struct {
	time.Time
}

func (d slDate) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

func (d *slDate) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		d.Time = time.Time{}
		return nil
	}
	s, err := strconv.Unquote(string(b))
	if err != nil {
		return err
	}
	if s == "" {
		d.Time = time.Time{}
		return nil
	}
	for _, layout := range []string{dateLayout, "2006-01-02T15:04:05Z07:00", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t
			return nil
		}
	}
	return &time.ParseError{Layout: dateLayout, Value: s}
}

type documentDTO struct {
	DocEntry        json.Number    `json:"DocEntry,omitempty"`
	DocNum          json.Number    `json:"DocNum,omitempty"`
	CardCode        string         `json:"CardCode"`
	CardName        string         `json:"CardName,omitempty"`
	DocDate         slDate         `json:"DocDate"`
	DocDueDate      slDate         `json:"DocDueDate"`
	NumAtCard       string         `json:"NumAtCard,omitempty"`
	Comments        string         `json:"Comments,omitempty"`
	SalesPersonCode int            `json:"SalesPersonCode,omitempty"`
	DocumentsOwner  int            `json:"DocumentsOwner,omitempty"`
	ShipToCode      string         `json:"ShipToCode,omitempty"`
	Address2        string         `json:"Address2,omitempty"` // ship-to
	PayToCode       string         `json:"PayToCode,omitempty"`
	Address         string         `json:"Address,omitempty"` // bill-to
	DocumentLines   []documentLine `json:"DocumentLines"`
}

type documentLine struct {
	LineNum         int         `json:"LineNum"`
	ItemCode        string      `json:"ItemCode"`
	ItemDescription string      `json:"ItemDescription,omitempty"`
	Quantity        json.Number `json:"Quantity"`
	UnitPrice       json.Number `json:"UnitPrice"`
	Currency        string      `json:"Currency,omitempty"`
	DiscountPercent json.Number `json:"DiscountPercent,omitempty"`
	TaxCode         string      `json:"TaxCode,omitempty"`
	WarehouseCode   string      `json:"WarehouseCode,omitempty"`
	BaseType        json.Number `json:"BaseType,omitempty"`
	BaseEntry       json.Number `json:"BaseEntry,omitempty"`
	BaseLine        *int        `json:"BaseLine,omitempty"`
}

type errorEnvelope struct {
	Error struct {
		Code    json.Number `json:"code"`
		Message struct {
			Value string `json:"value"`
		} `json:"message"`
	} `json:"error"`
}

type loginRequest struct {
	CompanyDB string `json:"CompanyDB"`
	UserName  string `json:"UserName"`
	Password  string `json:"Password"`
}

type loginResponse struct {
	SessionID      string `json:"SessionId"`
	SessionTimeout int    `json:"SessionTimeout"`
}

func parseDecimal(n json.Number) decimal.Decimal {
	if n == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}

func toSource(kind replication.DocumentKind, dto *documentDTO) replication.SourceDocument {
	doc := replication.SourceDocument{
		Kind:            kind,
		Key:             dto.DocEntry.String(),
		Number:          dto.DocNum.String(),
		CardCode:        dto.CardCode,
		CardName:        dto.CardName,
		DocDate:         dto.DocDate.Time,
		DueDate:         dto.DocDueDate.Time,
		NumAtCard:       dto.NumAtCard,
		Comments:        dto.Comments,
		SalesPersonCode: dto.SalesPersonCode,
		OwnerCode:       dto.DocumentsOwner,
		Address: replication.Address{
			ShipToCode: dto.ShipToCode,
			ShipTo:     dto.Address2,
			PayToCode:  dto.PayToCode,
			BillTo:     dto.Address,
		},
		Lines: make([]replication.LineItem, 0, len(dto.DocumentLines)),
	}
	for _, l := range dto.DocumentLines {
		doc.Lines = append(doc.Lines, replication.LineItem{
			LineNum:         l.LineNum,
			ItemCode:        l.ItemCode,
			Description:     l.ItemDescription,
			Quantity:        parseDecimal(l.Quantity),
			UnitPrice:       parseDecimal(l.UnitPrice),
			Currency:        l.Currency,
			DiscountPercent: parseDecimal(l.DiscountPercent),
			TaxCode:         l.TaxCode,
			WarehouseCode:   l.WarehouseCode,
		})
	}
	return doc
}

func fromDerived(doc *replication.DerivedDocument) *documentDTO {
	dto := &documentDTO{
		CardCode:        doc.CardCode,
		CardName:        doc.CardName,
		DocDate:         slDate{doc.DocDate},
		DocDueDate:      slDate{doc.DueDate},
		NumAtCard:       doc.NumAtCard,
		Comments:        doc.Comments,
		SalesPersonCode: doc.SalesPersonCode,
		DocumentsOwner:  doc.OwnerCode,
		ShipToCode:      doc.Address.ShipToCode,
		Address2:        doc.Address.ShipTo,
		PayToCode:       doc.Address.PayToCode,
		Address:         doc.Address.BillTo,
		DocumentLines:   make([]documentLine, 0, len(doc.Lines)),
	}
	for _, l := range doc.Lines {
		// BaseLine addresses the source LineNum; the mapper sends the source position
		baseLine := l.Base.Line
		line := documentLine{
			LineNum:         l.LineNum,
			ItemCode:        l.ItemCode,
			ItemDescription: l.Description,
			Quantity:        json.Number(l.Quantity.String()),
			UnitPrice:       json.Number(l.UnitPrice.String()),
			Currency:        l.Currency,
			TaxCode:         l.TaxCode,
			WarehouseCode:   l.WarehouseCode,
			BaseType:        json.Number(l.Base.Kind.String()),
			BaseEntry:       json.Number(l.Base.Key),
			BaseLine:        &baseLine,
		}
		if !l.DiscountPercent.IsZero() {
			line.DiscountPercent = json.Number(l.DiscountPercent.String())
		}
		dto.DocumentLines = append(dto.DocumentLines, line)
	}
	return dto
}
