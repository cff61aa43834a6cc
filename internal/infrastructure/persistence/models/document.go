package models

import (
	"strconv"
	"time"

	"github.com/erp/replicator/internal/domain/replication"
	"github.com/shopspring/decimal"
)

// DocumentModel is a marketing document header. DocEntry is the store-wide object key.
type DocumentModel struct {
	DocEntry        uint                `gorm:"primaryKey;autoIncrement"`
	ObjType         string              `gorm:"type:varchar(20);not null;index:idx_documents_obj_type_num,priority:1"`
	DocNum          int                 `gorm:"not null;index:idx_documents_obj_type_num,priority:2"`
	CardCode        string              `gorm:"type:varchar(50);not null;index"`
	CardName        string              `gorm:"type:varchar(200)"`
	DocDate         time.Time           `gorm:"not null"`
	DocDueDate      *time.Time          `gorm:"default:null"`
	NumAtCard       string              `gorm:"type:varchar(100)"`
	Comments        string              `gorm:"type:text"`
	SalesPersonCode int                 `gorm:"not null;default:0"`
	OwnerCode       int                 `gorm:"not null;default:0"`
	ShipToCode      string              `gorm:"type:varchar(50)"`
	ShipTo          string              `gorm:"type:varchar(254)"`
	PayToCode       string              `gorm:"type:varchar(50)"`
	BillTo          string              `gorm:"type:varchar(254)"`
	Lines           []DocumentLineModel `gorm:"foreignKey:DocEntry;references:DocEntry;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time           `gorm:"not null"`
	UpdatedAt       time.Time           `gorm:"not null"`
}

// TableName returns the table name for GORM
func (DocumentModel) TableName() string {
	return "documents"
}

// DocumentLineModel is one row of a document. Base* link a copied line to its source line.
type DocumentLineModel struct {
	ID              uint            `gorm:"primaryKey;autoIncrement"`
	DocEntry        uint            `gorm:"not null;uniqueIndex:idx_document_lines_entry_line,priority:1"`
	LineNum         int             `gorm:"not null;uniqueIndex:idx_document_lines_entry_line,priority:2"`
	ItemCode        string          `gorm:"type:varchar(50);not null"`
	Description     string          `gorm:"type:varchar(200)"`
	Quantity        decimal.Decimal `gorm:"type:decimal(19,6);not null"`
	UnitPrice       decimal.Decimal `gorm:"type:decimal(19,6);not null"`
	Currency        string          `gorm:"type:varchar(3)"`
	DiscountPercent decimal.Decimal `gorm:"type:decimal(19,6);not null;default:0"`
	TaxCode         string          `gorm:"type:varchar(8)"`
	WarehouseCode   string          `gorm:"type:varchar(8)"`
	BaseType        string          `gorm:"type:varchar(20);index:idx_document_lines_base,priority:1"`
	BaseEntry       string          `gorm:"type:varchar(50);index:idx_document_lines_base,priority:2"`
	BaseLine        *int
}

// TableName returns the table name for GORM
func (DocumentLineModel) TableName() string {
	return "document_lines"
}

// Key returns the object key as the host reports it
func (m *DocumentModel) Key() string {
	return strconv.FormatUint(uint64(m.DocEntry), 10)
}

// ToSource converts the persistence model to a domain SourceDocument
func (m *DocumentModel) ToSource() replication.SourceDocument {
	doc := replication.SourceDocument{
		Kind:            replication.DocumentKind(m.ObjType),
		Key:             m.Key(),
		Number:          strconv.Itoa(m.DocNum),
		CardCode:        m.CardCode,
		CardName:        m.CardName,
		DocDate:         m.DocDate,
		NumAtCard:       m.NumAtCard,
		Comments:        m.Comments,
		SalesPersonCode: m.SalesPersonCode,
		OwnerCode:       m.OwnerCode,
		Address: replication.Address{
			ShipToCode: m.ShipToCode,
			ShipTo:     m.ShipTo,
			PayToCode:  m.PayToCode,
			BillTo:     m.BillTo,
		},
		Lines: make([]replication.LineItem, 0, len(m.Lines)),
	}
	if m.DocDueDate != nil {
		doc.DueDate = *m.DocDueDate
	}
	for _, l := range m.Lines {
		doc.Lines = append(doc.Lines, l.toLineItem())
	}
	return doc
}

func (l *DocumentLineModel) toLineItem() replication.LineItem {
	return replication.LineItem{
		LineNum:         l.LineNum,
		ItemCode:        l.ItemCode,
		Description:     l.Description,
		Quantity:        l.Quantity,
		UnitPrice:       l.UnitPrice,
		Currency:        l.Currency,
		DiscountPercent: l.DiscountPercent,
		TaxCode:         l.TaxCode,
		WarehouseCode:   l.WarehouseCode,
	}
}

func lineFromItem(item replication.LineItem) DocumentLineModel {
	return DocumentLineModel{
		LineNum:         item.LineNum,
		ItemCode:        item.ItemCode,
		Description:     item.Description,
		Quantity:        item.Quantity,
		UnitPrice:       item.UnitPrice,
		Currency:        item.Currency,
		DiscountPercent: item.DiscountPercent,
		TaxCode:         item.TaxCode,
		WarehouseCode:   item.WarehouseCode,
	}
}

func dueDate(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// FromSource builds a model for a seeded source document. Its key is assigned on insert.
func FromSource(doc *replication.SourceDocument) *DocumentModel {
	m := &DocumentModel{
		ObjType:         doc.Kind.String(),
		CardCode:        doc.CardCode,
		CardName:        doc.CardName,
		DocDate:         doc.DocDate,
		DocDueDate:      dueDate(doc.DueDate),
		NumAtCard:       doc.NumAtCard,
		Comments:        doc.Comments,
		SalesPersonCode: doc.SalesPersonCode,
		OwnerCode:       doc.OwnerCode,
		ShipToCode:      doc.Address.ShipToCode,
		ShipTo:          doc.Address.ShipTo,
		PayToCode:       doc.Address.PayToCode,
		BillTo:          doc.Address.BillTo,
		Lines:           make([]DocumentLineModel, 0, len(doc.Lines)),
	}
	for _, item := range doc.Lines {
		m.Lines = append(m.Lines, lineFromItem(item))
	}
	return m
}

// FromDerived builds a model for a derived document, keeping each line's base reference
func FromDerived(doc *replication.DerivedDocument) *DocumentModel {
	m := &DocumentModel{
		ObjType:         doc.Kind.String(),
		CardCode:        doc.CardCode,
		CardName:        doc.CardName,
		DocDate:         doc.DocDate,
		DocDueDate:      dueDate(doc.DueDate),
		NumAtCard:       doc.NumAtCard,
		Comments:        doc.Comments,
		SalesPersonCode: doc.SalesPersonCode,
		OwnerCode:       doc.OwnerCode,
		ShipToCode:      doc.Address.ShipToCode,
		ShipTo:          doc.Address.ShipTo,
		PayToCode:       doc.Address.PayToCode,
		BillTo:          doc.Address.BillTo,
		Lines:           make([]DocumentLineModel, 0, len(doc.Lines)),
	}
	for _, l := range doc.Lines {
		line := lineFromItem(l.LineItem)
		baseLine := l.Base.Line
		line.BaseType = l.Base.Kind.String()
		line.BaseEntry = l.Base.Key
		line.BaseLine = &baseLine
		m.Lines = append(m.Lines, line)
	}
	return m
}
