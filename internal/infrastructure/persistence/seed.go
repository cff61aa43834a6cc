package persistence

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/erp/replicator/internal/domain/replication"
	"github.com/erp/replicator/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// SeedFile is the YAML layout accepted by Seed
type SeedFile struct {
	Documents []SeedDocument `yaml:"documents"`
}

// SeedDocument is one source document in a seed file
type SeedDocument struct {
	Kind            string     `yaml:"kind"`
	CardCode        string     `yaml:"card_code"`
	CardName        string     `yaml:"card_name"`
	DocDate         string     `yaml:"doc_date"`
	DueDate         string     `yaml:"due_date"`
	NumAtCard       string     `yaml:"num_at_card"`
	Comments        string     `yaml:"comments"`
	SalesPersonCode int        `yaml:"sales_person_code"`
	OwnerCode       int        `yaml:"owner_code"`
	ShipToCode      string     `yaml:"ship_to_code"`
	ShipTo          string     `yaml:"ship_to"`
	PayToCode       string     `yaml:"pay_to_code"`
	BillTo          string     `yaml:"bill_to"`
	Lines           []SeedLine `yaml:"lines"`
}

// SeedLine is one line of a seeded document. Amounts are strings to keep them exact.
type SeedLine struct {
	ItemCode        string `yaml:"item_code"`
	Description     string `yaml:"description"`
	Quantity        string `yaml:"quantity"`
	UnitPrice       string `yaml:"unit_price"`
	Currency        string `yaml:"currency"`
	DiscountPercent string `yaml:"discount_percent"`
	TaxCode         string `yaml:"tax_code"`
	WarehouseCode   string `yaml:"warehouse_code"`
}

// LoadSeed decodes and validates a YAML seed file
func LoadSeed(r io.Reader) ([]replication.SourceDocument, error) {
	var file SeedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to decode seed file: %w", err)
	}

	docs := make([]replication.SourceDocument, 0, len(file.Documents))
	for i, sd := range file.Documents {
		doc, err := sd.toSource()
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (sd *SeedDocument) toSource() (replication.SourceDocument, error) {
	kind := replication.DocumentKind(sd.Kind)
	if kind == "" {
		kind = replication.KindSalesOrder
	}
	if sd.CardCode == "" {
		return replication.SourceDocument{}, fmt.Errorf("card_code is required")
	}
	docDate, err := parseDate(sd.DocDate)
	if err != nil {
		return replication.SourceDocument{}, fmt.Errorf("doc_date: %w", err)
	}
	if docDate.IsZero() {
		docDate = time.Now().UTC().Truncate(24 * time.Hour)
	}
	dueDate, err := parseDate(sd.DueDate)
	if err != nil {
		return replication.SourceDocument{}, fmt.Errorf("due_date: %w", err)
	}

	doc := replication.SourceDocument{
		Kind:            kind,
		CardCode:        sd.CardCode,
		CardName:        sd.CardName,
		DocDate:         docDate,
		DueDate:         dueDate,
		NumAtCard:       sd.NumAtCard,
		Comments:        sd.Comments,
		SalesPersonCode: sd.SalesPersonCode,
		OwnerCode:       sd.OwnerCode,
		Address: replication.Address{
			ShipToCode: sd.ShipToCode,
			ShipTo:     sd.ShipTo,
			PayToCode:  sd.PayToCode,
			BillTo:     sd.BillTo,
		},
		Lines: make([]replication.LineItem, 0, len(sd.Lines)),
	}
	for i, l := range sd.Lines {
		item, err := l.toLineItem(i)
		if err != nil {
			return replication.SourceDocument{}, fmt.Errorf("line %d: %w", i, err)
		}
		doc.Lines = append(doc.Lines, item)
	}
	return doc, nil
}

func (l *SeedLine) toLineItem(lineNum int) (replication.LineItem, error) {
	if l.ItemCode == "" {
		return replication.LineItem{}, fmt.Errorf("item_code is required")
	}
	qty, err := parseAmount(l.Quantity)
	if err != nil {
		return replication.LineItem{}, fmt.Errorf("quantity: %w", err)
	}
	price, err := parseAmount(l.UnitPrice)
	if err != nil {
		return replication.LineItem{}, fmt.Errorf("unit_price: %w", err)
	}
	discount, err := parseAmount(l.DiscountPercent)
	if err != nil {
		return replication.LineItem{}, fmt.Errorf("discount_percent: %w", err)
	}
	return replication.LineItem{
		LineNum:         lineNum,
		ItemCode:        l.ItemCode,
		Description:     l.Description,
		Quantity:        qty,
		UnitPrice:       price,
		Currency:        l.Currency,
		DiscountPercent: discount,
		TaxCode:         l.TaxCode,
		WarehouseCode:   l.WarehouseCode,
	}, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", s)
}

// Seed stores source documents and returns their assigned keys in input order
func (s *DocumentStore) Seed(ctx context.Context, docs []replication.SourceDocument) ([]string, error) {
	keys := make([]string, 0, len(docs))
	for i := range docs {
		m := models.FromSource(&docs[i])
		if err := s.Insert(ctx, m); err != nil {
			return keys, fmt.Errorf("failed to seed document %d: %w", i, err)
		}
		keys = append(keys, m.Key())
		s.logger.Debug("seeded document",
			zap.String("obj_type", m.ObjType),
			zap.String("key", m.Key()),
			zap.Int("lines", len(m.Lines)),
		)
	}
	return keys, nil
}
