package persistence

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/erp/replicator/internal/domain/replication"
	"github.com/erp/replicator/internal/infrastructure/persistence/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Result codes the store reports through LastError, in the host's numbering style
const (
	CodeInvalidDocument = -5002 // document fails validation
	CodeBaseNotFound    = -2028 // a line references a base document that does not exist
	CodeStoreFailure    = -1    // the database refused the write
)

// DocumentStore is a database-backed document store that behaves like the host's data API.
// It implements replication.DataAPI.
type DocumentStore struct {
	db     *gorm.DB
	logger *zap.Logger

	mu        sync.Mutex
	lastCode  int
	lastDesc  string
	newObjKey string
}

var _ replication.DataAPI = (*DocumentStore)(nil)

// NewDocumentStore creates a new DocumentStore
func NewDocumentStore(db *gorm.DB, logger *zap.Logger) *DocumentStore {
	return &DocumentStore{db: db, logger: logger}
}

// Migrate creates or updates the document tables
func (s *DocumentStore) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&models.DocumentModel{}, &models.DocumentLineModel{}); err != nil {
		return fmt.Errorf("failed to migrate document tables: %w", err)
	}
	return nil
}

// GetBusinessObject returns a handle for documents of the given kind
func (s *DocumentStore) GetBusinessObject(_ context.Context, kind replication.DocumentKind) (replication.BusinessObject, error) {
	if kind == "" {
		return nil, errors.New("object type is required")
	}
	return &storedObject{store: s, kind: kind}, nil
}

// LastError returns the code and description of the most recent failed Add
func (s *DocumentStore) LastError() (int, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastCode, s.lastDesc
}

// NewObjectKey returns the key assigned by the most recent successful Add
func (s *DocumentStore) NewObjectKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.newObjKey
}

func (s *DocumentStore) fail(code int, format string, args ...any) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastCode, s.lastDesc = code, fmt.Sprintf(format, args...)
	return code
}

func (s *DocumentStore) succeed(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.newObjKey = key
	return 0
}

// Find loads a document with its lines. A missing document is (nil, nil).
func (s *DocumentStore) Find(ctx context.Context, kind replication.DocumentKind, key string) (*models.DocumentModel, error) {
	entry, err := strconv.ParseUint(key, 10, 64)
	if err != nil {
		return nil, nil
	}
	var m models.DocumentModel
	err = s.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("line_num") }).
		Where("obj_type = ?", kind.String()).
		First(&m, "doc_entry = ?", entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Insert stores a document, assigning its DocEntry and next DocNum for its kind
func (s *DocumentStore) Insert(ctx context.Context, m *models.DocumentModel) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxNum int
		if err := tx.Model(&models.DocumentModel{}).
			Where("obj_type = ?", m.ObjType).
			Select("COALESCE(MAX(doc_num), 0)").
			Scan(&maxNum).Error; err != nil {
			return err
		}
		m.DocNum = maxNum + 1
		return tx.Create(m).Error
	})
}

// storedObject is a handle on documents of one kind
type storedObject struct {
	store  *DocumentStore
	kind   replication.DocumentKind
	loaded replication.SourceDocument
	staged *replication.DerivedDocument
	closed bool
}

var _ replication.BusinessObject = (*storedObject)(nil)

func (o *storedObject) GetByKey(ctx context.Context, key string) (bool, error) {
	if o.closed {
		return false, errors.New("business object is closed")
	}
	m, err := o.store.Find(ctx, o.kind, key)
	if err != nil {
		return false, fmt.Errorf("failed to load document %s: %w", key, err)
	}
	if m == nil {
		return false, nil
	}
	o.loaded = m.ToSource()
	return true, nil
}

func (o *storedObject) Document() replication.SourceDocument {
	return o.loaded
}

func (o *storedObject) SetDocument(doc *replication.DerivedDocument) {
	o.staged = doc
}

// Add validates and stores the staged document in one transaction
func (o *storedObject) Add(ctx context.Context) int {
	s := o.store
	doc := o.staged
	switch {
	case o.closed:
		return s.fail(CodeStoreFailure, "business object is closed")
	case doc == nil:
		return s.fail(CodeInvalidDocument, "no document staged")
	case doc.CardCode == "":
		return s.fail(CodeInvalidDocument, "Business partner code is missing")
	case len(doc.Lines) == 0:
		return s.fail(CodeInvalidDocument, "Document has no lines")
	}
	bases := make(map[string]map[int]bool)
	for i, l := range doc.Lines {
		if l.ItemCode == "" {
			return s.fail(CodeInvalidDocument, "Line %d: item code is missing", i)
		}
		if !l.Quantity.IsPositive() {
			return s.fail(CodeInvalidDocument, "Line %d: quantity must be positive", i)
		}
		if l.Base.Key == "" {
			continue
		}
		ref := l.Base.Kind.String() + "/" + l.Base.Key
		lines, ok := bases[ref]
		if !ok {
			base, err := s.Find(ctx, l.Base.Kind, l.Base.Key)
			if err != nil {
				return s.fail(CodeStoreFailure, "%v", err)
			}
			lines = make(map[int]bool)
			if base != nil {
				for _, bl := range base.Lines {
					lines[bl.LineNum] = true
				}
			}
			bases[ref] = lines
		}
		if !lines[l.Base.Line] {
			return s.fail(CodeBaseNotFound, "Base document line %s/%d not found", l.Base.Key, l.Base.Line)
		}
	}

	m := models.FromDerived(doc)
	m.ObjType = o.kind.String()
	if err := s.Insert(ctx, m); err != nil {
		s.logger.Error("failed to store document",
			zap.String("obj_type", m.ObjType),
			zap.Error(err),
		)
		return s.fail(CodeStoreFailure, "%v", err)
	}
	return s.succeed(m.Key())
}

func (o *storedObject) Close() error {
	o.closed = true
	o.staged = nil
	return nil
}
