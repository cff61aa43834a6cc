// Package replication orchestrates one replication attempt: fetch the source document,
// map it, commit the derived document and report the outcome.
package replication

import (
	"context"
	"fmt"

	"github.com/erp/replicator/internal/domain/replication"
	"go.uber.org/zap"
)

// DocumentFetcher loads source documents through the host data API
type DocumentFetcher struct {
	api    replication.DataAPI
	logger *zap.Logger
}

// NewDocumentFetcher creates a new DocumentFetcher
func NewDocumentFetcher(api replication.DataAPI, logger *zap.Logger) *DocumentFetcher {
	return &DocumentFetcher{
		api:    api,
		logger: logger,
	}
}

// Fetch returns the document of the given kind and key.
// A document the host does not know yields a *replication.NotFoundError.
func (f *DocumentFetcher) Fetch(ctx context.Context, kind replication.DocumentKind, key string) (*replication.SourceDocument, error) {
	obj, err := f.api.GetBusinessObject(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire business object %s: %w", kind, err)
	}
	defer closeHandle(obj, f.logger, kind)

	found, err := obj.GetByKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load document %s: %w", key, err)
	}
	if !found {
		return nil, &replication.NotFoundError{Kind: kind, Key: key}
	}

	doc := obj.Document()
	if doc.Kind == "" {
		doc.Kind = kind
	}
	if doc.Key == "" {
		doc.Key = key
	}
	return &doc, nil
}

func closeHandle(obj replication.BusinessObject, logger *zap.Logger, kind replication.DocumentKind) {
	if err := obj.Close(); err != nil {
		logger.Warn("failed to release business object",
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
	}
}
