package replication

import (
	"context"
	"fmt"

	"github.com/erp/replicator/internal/domain/replication"
	"go.uber.org/zap"
)

// PersistenceCommitter submits derived documents to the host store.
// Each Commit issues at most one Add; the host's create is not safe to retry.
type PersistenceCommitter struct {
	api    replication.DataAPI
	logger *zap.Logger
}

// NewPersistenceCommitter creates a new PersistenceCommitter
func NewPersistenceCommitter(api replication.DataAPI, logger *zap.Logger) *PersistenceCommitter {
	return &PersistenceCommitter{
		api:    api,
		logger: logger,
	}
}

// Commit creates doc in the host store and returns the key the host assigned.
func (c *PersistenceCommitter) Commit(ctx context.Context, doc *replication.DerivedDocument) (string, error) {
	if doc == nil || doc.LineCount() == 0 {
		return "", &replication.PersistenceError{
			Code:        replication.CodeEmptyDocument,
			Description: "derived document has no lines",
		}
	}

	obj, err := c.api.GetBusinessObject(ctx, doc.Kind)
	if err != nil {
		return "", fmt.Errorf("failed to acquire business object %s: %w", doc.Kind, err)
	}
	defer closeHandle(obj, c.logger, doc.Kind)

	obj.SetDocument(doc)
	if result := obj.Add(ctx); result != 0 {
		code, description := c.api.LastError()
		if code == 0 {
			code = result
		}
		c.logger.Debug("host refused document",
			zap.Int("result", result),
			zap.Int("code", code),
			zap.String("description", description),
		)
		return "", &replication.PersistenceError{Code: code, Description: description}
	}

	key := c.api.NewObjectKey()
	if key == "" {
		c.logger.Error("host accepted document without reporting its key", zap.String("kind", string(doc.Kind)))
		return "", fmt.Errorf("%s created: %w", doc.Kind, replication.ErrUnknownObjectKey)
	}
	return key, nil
}
