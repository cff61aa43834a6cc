package servicelayer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/erp/replicator/internal/domain/replication"
	"go.uber.org/zap"
)

// businessObject is a handle on one entity set. Handles hold no server-side resources.
type businessObject struct {
	client    *Client
	kind      replication.DocumentKind
	entitySet string
	loaded    replication.SourceDocument
	staged    *replication.DerivedDocument
	closed    bool
}

var _ replication.BusinessObject = (*businessObject)(nil)

// entityPath addresses one entity. Numeric keys are sent bare, others quoted.
func (o *businessObject) entityPath(key string) string {
	if isNumeric(key) {
		return "/" + o.entitySet + "(" + key + ")"
	}
	return "/" + o.entitySet + "('" + strings.ReplaceAll(key, "'", "''") + "')"
}

func (o *businessObject) GetByKey(ctx context.Context, key string) (bool, error) {
	if o.closed {
		return false, fmt.Errorf("%s handle is closed", o.entitySet)
	}
	resp, err := o.client.get(ctx, o.entityPath(key))
	if err != nil {
		return false, fmt.Errorf("failed to fetch %s %s: %w", o.entitySet, key, err)
	}
	defer drain(resp)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode != http.StatusOK:
		return false, readHostError(resp)
	}

	var dto documentDTO
	if err := json.NewDecoder(resp.Body).Decode(&dto); err != nil {
		return false, fmt.Errorf("failed to decode %s %s: %w", o.entitySet, key, err)
	}
	o.loaded = toSource(o.kind, &dto)
	if o.loaded.Key == "" {
		o.loaded.Key = key
	}
	return true, nil
}

func (o *businessObject) Document() replication.SourceDocument {
	return o.loaded
}

func (o *businessObject) SetDocument(doc *replication.DerivedDocument) {
	o.staged = doc
}

// Add posts the staged document. Failures are published through the client's LastError.
func (o *businessObject) Add(ctx context.Context) int {
	if o.staged == nil {
		o.client.setLastError(codeTransport, "no document staged")
		return codeTransport
	}

	resp, err := o.client.do(ctx, http.MethodPost, "/"+o.entitySet, fromDerived(o.staged))
	if err != nil {
		o.client.logger.Warn("service layer add failed before a response",
			zap.String("entity_set", o.entitySet),
			zap.Error(err),
		)
		o.client.setLastError(codeTransport, err.Error())
		return codeTransport
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		he := readHostError(resp)
		o.client.setLastError(he.Code, he.Message)
		if resp.StatusCode == http.StatusUnauthorized {
			// the create is never replayed; renew so the next attempt can run
			if err := o.client.relogin(ctx); err != nil {
				o.client.logger.Warn("add refused with an expired session", zap.Error(err))
			}
		}
		return he.Code
	}

	// the document exists on the host from here on, whether or not its key can be read back
	var key string
	var created documentDTO
	if err := json.NewDecoder(resp.Body).Decode(&created); err == nil {
		key = created.DocEntry.String()
	} else {
		o.client.logger.Warn("created document has unreadable response", zap.Error(err))
	}
	if key == "" {
		key = keyFromLocation(resp.Header.Get("Location"))
	}
	if key == "" {
		o.client.logger.Error("host did not report the key of the created document",
			zap.String("entity_set", o.entitySet),
		)
	}
	o.client.setNewObjectKey(key)
	return 0
}

// keyFromLocation extracts the key from an entity URL such as .../DeliveryNotes(123)
func keyFromLocation(location string) string {
	open := strings.LastIndex(location, "(")
	if open < 0 || !strings.HasSuffix(location, ")") {
		return ""
	}
	key := location[open+1 : len(location)-1]
	if len(key) >= 2 && strings.HasPrefix(key, "'") && strings.HasSuffix(key, "'") {
		key = strings.ReplaceAll(key[1:len(key)-1], "''", "'")
	}
	return key
}

func (o *businessObject) Close() error {
	o.closed = true
	o.staged = nil
	return nil
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
