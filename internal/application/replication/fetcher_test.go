package replication

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/replicator/internal/domain/replication"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDocumentFetcher_Fetch(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		api := new(MockDataAPI)
		obj := new(MockBusinessObject)
		api.On("GetBusinessObject", ctx, replication.KindSalesOrder).Return(obj, nil)
		obj.On("GetByKey", ctx, "1001").Return(true, nil)
		obj.On("Document").Return(twoLineOrder("1001"))
		obj.On("Close").Return(nil)

		doc, err := NewDocumentFetcher(api, zap.NewNop()).Fetch(ctx, replication.KindSalesOrder, "1001")

		require.NoError(t, err)
		assert.Equal(t, "1001", doc.Key)
		assert.Len(t, doc.Lines, 2)
		api.AssertExpectations(t)
		obj.AssertExpectations(t)
	})

	t.Run("fills kind and key the host left empty", func(t *testing.T) {
		api := new(MockDataAPI)
		obj := new(MockBusinessObject)
		api.On("GetBusinessObject", ctx, replication.KindSalesOrder).Return(obj, nil)
		obj.On("GetByKey", ctx, "7").Return(true, nil)
		obj.On("Document").Return(replication.SourceDocument{CardCode: "C1"})
		obj.On("Close").Return(nil)

		doc, err := NewDocumentFetcher(api, zap.NewNop()).Fetch(ctx, replication.KindSalesOrder, "7")

		require.NoError(t, err)
		assert.Equal(t, replication.KindSalesOrder, doc.Kind)
		assert.Equal(t, "7", doc.Key)
	})

	t.Run("not found closes the handle", func(t *testing.T) {
		api := new(MockDataAPI)
		obj := new(MockBusinessObject)
		api.On("GetBusinessObject", ctx, replication.KindSalesOrder).Return(obj, nil)
		obj.On("GetByKey", ctx, "9999").Return(false, nil)
		obj.On("Close").Return(nil)

		doc, err := NewDocumentFetcher(api, zap.NewNop()).Fetch(ctx, replication.KindSalesOrder, "9999")

		assert.Nil(t, doc)
		var nf *replication.NotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, "9999", nf.Key)
		assert.Equal(t, replication.KindSalesOrder, nf.Kind)
		obj.AssertCalled(t, "Close")
		obj.AssertNotCalled(t, "Document")
	})

	t.Run("transport error is wrapped", func(t *testing.T) {
		api := new(MockDataAPI)
		obj := new(MockBusinessObject)
		cause := errors.New("connection reset")
		api.On("GetBusinessObject", ctx, replication.KindSalesOrder).Return(obj, nil)
		obj.On("GetByKey", ctx, "1").Return(false, cause)
		obj.On("Close").Return(nil)

		_, err := NewDocumentFetcher(api, zap.NewNop()).Fetch(ctx, replication.KindSalesOrder, "1")

		assert.ErrorIs(t, err, cause)
		assert.False(t, replication.IsNotFound(err))
		obj.AssertCalled(t, "Close")
	})

	t.Run("handle acquisition fails", func(t *testing.T) {
		api := new(MockDataAPI)
		api.On("GetBusinessObject", ctx, replication.KindSalesOrder).Return(nil, errors.New("no session"))

		_, err := NewDocumentFetcher(api, zap.NewNop()).Fetch(ctx, replication.KindSalesOrder, "1")
		assert.Error(t, err)
	})

	t.Run("close error does not mask the result", func(t *testing.T) {
		api := new(MockDataAPI)
		obj := new(MockBusinessObject)
		api.On("GetBusinessObject", ctx, mock.Anything).Return(obj, nil)
		obj.On("GetByKey", ctx, "1001").Return(true, nil)
		obj.On("Document").Return(twoLineOrder("1001"))
		obj.On("Close").Return(errors.New("already released"))

		doc, err := NewDocumentFetcher(api, zap.NewNop()).Fetch(ctx, replication.KindSalesOrder, "1001")
		require.NoError(t, err)
		assert.NotNil(t, doc)
	})
}
