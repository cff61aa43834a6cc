package replication

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/replicator/internal/domain/replication"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func derivedFixture(t *testing.T) *replication.DerivedDocument {
	t.Helper()
	src := twoLineOrder("1001")
	doc, err := replication.NewMapper(replication.KindDeliveryNote, "Sales Orders").Map(&src, time.Now())
	require.NoError(t, err)
	return doc
}

func TestPersistenceCommitter_Commit(t *testing.T) {
	ctx := context.Background()

	t.Run("success returns the new key", func(t *testing.T) {
		api := new(MockDataAPI)
		obj := new(MockBusinessObject)
		doc := derivedFixture(t)
		api.On("GetBusinessObject", ctx, replication.KindDeliveryNote).Return(obj, nil)
		obj.On("SetDocument", doc).Return()
		obj.On("Add", ctx).Return(0)
		obj.On("Close").Return(nil)
		api.On("NewObjectKey").Return("5001")

		key, err := NewPersistenceCommitter(api, zap.NewNop()).Commit(ctx, doc)

		require.NoError(t, err)
		assert.Equal(t, "5001", key)
		obj.AssertNumberOfCalls(t, "Add", 1)
		api.AssertNotCalled(t, "LastError")
		obj.AssertExpectations(t)
	})

	t.Run("host rejection carries the host detail", func(t *testing.T) {
		api := new(MockDataAPI)
		obj := new(MockBusinessObject)
		doc := derivedFixture(t)
		api.On("GetBusinessObject", ctx, replication.KindDeliveryNote).Return(obj, nil)
		obj.On("SetDocument", doc).Return()
		obj.On("Add", ctx).Return(-5002)
		obj.On("Close").Return(nil)
		api.On("LastError").Return(-5002, "Quantity falls into negative inventory")

		key, err := NewPersistenceCommitter(api, zap.NewNop()).Commit(ctx, doc)

		assert.Empty(t, key)
		var pe *replication.PersistenceError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, -5002, pe.Code)
		assert.Equal(t, "Quantity falls into negative inventory", pe.Description)
		obj.AssertNumberOfCalls(t, "Add", 1)
		api.AssertNotCalled(t, "NewObjectKey")
		obj.AssertCalled(t, "Close")
	})

	t.Run("falls back to the add result when last error has no code", func(t *testing.T) {
		api := new(MockDataAPI)
		obj := new(MockBusinessObject)
		api.On("GetBusinessObject", ctx, mock.Anything).Return(obj, nil)
		obj.On("SetDocument", mock.Anything).Return()
		obj.On("Add", ctx).Return(-1)
		obj.On("Close").Return(nil)
		api.On("LastError").Return(0, "")

		_, err := NewPersistenceCommitter(api, zap.NewNop()).Commit(ctx, derivedFixture(t))

		var pe *replication.PersistenceError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, -1, pe.Code)
	})

	t.Run("accepted without a key is not a success", func(t *testing.T) {
		api := new(MockDataAPI)
		obj := new(MockBusinessObject)
		api.On("GetBusinessObject", ctx, replication.KindDeliveryNote).Return(obj, nil)
		obj.On("SetDocument", mock.Anything).Return()
		obj.On("Add", ctx).Return(0)
		obj.On("Close").Return(nil)
		api.On("NewObjectKey").Return("")

		key, err := NewPersistenceCommitter(api, zap.NewNop()).Commit(ctx, derivedFixture(t))

		assert.Empty(t, key)
		require.ErrorIs(t, err, replication.ErrUnknownObjectKey)
		assert.False(t, replication.IsPersistence(err))
		obj.AssertNumberOfCalls(t, "Add", 1)
	})

	t.Run("zero-line document never reaches the host", func(t *testing.T) {
		api := new(MockDataAPI)
		doc := derivedFixture(t)
		doc.Lines = []replication.DerivedLine{}

		_, err := NewPersistenceCommitter(api, zap.NewNop()).Commit(ctx, doc)

		var pe *replication.PersistenceError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, replication.CodeEmptyDocument, pe.Code)
		api.AssertNotCalled(t, "GetBusinessObject", mock.Anything, mock.Anything)
	})

	t.Run("handle acquisition fails", func(t *testing.T) {
		api := new(MockDataAPI)
		api.On("GetBusinessObject", ctx, replication.KindDeliveryNote).Return(nil, errors.New("no session"))

		_, err := NewPersistenceCommitter(api, zap.NewNop()).Commit(ctx, derivedFixture(t))
		assert.Error(t, err)
		assert.False(t, replication.IsPersistence(err))
	})
}
