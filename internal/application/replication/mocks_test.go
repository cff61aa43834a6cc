package replication

import (
	"context"
	"time"

	"github.com/erp/replicator/internal/domain/replication"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockDataAPI is a mock implementation of replication.DataAPI
type MockDataAPI struct {
	mock.Mock
}

func (m *MockDataAPI) GetBusinessObject(ctx context.Context, kind replication.DocumentKind) (replication.BusinessObject, error) {
	args := m.Called(ctx, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(replication.BusinessObject), args.Error(1)
}

func (m *MockDataAPI) LastError() (int, string) {
	args := m.Called()
	return args.Int(0), args.String(1)
}

func (m *MockDataAPI) NewObjectKey() string {
	args := m.Called()
	return args.String(0)
}

// MockBusinessObject is a mock implementation of replication.BusinessObject
type MockBusinessObject struct {
	mock.Mock
}

func (m *MockBusinessObject) GetByKey(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockBusinessObject) Document() replication.SourceDocument {
	args := m.Called()
	return args.Get(0).(replication.SourceDocument)
}

func (m *MockBusinessObject) SetDocument(doc *replication.DerivedDocument) {
	m.Called(doc)
}

func (m *MockBusinessObject) Add(ctx context.Context) int {
	args := m.Called(ctx)
	return args.Int(0)
}

func (m *MockBusinessObject) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockNotifier is a mock implementation of replication.Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SetStatusText(ctx context.Context, text string, duration replication.MessageTime, severity replication.Severity) error {
	args := m.Called(ctx, text, duration, severity)
	return args.Error(0)
}

func (m *MockNotifier) ShowModal(ctx context.Context, text string, icon replication.Icon, buttons ...string) error {
	args := m.Called(ctx, text, icon, buttons)
	return args.Error(0)
}

// MockReplicator is a mock implementation of Replicator
type MockReplicator struct {
	mock.Mock
}

func (m *MockReplicator) Replicate(ctx context.Context, key string) (*replication.Attempt, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*replication.Attempt), args.Error(1)
}

var fixedNow = time.Date(2024, 4, 2, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time {
	return fixedNow
}

// twoLineOrder is the two-line sales order used across the pipeline tests
func twoLineOrder(key string) replication.SourceDocument {
	return replication.SourceDocument{
		Kind:     replication.KindSalesOrder,
		Key:      key,
		CardCode: "C20000",
		CardName: "Norm Thompson",
		Lines: []replication.LineItem{
			{ItemCode: "A1", Quantity: decimal.NewFromInt(5), UnitPrice: decimal.NewFromFloat(10.0)},
			{ItemCode: "B2", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromFloat(20.0)},
		},
	}
}
