package testhelpers

import (
	"context"

	"lendledger/domain/entities"
	"lendledger/domain/interfaces"
	"lendledger/events"

	"github.com/stretchr/testify/mock"
)

// MockTransactionRepository is a mock implementation of TransactionRepository
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) LatestTimestamp(ctx context.Context, address string) (int64, error) {
	args := m.Called(ctx, address)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTransactionRepository) StoreTransactions(ctx context.Context, txs []*entities.StoredTransaction) (int64, error) {
	args := m.Called(ctx, txs)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTransactionRepository) GetByAddress(ctx context.Context, address string) ([]*entities.StoredTransaction, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.StoredTransaction), args.Error(1)
}

// MockRateRepository is a mock implementation of RateRepository
type MockRateRepository struct {
	mock.Mock
}

func (m *MockRateRepository) CoveredRange(ctx context.Context, reserveID string) (entities.Day, entities.Day, error) {
	args := m.Called(ctx, reserveID)
	return args.Get(0).(entities.Day), args.Get(1).(entities.Day), args.Error(2)
}

func (m *MockRateRepository) StoreSamples(ctx context.Context, reserveID string, samples []entities.RateSample) (int64, error) {
	args := m.Called(ctx, reserveID, samples)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRateRepository) GetByReserve(ctx context.Context, reserveID string) ([]entities.RateSample, error) {
	args := m.Called(ctx, reserveID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.RateSample), args.Error(1)
}

// MockAccrualRunRepository is a mock implementation of AccrualRunRepository
type MockAccrualRunRepository struct {
	mock.Mock
}

func (m *MockAccrualRunRepository) Create(ctx context.Context, run *entities.AccrualRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockAccrualRunRepository) GetLatest(ctx context.Context, address, tokenSymbol string) (*entities.AccrualRun, error) {
	args := m.Called(ctx, address, tokenSymbol)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.AccrualRun), args.Error(1)
}

func (m *MockAccrualRunRepository) GetByAddress(ctx context.Context, address string, limit int) ([]*entities.AccrualRun, error) {
	args := m.Called(ctx, address, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.AccrualRun), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher for testing
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.Called(event)
}

// MockUnitOfWork hands out the mock repositories it was built with
type MockUnitOfWork struct {
	mock.Mock
	Transactions *MockTransactionRepository
	Rates        *MockRateRepository
	AccrualRuns  *MockAccrualRunRepository
	Events       *MockEventPublisher
}

// NewMockUnitOfWork creates a unit of work with fresh repository mocks
func NewMockUnitOfWork() *MockUnitOfWork {
	return &MockUnitOfWork{
		Transactions: &MockTransactionRepository{},
		Rates:        &MockRateRepository{},
		AccrualRuns:  &MockAccrualRunRepository{},
		Events:       &MockEventPublisher{},
	}
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) TransactionRepository() interfaces.TransactionRepository {
	return m.Transactions
}

func (m *MockUnitOfWork) RateRepository() interfaces.RateRepository {
	return m.Rates
}

func (m *MockUnitOfWork) AccrualRunRepository() interfaces.AccrualRunRepository {
	return m.AccrualRuns
}

func (m *MockUnitOfWork) EventBus() interfaces.EventPublisher {
	return m.Events
}

// ExpectSuccessfulTransaction sets up Begin, Commit and a deferred Rollback
func (m *MockUnitOfWork) ExpectSuccessfulTransaction() {
	m.On("Begin", mock.Anything).Return(nil)
	m.On("Commit").Return(nil)
	m.On("Rollback").Return(nil).Maybe()
}

// MockUnitOfWorkFactory returns the same unit of work for every Create
type MockUnitOfWorkFactory struct {
	UoW interfaces.UnitOfWork
}

func (f *MockUnitOfWorkFactory) Create() interfaces.UnitOfWork {
	return f.UoW
}

// MockDataSource is a mock implementation of DataSource
type MockDataSource struct {
	mock.Mock
}

func (m *MockDataSource) FetchTransactions(ctx context.Context, address string, since int64) (entities.TransactionCollections, error) {
	args := m.Called(ctx, address, since)
	return args.Get(0).(entities.TransactionCollections), args.Error(1)
}

func (m *MockDataSource) FetchRateHistory(ctx context.Context, reserveID string, from entities.Day) ([]entities.RateSample, error) {
	args := m.Called(ctx, reserveID, from)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.RateSample), args.Error(1)
}

// MockNotifier is a mock implementation of Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyAccrual(ctx context.Context, address string, summary entities.TokenSummary, issueCount int) error {
	args := m.Called(ctx, address, summary, issueCount)
	return args.Error(0)
}

// MockPositionService is a mock implementation of PositionService
type MockPositionService struct {
	mock.Mock
}

func (m *MockPositionService) GetPosition(ctx context.Context, address string, symbols []string, today entities.Day) (*entities.PositionReport, error) {
	args := m.Called(ctx, address, symbols, today)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.PositionReport), args.Error(1)
}

func (m *MockPositionService) GetTokenLedger(ctx context.Context, address, symbol string, today entities.Day) (*entities.TokenReport, error) {
	args := m.Called(ctx, address, symbol, today)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.TokenReport), args.Error(1)
}

func (m *MockPositionService) GetHistory(ctx context.Context, address string, limit int) ([]*entities.AccrualRun, error) {
	args := m.Called(ctx, address, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.AccrualRun), args.Error(1)
}
