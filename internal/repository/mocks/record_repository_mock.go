package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"gradticket-bot/internal/model"
)

// RecordRepositoryMock is a testify double for repository.RecordRepository.
type RecordRepositoryMock struct {
	mock.Mock
}

func NewRecordRepositoryMock() *RecordRepositoryMock {
	return &RecordRepositoryMock{}
}

func (m *RecordRepositoryMock) GetByKey(ctx context.Context, userName, ceremonyDate string) (*model.TicketRecord, error) {
	args := m.Called(ctx, userName, ceremonyDate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TicketRecord), args.Error(1)
}

func (m *RecordRepositoryMock) ListByUser(ctx context.Context, userName string) ([]*model.TicketRecord, error) {
	args := m.Called(ctx, userName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.TicketRecord), args.Error(1)
}

func (m *RecordRepositoryMock) ListAll(ctx context.Context) ([]*model.TicketRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.TicketRecord), args.Error(1)
}

func (m *RecordRepositoryMock) ScanByDateAndOperation(ctx context.Context, ceremonyDate string, operation model.Operation, activeOnly bool) ([]*model.TicketRecord, error) {
	args := m.Called(ctx, ceremonyDate, operation, activeOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.TicketRecord), args.Error(1)
}

func (m *RecordRepositoryMock) BatchWrite(ctx context.Context, deletes []model.RecordKey, adds []*model.TicketRecord) error {
	args := m.Called(ctx, deletes, adds)
	return args.Error(0)
}

func (m *RecordRepositoryMock) UpdateAmount(ctx context.Context, userName, ceremonyDate string, delta int) (int, error) {
	args := m.Called(ctx, userName, ceremonyDate, delta)
	return args.Int(0), args.Error(1)
}

func (m *RecordRepositoryMock) SetAmount(ctx context.Context, userName, ceremonyDate string, amount int) error {
	args := m.Called(ctx, userName, ceremonyDate, amount)
	return args.Error(0)
}

func (m *RecordRepositoryMock) MarkResolved(ctx context.Context, userName, ceremonyDate, resolvedWith string) error {
	args := m.Called(ctx, userName, ceremonyDate, resolvedWith)
	return args.Error(0)
}

func (m *RecordRepositoryMock) SetLastNotified(ctx context.Context, userName, ceremonyDate string, notifiedAt time.Time) error {
	args := m.Called(ctx, userName, ceremonyDate, notifiedAt)
	return args.Error(0)
}
