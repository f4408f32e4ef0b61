package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gradticket-bot/config"
	"gradticket-bot/internal/calendar"
	"gradticket-bot/internal/command"
	"gradticket-bot/internal/matcher"
	"gradticket-bot/internal/model"
	"gradticket-bot/internal/repository/mocks"
)

const ceremonyKey = "December 16, 2016 9:00 AM"

type ceremonySourceMock struct {
	mock.Mock
}

func (m *ceremonySourceMock) FetchRawCalendarText(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type messageSourceMock struct {
	mock.Mock
}

func (m *messageSourceMock) FetchUnread(ctx context.Context) ([]model.Message, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Message), args.Error(1)
}

func (m *messageSourceMock) MarkRead(ctx context.Context, message model.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

type notifierMock struct {
	mock.Mock
}

func (m *notifierMock) Send(ctx context.Context, user, subject, body string) error {
	args := m.Called(ctx, user, subject, body)
	return args.Error(0)
}

type engineMock struct {
	mock.Mock
}

func (m *engineMock) FindMatches(ctx context.Context, ceremonyDates []string, notifyInterval time.Duration) ([]matcher.Match, error) {
	args := m.Called(ctx, ceremonyDates, notifyInterval)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]matcher.Match), args.Error(1)
}

type serviceFixture struct {
	cfg      config.BotConfig
	store    *mocks.RecordRepositoryMock
	source   *ceremonySourceMock
	messages *messageSourceMock
	notifier *notifierMock
	engine   *engineMock
	svc      BotService
}

func newFixture() *serviceFixture {
	cfg := config.BotConfig{
		Trigger:        "!FAUbot",
		DeleteCommand:  "!FAUbot delete me",
		NotifyInterval: 24 * time.Hour,
	}
	f := &serviceFixture{
		cfg:      cfg,
		store:    mocks.NewRecordRepositoryMock(),
		source:   new(ceremonySourceMock),
		messages: new(messageSourceMock),
		notifier: new(notifierMock),
		engine:   new(engineMock),
	}
	f.svc = NewBotService(cfg, f.store, f.source, command.NewParser(cfg), f.engine, f.messages, f.notifier)
	return f
}

func (f *serviceFixture) expectCalendar() {
	f.source.On("FetchRawCalendarText", mock.Anything).
		Return([]string{ceremonyKey, "College of Business"}, nil)
}

func (f *serviceFixture) assertAll(t *testing.T) {
	f.store.AssertExpectations(t)
	f.source.AssertExpectations(t)
	f.messages.AssertExpectations(t)
	f.notifier.AssertExpectations(t)
	f.engine.AssertExpectations(t)
}

func TestRunCycle(t *testing.T) {
	ctx := context.Background()

	t.Run("buy command stages a record and confirms", func(t *testing.T) {
		f := newFixture()
		f.expectCalendar()

		msg := model.Message{ID: "1-0", Author: "Buyer1", Body: "!FAUbot buy 2 December 16, 2016"}
		f.messages.On("FetchUnread", ctx).Return([]model.Message{msg}, nil).Once()
		f.messages.On("MarkRead", ctx, msg).Return(nil).Once()
		f.notifier.On("Send", ctx, "buyer1", subjectProcessed, mock.Anything).Return(nil).Once()

		f.store.On("BatchWrite", ctx, []model.RecordKey(nil), []*model.TicketRecord{
			{UserName: "buyer1", CeremonyDate: ceremonyKey, Operation: model.OperationBuy, Amount: 2},
		}).Return(nil).Once()

		f.engine.On("FindMatches", ctx, []string{ceremonyKey}, f.cfg.NotifyInterval).
			Return([]matcher.Match{}, nil).Once()

		require.NoError(t, f.svc.RunCycle(ctx))
		f.assertAll(t)
	})

	t.Run("delete command stages a user-wide delete", func(t *testing.T) {
		f := newFixture()
		f.expectCalendar()

		msg := model.Message{ID: "2-0", Author: "Leaver", Body: "!FAUbot delete me"}
		f.messages.On("FetchUnread", ctx).Return([]model.Message{msg}, nil).Once()
		f.messages.On("MarkRead", ctx, msg).Return(nil).Once()
		f.notifier.On("Send", ctx, "leaver", subjectDeleted, mock.Anything).Return(nil).Once()

		f.store.On("BatchWrite", ctx, []model.RecordKey{{UserName: "leaver"}}, []*model.TicketRecord(nil)).
			Return(nil).Once()

		f.engine.On("FindMatches", ctx, []string{ceremonyKey}, f.cfg.NotifyInterval).
			Return([]matcher.Match{}, nil).Once()

		require.NoError(t, f.svc.RunCycle(ctx))
		f.assertAll(t)
	})

	t.Run("untriggered message is left unread", func(t *testing.T) {
		f := newFixture()
		f.expectCalendar()

		msg := model.Message{ID: "3-0", Author: "chatter", Body: "anyone selling tickets?"}
		f.messages.On("FetchUnread", ctx).Return([]model.Message{msg}, nil).Once()

		f.engine.On("FindMatches", ctx, []string{ceremonyKey}, f.cfg.NotifyInterval).
			Return([]matcher.Match{}, nil).Once()

		require.NoError(t, f.svc.RunCycle(ctx))

		f.messages.AssertNotCalled(t, "MarkRead", ctx, msg)
		f.store.AssertNotCalled(t, "BatchWrite", ctx, mock.Anything, mock.Anything)
		f.assertAll(t)
	})

	t.Run("malformed command gets a reply and is acknowledged", func(t *testing.T) {
		f := newFixture()
		f.expectCalendar()

		msg := model.Message{ID: "4-0", Author: "confused", Body: "!FAUbot trade 5 tickets"}
		f.messages.On("FetchUnread", ctx).Return([]model.Message{msg}, nil).Once()
		f.messages.On("MarkRead", ctx, msg).Return(nil).Once()
		f.notifier.On("Send", ctx, "confused", subjectInvalidCommand, mock.Anything).Return(nil).Once()

		f.engine.On("FindMatches", ctx, []string{ceremonyKey}, f.cfg.NotifyInterval).
			Return([]matcher.Match{}, nil).Once()

		require.NoError(t, f.svc.RunCycle(ctx))
		f.assertAll(t)
	})

	t.Run("match notifications are dispatched after the flush", func(t *testing.T) {
		f := newFixture()
		f.expectCalendar()

		f.messages.On("FetchUnread", ctx).Return([]model.Message{}, nil).Once()

		match := matcher.Match{
			User:         "buyer1",
			Operation:    model.OperationBuy,
			CeremonyDate: ceremonyKey,
			CounterParties: []model.CounterParty{
				{UserName: "seller1", Operation: model.OperationSell, Amount: 3},
			},
		}
		f.engine.On("FindMatches", ctx, []string{ceremonyKey}, f.cfg.NotifyInterval).
			Return([]matcher.Match{match}, nil).Once()
		f.notifier.On("Send", ctx, "buyer1", subjectMatch, mock.Anything).Return(nil).Once()

		require.NoError(t, f.svc.RunCycle(ctx))
		f.assertAll(t)
	})

	t.Run("calendar fetch failure aborts the cycle", func(t *testing.T) {
		f := newFixture()
		f.source.On("FetchRawCalendarText", mock.Anything).
			Return(nil, errors.New("registrar page unreachable")).Once()

		err := f.svc.RunCycle(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "refresh calendar")

		f.messages.AssertNotCalled(t, "FetchUnread", ctx)
	})
}

func TestResolve(t *testing.T) {
	ctx := context.Background()

	activeRecord := func(user string) *model.TicketRecord {
		return &model.TicketRecord{
			UserName:     user,
			CeremonyDate: ceremonyKey,
			Operation:    model.OperationBuy,
			Amount:       5,
		}
	}

	runResolveCycle := func(t *testing.T, f *serviceFixture, body string) {
		t.Helper()
		f.expectCalendar()

		msg := model.Message{ID: "5-0", Author: "Initiator", Body: body}
		f.messages.On("FetchUnread", ctx).Return([]model.Message{msg}, nil).Once()
		f.messages.On("MarkRead", ctx, msg).Return(nil).Once()
		f.engine.On("FindMatches", ctx, []string{ceremonyKey}, f.cfg.NotifyInterval).
			Return([]matcher.Match{}, nil).Once()

		require.NoError(t, f.svc.RunCycle(ctx))
	}

	t.Run("partial resolve decrements both balances", func(t *testing.T) {
		f := newFixture()

		f.store.On("ListByUser", ctx, "initiator").
			Return([]*model.TicketRecord{activeRecord("initiator")}, nil).Once()
		f.store.On("UpdateAmount", ctx, "initiator", ceremonyKey, -2).Return(3, nil).Once()
		f.store.On("UpdateAmount", ctx, "jpfau", ceremonyKey, -2).Return(1, nil).Once()

		f.notifier.On("Send", ctx, "initiator", resolveConfirmationSubject("jpfau"), mock.Anything).Return(nil).Once()
		f.notifier.On("Send", ctx, "jpfau", resolveConfirmationSubject("initiator"), mock.Anything).Return(nil).Once()

		runResolveCycle(t, f, "!FAUbot resolve 2 /u/jpfau")

		f.store.AssertNotCalled(t, "MarkResolved", ctx, mock.Anything, mock.Anything, mock.Anything)
		f.assertAll(t)
	})

	t.Run("balance reaching zero marks the record resolved", func(t *testing.T) {
		f := newFixture()

		f.store.On("ListByUser", ctx, "initiator").
			Return([]*model.TicketRecord{activeRecord("initiator")}, nil).Once()
		f.store.On("UpdateAmount", ctx, "initiator", ceremonyKey, -5).Return(0, nil).Once()
		f.store.On("MarkResolved", ctx, "initiator", ceremonyKey, "jpfau").Return(nil).Once()
		f.store.On("UpdateAmount", ctx, "jpfau", ceremonyKey, -5).Return(2, nil).Once()

		f.notifier.On("Send", ctx, "initiator", resolveConfirmationSubject("jpfau"), mock.Anything).Return(nil).Once()
		f.notifier.On("Send", ctx, "jpfau", resolveConfirmationSubject("initiator"), mock.Anything).Return(nil).Once()

		runResolveCycle(t, f, "!FAUbot resolve 5 /u/jpfau")
		f.assertAll(t)
	})

	t.Run("resolve without amount zeroes both sides", func(t *testing.T) {
		f := newFixture()

		f.store.On("ListByUser", ctx, "initiator").
			Return([]*model.TicketRecord{activeRecord("initiator")}, nil).Once()
		f.store.On("SetAmount", ctx, "initiator", ceremonyKey, 0).Return(nil).Once()
		f.store.On("MarkResolved", ctx, "initiator", ceremonyKey, "jpfau").Return(nil).Once()
		f.store.On("SetAmount", ctx, "jpfau", ceremonyKey, 0).Return(nil).Once()
		f.store.On("MarkResolved", ctx, "jpfau", ceremonyKey, "initiator").Return(nil).Once()

		f.notifier.On("Send", ctx, "initiator", resolveConfirmationSubject("jpfau"), mock.Anything).Return(nil).Once()
		f.notifier.On("Send", ctx, "jpfau", resolveConfirmationSubject("initiator"), mock.Anything).Return(nil).Once()

		runResolveCycle(t, f, "!FAUbot resolve /u/jpfau")
		f.assertAll(t)
	})

	t.Run("store failure leaves the message unread for retry", func(t *testing.T) {
		f := newFixture()
		f.expectCalendar()

		msg := model.Message{ID: "6-0", Author: "Initiator", Body: "!FAUbot resolve 2 /u/jpfau"}
		f.messages.On("FetchUnread", ctx).Return([]model.Message{msg}, nil).Once()
		f.engine.On("FindMatches", ctx, []string{ceremonyKey}, f.cfg.NotifyInterval).
			Return([]matcher.Match{}, nil).Once()

		f.store.On("ListByUser", ctx, "initiator").
			Return([]*model.TicketRecord{activeRecord("initiator")}, nil).Once()
		f.store.On("UpdateAmount", ctx, "initiator", ceremonyKey, -2).
			Return(0, assert.AnError).Once()

		require.NoError(t, f.svc.RunCycle(ctx))

		f.messages.AssertNotCalled(t, "MarkRead", ctx, msg)
		f.notifier.AssertNotCalled(t, "Send", ctx, mock.Anything, mock.Anything, mock.Anything)
		f.assertAll(t)
	})

	t.Run("resolve with no active record sends nothing", func(t *testing.T) {
		f := newFixture()

		settled := activeRecord("initiator")
		settled.Amount = 0
		f.store.On("ListByUser", ctx, "initiator").
			Return([]*model.TicketRecord{settled}, nil).Once()

		runResolveCycle(t, f, "!FAUbot resolve 2 /u/jpfau")

		f.notifier.AssertNotCalled(t, "Send", ctx, mock.Anything, mock.Anything, mock.Anything)
		f.assertAll(t)
	})
}

func TestListing(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.expectCalendar()
	require.NoError(t, f.svc.RefreshCalendar(ctx))

	buyer := &model.TicketRecord{UserName: "buyer1", CeremonyDate: ceremonyKey, Operation: model.OperationBuy, Amount: 2}
	seller := &model.TicketRecord{UserName: "seller1", CeremonyDate: ceremonyKey, Operation: model.OperationSell, Amount: 4}

	f.store.On("ScanByDateAndOperation", ctx, ceremonyKey, model.OperationBuy, true).
		Return([]*model.TicketRecord{buyer}, nil).Once()
	f.store.On("ScanByDateAndOperation", ctx, ceremonyKey, model.OperationSell, true).
		Return([]*model.TicketRecord{seller}, nil).Once()

	body, err := f.svc.Listing(ctx)
	require.NoError(t, err)

	assert.Contains(t, body, "/u/buyer1")
	assert.Contains(t, body, "/u/seller1")
	assert.Contains(t, body, "!FAUbot delete me")
	f.assertAll(t)
}

func TestMegathreadTitle(t *testing.T) {
	f := newFixture()
	f.expectCalendar()
	require.NoError(t, f.svc.RefreshCalendar(context.Background()))

	title, err := f.svc.MegathreadTitle()
	require.NoError(t, err)
	assert.Contains(t, title, "Graduation Ticket Megathread")
}

func TestRefreshCalendarSwapsAtomically(t *testing.T) {
	f := newFixture()
	f.expectCalendar()

	assert.Equal(t, 0, f.svc.Calendar().Len())
	require.NoError(t, f.svc.RefreshCalendar(context.Background()))
	require.Equal(t, []string{ceremonyKey}, f.svc.Calendar().Keys())
	assert.Contains(t, f.svc.Calendar().Slots(ceremonyKey), "College of Business")
}

var _ calendar.CeremonySource = (*ceremonySourceMock)(nil)
