package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"gradticket-bot/config"
	"gradticket-bot/internal/calendar"
	"gradticket-bot/internal/command"
	"gradticket-bot/internal/inbox"
	"gradticket-bot/internal/matcher"
	"gradticket-bot/internal/model"
	"gradticket-bot/internal/queue"
	"gradticket-bot/internal/repository"
	"gradticket-bot/pkg/apperrors"
	"gradticket-bot/pkg/logger"
)

type BotService interface {
	// RunCycle performs one full work cycle: refresh the calendar, drain
	// the inbox, flush staged record mutations, then match and notify.
	RunCycle(ctx context.Context) error

	RefreshCalendar(ctx context.Context) error
	Calendar() *calendar.Calendar
	Listing(ctx context.Context) (string, error)
	MegathreadTitle() (string, error)
}

type BotServiceImpl struct {
	cfg      config.BotConfig
	store    repository.RecordRepository
	source   calendar.CeremonySource
	parser   *command.Parser
	engine   matcher.Engine
	messages inbox.MessageSource
	notifier inbox.Notifier
	log      *zap.Logger

	mu  sync.RWMutex
	cal *calendar.Calendar
}

func NewBotService(
	cfg config.BotConfig,
	store repository.RecordRepository,
	source calendar.CeremonySource,
	parser *command.Parser,
	engine matcher.Engine,
	messages inbox.MessageSource,
	notifier inbox.Notifier,
) BotService {
	return &BotServiceImpl{
		cfg:      cfg,
		store:    store,
		source:   source,
		parser:   parser,
		engine:   engine,
		messages: messages,
		notifier: notifier,
		log:      logger.WithComponent("bot-service"),
		cal:      calendar.NewCalendar(nil),
	}
}

func (s *BotServiceImpl) RunCycle(ctx context.Context) error {
	if err := s.RefreshCalendar(ctx); err != nil {
		return fmt.Errorf("refresh calendar: %w", err)
	}

	batch := queue.NewBatchQueue()

	if err := s.processInbox(ctx, batch); err != nil {
		return fmt.Errorf("process inbox: %w", err)
	}

	if err := batch.Flush(ctx, s.store); err != nil {
		return fmt.Errorf("flush batch: %w", err)
	}

	if err := s.matchAndNotify(ctx); err != nil {
		return fmt.Errorf("match: %w", err)
	}

	return nil
}

func (s *BotServiceImpl) RefreshCalendar(ctx context.Context) error {
	lines, err := s.source.FetchRawCalendarText(ctx)
	if err != nil {
		return err
	}

	cal := calendar.Build(lines)

	s.mu.Lock()
	s.cal = cal
	s.mu.Unlock()

	s.log.Info("calendar refreshed", zap.Int("ceremonies", cal.Len()))
	return nil
}

func (s *BotServiceImpl) Calendar() *calendar.Calendar {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cal
}

func (s *BotServiceImpl) processInbox(ctx context.Context, batch *queue.BatchQueue) error {
	messages, err := s.messages.FetchUnread(ctx)
	if err != nil {
		return err
	}

	cal := s.Calendar()

	for _, msg := range messages {
		ack := s.processMessage(ctx, msg, cal, batch)
		if !ack {
			continue
		}
		if err := s.messages.MarkRead(ctx, msg); err != nil {
			s.log.Error("mark read failed", zap.String("message_id", msg.ID), zap.Error(err))
		}
	}

	return nil
}

// processMessage handles one inbox message and reports whether it reached a
// determinate outcome and should be acknowledged. Parse errors are a
// determinate outcome: they turn into a reply to the sender.
func (s *BotServiceImpl) processMessage(ctx context.Context, msg model.Message, cal *calendar.Calendar, batch *queue.BatchQueue) bool {
	s.log.Info("parsing message", zap.String("author", msg.Author), zap.String("message_id", msg.ID))

	cmd, err := s.parser.Parse(msg.Author, msg.Body, cal)
	if err != nil {
		return s.handleParseError(ctx, msg, err)
	}

	switch cmd := cmd.(type) {
	case command.NewRecord:
		s.log.Info("staging new record",
			zap.String("user", cmd.User),
			zap.String("operation", string(cmd.Operation)),
			zap.Int("amount", cmd.Amount),
			zap.String("ceremony_date", cmd.Date))
		batch.EnqueueAdd(&model.TicketRecord{
			UserName:     cmd.User,
			CeremonyDate: cmd.Date,
			Operation:    cmd.Operation,
			Amount:       cmd.Amount,
		})
		s.send(ctx, cmd.User, subjectProcessed, renderConfirmation(cmd))

	case command.Delete:
		s.log.Info("staging user delete", zap.String("user", cmd.User))
		batch.EnqueueDelete(model.NewRecordKey(cmd.User, ""))
		s.send(ctx, cmd.User, subjectDeleted, renderDeleteConfirmation())

	case command.Resolve:
		if err := s.applyResolve(ctx, cmd); err != nil {
			s.log.Error("resolve failed",
				zap.String("user", cmd.User),
				zap.String("resolve_with", cmd.ResolveWith),
				zap.Error(err))
			// A user with no active record can never resolve, so the
			// command is settled; a store failure is transient and the
			// message stays unread for the next cycle to retry.
			return errors.Is(err, apperrors.ErrNoActiveRecord)
		}
		s.send(ctx, cmd.User, resolveConfirmationSubject(cmd.ResolveWith),
			renderResolveConfirmation(cmd.ResolveWith, cmd.ResolveAmount))
		s.send(ctx, cmd.ResolveWith, resolveConfirmationSubject(cmd.User),
			renderResolveConfirmation(cmd.User, cmd.ResolveAmount))
	}

	return true
}

func (s *BotServiceImpl) handleParseError(ctx context.Context, msg model.Message, err error) bool {
	// No trigger means the message was not meant for the bot yet; leave it
	// unread so a later cycle sees it again.
	if errors.Is(err, command.ErrNoCommand) {
		return false
	}

	user := msg.Author

	var invalidCmd *command.InvalidCommandError
	if errors.As(err, &invalidCmd) {
		s.log.Info("sending invalid command message", zap.String("user", user))
		s.send(ctx, user, subjectInvalidCommand, renderInvalidCommand(invalidCmd))
		return true
	}

	var missingDate *command.MissingCeremonyDateError
	if errors.As(err, &missingDate) {
		s.log.Info("sending missing ceremony message", zap.String("user", user))
		s.send(ctx, user, subjectMissingCeremony, renderMissingCeremonyDate(missingDate))
		return true
	}

	var invalidDate *command.InvalidCeremonyDateError
	if errors.As(err, &invalidDate) {
		s.log.Info("sending invalid ceremony date message",
			zap.String("user", user), zap.String("given_date", invalidDate.GivenDate))
		s.send(ctx, user, subjectInvalidCeremony, renderInvalidCeremonyDate(invalidDate))
		return true
	}

	s.log.Error("unclassified parse error", zap.String("message_id", msg.ID), zap.Error(err))
	return true
}

// applyResolve decrements both sides of a transaction. The two updates are
// independent; if the second one fails the first is not rolled back, which
// is a known consistency gap.
func (s *BotServiceImpl) applyResolve(ctx context.Context, cmd command.Resolve) error {
	records, err := s.store.ListByUser(ctx, cmd.User)
	if err != nil {
		return err
	}

	var active *model.TicketRecord
	for _, record := range records {
		if record.IsActive() {
			active = record
			break
		}
	}
	if active == nil {
		return fmt.Errorf("%w: user=[%s]", apperrors.ErrNoActiveRecord, cmd.User)
	}
	date := active.CeremonyDate

	s.log.Info("resolving transaction",
		zap.String("user", cmd.User),
		zap.String("resolved_with", cmd.ResolveWith),
		zap.String("ceremony_date", date))

	if cmd.ResolveAmount == nil {
		// No amount means the whole balance was transacted.
		if err := s.store.SetAmount(ctx, cmd.User, date, 0); err != nil {
			return err
		}
		s.markResolved(ctx, cmd.User, date, cmd.ResolveWith)
		if err := s.store.SetAmount(ctx, cmd.ResolveWith, date, 0); err != nil {
			return err
		}
		s.markResolved(ctx, cmd.ResolveWith, date, cmd.User)
		return nil
	}

	delta := -*cmd.ResolveAmount

	remaining, err := s.store.UpdateAmount(ctx, cmd.User, date, delta)
	if err != nil {
		return err
	}
	if remaining == 0 {
		s.markResolved(ctx, cmd.User, date, cmd.ResolveWith)
	}

	remaining, err = s.store.UpdateAmount(ctx, cmd.ResolveWith, date, delta)
	if err != nil {
		return err
	}
	if remaining == 0 {
		s.markResolved(ctx, cmd.ResolveWith, date, cmd.User)
	}

	return nil
}

func (s *BotServiceImpl) markResolved(ctx context.Context, user, date, with string) {
	if err := s.store.MarkResolved(ctx, user, date, with); err != nil {
		s.log.Error("mark resolved failed",
			zap.String("user", user), zap.String("ceremony_date", date), zap.Error(err))
	}
}

func (s *BotServiceImpl) matchAndNotify(ctx context.Context) error {
	matches, err := s.engine.FindMatches(ctx, s.Calendar().Keys(), s.cfg.NotifyInterval)
	if err != nil {
		return err
	}

	for _, match := range matches {
		s.send(ctx, match.User, subjectMatch, renderMatchNotification(s.cfg.Trigger, match))
	}

	if len(matches) > 0 {
		s.log.Info("dispatched match notifications", zap.Int("count", len(matches)))
	}

	return nil
}

// send delivers one notification; delivery failures are cycle-scoped and
// never turned into further messages.
func (s *BotServiceImpl) send(ctx context.Context, user, subject, body string) {
	if err := s.notifier.Send(ctx, user, subject, body); err != nil {
		s.log.Error("notification send failed",
			zap.String("user", user), zap.String("subject", subject), zap.Error(err))
	}
}

// Listing renders the megathread body with the current buyer and seller
// tables.
func (s *BotServiceImpl) Listing(ctx context.Context) (string, error) {
	cal := s.Calendar()

	var buyers, sellers []*model.TicketRecord
	for _, date := range cal.Keys() {
		b, err := s.store.ScanByDateAndOperation(ctx, date, model.OperationBuy, true)
		if err != nil {
			return "", err
		}
		buyers = append(buyers, b...)

		sl, err := s.store.ScanByDateAndOperation(ctx, date, model.OperationSell, true)
		if err != nil {
			return "", err
		}
		sellers = append(sellers, sl...)
	}

	return renderListing(s.cfg.Trigger, s.cfg.DeleteCommand, buyers, sellers), nil
}

func (s *BotServiceImpl) MegathreadTitle() (string, error) {
	season, err := s.Calendar().CurrentSeason(time.Now())
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Graduation Ticket Megathread [%s]", season), nil
}
