package matcher

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"gradticket-bot/internal/model"
	"gradticket-bot/internal/repository"
	"gradticket-bot/pkg/logger"
)

// Match is one user's notification payload for one ceremony date: the
// ranked list of counter-parties they should contact.
type Match struct {
	User           string
	Operation      model.Operation
	CeremonyDate   string
	CounterParties []model.CounterParty
}

type Engine interface {
	// FindMatches pairs buyers with sellers per ceremony date and stamps
	// last_notified on every record included in an outgoing notification.
	FindMatches(ctx context.Context, ceremonyDates []string, notifyInterval time.Duration) ([]Match, error)
}

type EngineImpl struct {
	store repository.RecordRepository
	log   *zap.Logger
	now   func() time.Time
}

func NewEngine(store repository.RecordRepository) Engine {
	return &EngineImpl{
		store: store,
		log:   logger.WithComponent("matcher"),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (e *EngineImpl) FindMatches(ctx context.Context, ceremonyDates []string, notifyInterval time.Duration) ([]Match, error) {
	now := e.now()
	var matches []Match

	for _, date := range ceremonyDates {
		buyers, err := e.eligibleRecords(ctx, date, model.OperationBuy, now, notifyInterval)
		if err != nil {
			return nil, err
		}
		sellers, err := e.eligibleRecords(ctx, date, model.OperationSell, now, notifyInterval)
		if err != nil {
			return nil, err
		}

		// Nobody on the other side means nothing to say for this date.
		if len(buyers) == 0 || len(sellers) == 0 {
			continue
		}

		for _, buyer := range buyers {
			matches = append(matches, Match{
				User:           buyer.UserName,
				Operation:      model.OperationBuy,
				CeremonyDate:   date,
				CounterParties: candidateList(sellers),
			})
		}
		for _, seller := range sellers {
			matches = append(matches, Match{
				User:           seller.UserName,
				Operation:      model.OperationSell,
				CeremonyDate:   date,
				CounterParties: candidateList(buyers),
			})
		}

		for _, record := range append(buyers, sellers...) {
			if err := e.store.SetLastNotified(ctx, record.UserName, record.CeremonyDate, now); err != nil {
				e.log.Error("set last_notified failed",
					zap.String("user", record.UserName),
					zap.String("ceremony_date", record.CeremonyDate),
					zap.Error(err))
			}
		}
	}

	return matches, nil
}

// eligibleRecords returns the active records for one date and side that
// pass the renotification gate. Ineligibility is scoped to the date: the
// same user can still appear in another date's pool.
func (e *EngineImpl) eligibleRecords(ctx context.Context, date string, operation model.Operation, now time.Time, interval time.Duration) ([]*model.TicketRecord, error) {
	records, err := e.store.ScanByDateAndOperation(ctx, date, operation, true)
	if err != nil {
		return nil, err
	}

	eligible := records[:0]
	for _, record := range records {
		if record.EligibleForNotify(now, interval) {
			eligible = append(eligible, record)
		}
	}
	return eligible, nil
}

// candidateList ranks counter-parties ascending by amount so small sellers
// (or buyers) are matched first; ties keep scan order.
func candidateList(records []*model.TicketRecord) []model.CounterParty {
	ranked := make([]*model.TicketRecord, len(records))
	copy(ranked, records)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Amount < ranked[j].Amount
	})

	parties := make([]model.CounterParty, 0, len(ranked))
	for _, record := range ranked {
		parties = append(parties, model.CounterParty{
			UserName:  record.UserName,
			Operation: record.Operation,
			Amount:    record.Amount,
		})
	}
	return parties
}
