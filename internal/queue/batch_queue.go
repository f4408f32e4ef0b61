package queue

import (
	"context"

	"go.uber.org/zap"

	"gradticket-bot/internal/model"
	"gradticket-bot/internal/repository"
	"gradticket-bot/pkg/logger"
)

// BatchQueue stages record mutations for one work cycle and commits them as
// a single batch. It is owned by the cycle that created it and is never
// shared across cycles or goroutines.
//
// Ordering rules: flush applies deletes before adds; the last entry per
// primary key wins; enqueueing a delete cancels any pending add for the
// same key, so add-then-delete ends absent while delete-then-add ends
// present.
type BatchQueue struct {
	adds    []*model.TicketRecord
	deletes []model.RecordKey
	log     *zap.Logger
}

func NewBatchQueue() *BatchQueue {
	return &BatchQueue{
		log: logger.WithComponent("batch-queue"),
	}
}

func (q *BatchQueue) EnqueueAdd(record *model.TicketRecord) {
	key := record.Key()
	// overwrite-by-primary-key within the cycle
	for i, pending := range q.adds {
		if pending.Key() == key {
			q.adds[i] = record
			return
		}
	}
	q.adds = append(q.adds, record)
}

func (q *BatchQueue) EnqueueDelete(key model.RecordKey) {
	q.adds = filterAdds(q.adds, key)

	for _, pending := range q.deletes {
		if pending == key {
			return
		}
	}
	q.deletes = append(q.deletes, key)
}

func filterAdds(adds []*model.TicketRecord, deleted model.RecordKey) []*model.TicketRecord {
	kept := adds[:0]
	for _, record := range adds {
		if deleted.IsUserWide() {
			if record.UserName == deleted.UserName {
				continue
			}
		} else if record.Key() == deleted {
			continue
		}
		kept = append(kept, record)
	}
	return kept
}

func (q *BatchQueue) HasPending() bool {
	return len(q.adds) > 0 || len(q.deletes) > 0
}

// Flush submits the staged mutations to the store as one batch and clears
// the queue whether or not the write succeeded; a failed batch is never
// resubmitted, the next cycle rebuilds its own queue from fresh inbox
// state.
func (q *BatchQueue) Flush(ctx context.Context, store repository.RecordRepository) error {
	if !q.HasPending() {
		q.log.Info("all queues are empty, not writing anything to the store")
		return nil
	}

	deletes, adds := q.deletes, q.adds
	q.deletes, q.adds = nil, nil

	q.log.Info("flushing batch",
		zap.Int("deletes", len(deletes)),
		zap.Int("adds", len(adds)))

	return store.BatchWrite(ctx, deletes, adds)
}
