package cardtable

import (
	"go.uber.org/zap"
)

const (
	TableStateEvent_Created       = "Created"
	TableStateEvent_StatusUpdated = "StatusUpdated"
	TableStateEvent_SeatsUpdated  = "SeatsUpdated"
	TableStateEvent_Closed        = "Closed"
)

// Events are queued while the table lock is held and delivered by flush once it is released.

func (te *tableEngine) emitEvent(eventName string, playerID string) {
	te.table.RefreshUpdateAt()

	te.logger.Debug("emit event",
		zap.String("table_id", te.table.ID),
		zap.Int64("serial", te.table.UpdateSerial),
		zap.Int("round", te.table.State.RoundCount),
		zap.String("player_id", playerID),
		zap.String("event", eventName),
	)

	snapshot := te.snapshot()
	if snapshot == nil {
		return
	}

	te.enqueue(func() {
		te.onTableUpdated(snapshot)
	})
}

func (te *tableEngine) emitErrorEvent(eventName string, playerID string, err error) {
	te.logger.Warn("emit error event",
		zap.String("table_id", te.table.ID),
		zap.Int64("serial", te.table.UpdateSerial),
		zap.Int("round", te.table.State.RoundCount),
		zap.String("player_id", playerID),
		zap.String("event", eventName),
		zap.Error(err),
	)

	snapshot := te.snapshot()
	if snapshot == nil {
		return
	}

	te.enqueue(func() {
		te.onTableErrorUpdated(snapshot, err)
	})
}

func (te *tableEngine) emitTableStateEvent(eventName string) {
	snapshot := te.snapshot()
	if snapshot == nil {
		return
	}

	te.enqueue(func() {
		te.onTableStateUpdated(eventName, snapshot)
	})
}

func (te *tableEngine) emitSeatResultEvent(result *SeatResult) {
	snapshot := te.snapshot()
	if snapshot == nil {
		return
	}

	te.enqueue(func() {
		te.onSeatResultUpdated(snapshot, result)
	})
}

func (te *tableEngine) enqueue(fn func()) {
	te.pending = append(te.pending, fn)
}

// flush must be called without holding te.lock.
func (te *tableEngine) flush() {
	te.emitLock.Lock()
	defer te.emitLock.Unlock()

	te.lock.Lock()
	events := te.pending
	te.pending = nil
	te.lock.Unlock()

	for _, fn := range events {
		fn()
	}
}

// snapshot returns nil when the table cannot be cloned; the live table never leaves the lock.
func (te *tableEngine) snapshot() *Table {
	cloned, err := te.table.Clone()
	if err != nil {
		te.logger.Error("failed to clone table", zap.String("table_id", te.table.ID), zap.Error(err))
		return nil
	}
	return cloned
}
