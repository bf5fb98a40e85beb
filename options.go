package cardtable

import (
	"time"

	"github.com/weedbox/cardtable/card"
	"go.uber.org/zap"
)

type TableEngineCallbacks struct {
	OnTableUpdated      func(t *Table)
	OnTableErrorUpdated func(t *Table, err error)
	OnTableStateUpdated func(string, *Table)
	OnSeatResultUpdated func(t *Table, result *SeatResult)
}

func NewTableEngineCallbacks() *TableEngineCallbacks {
	return &TableEngineCallbacks{
		OnTableUpdated:      func(*Table) {},
		OnTableErrorUpdated: func(*Table, error) {},
		OnTableStateUpdated: func(string, *Table) {},
		OnSeatResultUpdated: func(*Table, *SeatResult) {},
	}
}

type TableEngineOptions struct {
	DealerDrawInterval    time.Duration // 莊家每次補牌間隔, 0 表示立即補完
	ResultDisplayDuration time.Duration // 結算展示時間, 0 表示立即重置
	AutoStartTimeout      int           // 全員下注後桌主未開局的自動開局秒數, 0 表示停用
	Logger                *zap.Logger
}

func NewTableEngineOptions() *TableEngineOptions {
	return &TableEngineOptions{
		DealerDrawInterval:    1500 * time.Millisecond,
		ResultDisplayDuration: 5 * time.Second,
		AutoStartTimeout:      0,
		Logger:                zap.NewNop(),
	}
}

type TableEngineOpt func(*tableEngine)

// WithShoeOptions configures the shoe of every blackjack round.
func WithShoeOptions(opts ...card.ShoeOpt) TableEngineOpt {
	return func(te *tableEngine) {
		te.shoeOpts = append(te.shoeOpts, opts...)
	}
}

func WithPokerBackend(backend *PokerBackend) TableEngineOpt {
	return func(te *tableEngine) {
		te.pokerBackend = backend
	}
}
