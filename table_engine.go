package cardtable

import (
	"errors"
	"sync"
	"time"

	"github.com/weedbox/cardtable/card"
	"github.com/weedbox/cardtable/open_game_manager"
	"github.com/weedbox/timebank"
	"go.uber.org/zap"
)

var (
	ErrTableInvalidCreateSetting = errors.New("table: invalid create table setting")
	ErrTableInvalidState         = errors.New("table: action not allowed in current state")
	ErrTableInvalidAction        = errors.New("table: action not supported by this game")
	ErrTableNotYourTurn          = errors.New("table: not your turn")
	ErrTablePlayerNotFound       = errors.New("table: player not found")
	ErrTableNoEmptySeats         = errors.New("table: no empty seats available")
	ErrTableWrongPassword        = errors.New("table: wrong password")
	ErrTableBelowMinimumBet      = errors.New("table: bet is below table minimum")
	ErrTableAlreadyBet           = errors.New("table: bet already placed this round")
	ErrTableAlreadySeated        = errors.New("table: player already seated")
	ErrTableNotHost              = errors.New("table: only the host can start the round")
	ErrTableNotEnoughPlayers     = errors.New("table: not enough players")
	ErrTableClosed               = errors.New("table: table is closed")
	ErrTableSnapshotFailed       = errors.New("table: failed to snapshot table")
)

// Wallet moves a participant's funds. Every debit and credit made by an engine goes through it.
type Wallet interface {
	Balance(playerID string) (int64, error)
	Debit(playerID string, amount int64) (int64, error)
	Credit(playerID string, amount int64) (int64, error)
}

type TableEngine interface {
	// Events
	OnTableUpdated(fn func(*Table))                   // 桌次更新事件監聽器
	OnTableErrorUpdated(fn func(*Table, error))       // 錯誤更新事件監聽器
	OnTableStateUpdated(fn func(string, *Table))      // 桌次狀態監聽器 (大廳列表用)
	OnSeatResultUpdated(fn func(*Table, *SeatResult)) // 座位結算監聽器

	// Table Actions
	GetTable() *Table                                      // 取得桌次快照
	CreateTable(tableSetting TableSetting) (*Table, error) // 建立桌
	CloseTable() error                                     // 關閉桌
	StartRound(playerID string) error                      // 桌主開局

	// Player Table Actions
	PlayerJoin(joinPlayer JoinPlayer) error // 玩家入桌
	PlayerLeave(playerID string) error      // 玩家離桌

	// Blackjack Actions
	PlayerBet(playerID string, chips int64) error // 玩家下注
	PlayerHit(playerID string) error              // 玩家要牌
	PlayerStand(playerID string) error            // 玩家停牌

	// Poker Actions
	PlayerFold(playerID string) error                   // 玩家棄牌
	PlayerCall(playerID string) error                   // 玩家跟注 (無注可跟時過牌)
	PlayerRaise(playerID string, chipLevel int64) error // 玩家加注
}

// tableRules is the per game type part of a table's state machine.
type tableRules interface {
	startRound() error
	refreshStatus()
	leave(seatIdx int)
	release()
}

type tableEngine struct {
	lock         sync.Mutex
	emitLock     sync.Mutex
	options      *TableEngineOptions
	table        *Table
	wallet       Wallet
	rules        tableRules
	tb           *timebank.TimeBank
	gate         open_game_manager.OpenGameManager
	logger       *zap.Logger
	pending      []func()
	shoeOpts     []card.ShoeOpt
	pokerBackend *PokerBackend

	onTableUpdated      func(*Table)
	onTableErrorUpdated func(*Table, error)
	onTableStateUpdated func(string, *Table)
	onSeatResultUpdated func(*Table, *SeatResult)
}

func NewTableEngine(options *TableEngineOptions, wallet Wallet, gameType GameType, opts ...TableEngineOpt) (TableEngine, error) {
	if options == nil {
		options = NewTableEngineOptions()
	}

	if options.Logger == nil {
		options.Logger = zap.NewNop()
	}

	callbacks := NewTableEngineCallbacks()
	te := &tableEngine{
		options:             options,
		wallet:              wallet,
		tb:                  timebank.NewTimeBank(),
		logger:              options.Logger,
		onTableUpdated:      callbacks.OnTableUpdated,
		onTableErrorUpdated: callbacks.OnTableErrorUpdated,
		onTableStateUpdated: callbacks.OnTableStateUpdated,
		onSeatResultUpdated: callbacks.OnSeatResultUpdated,
	}

	for _, opt := range opts {
		opt(te)
	}

	if options.AutoStartTimeout > 0 {
		te.gate = open_game_manager.NewOpenGameManager(open_game_manager.OpenGameOption{
			Timeout: options.AutoStartTimeout,
			OnOpenGameReady: func(state open_game_manager.OpenGameState) {
				// ready group callbacks must not block on the table lock
				go te.autoStart(state.GameCount)
			},
		})
	}

	switch gameType {
	case GameType_Blackjack:
		return newBlackjackEngine(te), nil
	case GameType_Poker:
		return newPokerEngine(te), nil
	}

	return nil, ErrManagerUnknownGameType
}

func (te *tableEngine) OnTableUpdated(fn func(*Table)) {
	te.onTableUpdated = fn
}

func (te *tableEngine) OnTableErrorUpdated(fn func(*Table, error)) {
	te.onTableErrorUpdated = fn
}

func (te *tableEngine) OnTableStateUpdated(fn func(string, *Table)) {
	te.onTableStateUpdated = fn
}

func (te *tableEngine) OnSeatResultUpdated(fn func(*Table, *SeatResult)) {
	te.onSeatResultUpdated = fn
}

func (te *tableEngine) GetTable() *Table {
	te.lock.Lock()
	defer te.lock.Unlock()

	if te.table == nil {
		return nil
	}

	return te.snapshot()
}

func (te *tableEngine) CreateTable(tableSetting TableSetting) (*Table, error) {
	defer te.flush()

	te.lock.Lock()
	defer te.lock.Unlock()

	meta := tableSetting.Meta
	if meta.MaxSeatCount <= 0 || meta.MinBet <= 0 || len(tableSetting.JoinPlayers) > meta.MaxSeatCount {
		return nil, ErrTableInvalidCreateSetting
	}

	if meta.MinPlayerCount <= 0 {
		tableSetting.Meta.MinPlayerCount = meta.GameType.DefaultMinPlayerCount()
	}

	if tableSetting.Meta.MinPlayerCount > meta.MaxSeatCount {
		return nil, ErrTableInvalidCreateSetting
	}

	te.table = NewTable(tableSetting)

	// 建桌者與配桌玩家直接入座, 不檢查密碼
	for _, jp := range tableSetting.JoinPlayers {
		if err := te.seatPlayer(jp, false); err != nil {
			return nil, err
		}
	}
	te.rules.refreshStatus()

	te.emitEvent("CreateTable", "")
	te.emitTableStateEvent(TableStateEvent_Created)

	table := te.snapshot()
	if table == nil {
		return nil, ErrTableSnapshotFailed
	}
	return table, nil
}

/*
CloseTable 關閉桌次
  - 取消所有排程中的莊家補牌與重置
  - 尚未結算的籌碼退回玩家
*/
func (te *tableEngine) CloseTable() error {
	defer te.flush()

	te.lock.Lock()
	defer te.lock.Unlock()

	if err := te.checkOpen(); err != nil {
		return err
	}

	te.tb.Cancel()
	te.rules.release()
	te.setStatus(TableStateStatus_Closed)

	te.emitEvent("CloseTable", "")
	te.emitTableStateEvent(TableStateEvent_Closed)
	return nil
}

func (te *tableEngine) StartRound(playerID string) error {
	defer te.flush()

	te.lock.Lock()
	defer te.lock.Unlock()

	if err := te.checkOpen(); err != nil {
		return err
	}

	if te.table.State.Status != TableStateStatus_ReadyToStart {
		return ErrTableInvalidState
	}

	if !te.table.HasSeat(playerID) {
		return ErrTablePlayerNotFound
	}

	if te.table.State.HostID != playerID {
		return ErrTableNotHost
	}

	return te.rules.startRound()
}

func (te *tableEngine) PlayerJoin(joinPlayer JoinPlayer) error {
	defer te.flush()

	te.lock.Lock()
	defer te.lock.Unlock()

	if err := te.seatPlayer(joinPlayer, true); err != nil {
		return err
	}

	te.rules.refreshStatus()
	return nil
}

func (te *tableEngine) PlayerLeave(playerID string) error {
	defer te.flush()

	te.lock.Lock()
	defer te.lock.Unlock()

	if te.table == nil {
		return ErrTableClosed
	}

	seatIdx := te.table.FindSeatIdx(playerID)
	if seatIdx == UnsetValue {
		return ErrTablePlayerNotFound
	}

	te.rules.leave(seatIdx)

	te.emitEvent("PlayerLeave", playerID)
	te.emitTableStateEvent(TableStateEvent_SeatsUpdated)
	return nil
}

func (te *tableEngine) PlayerBet(playerID string, chips int64) error {
	return ErrTableInvalidAction
}

func (te *tableEngine) PlayerHit(playerID string) error {
	return ErrTableInvalidAction
}

func (te *tableEngine) PlayerStand(playerID string) error {
	return ErrTableInvalidAction
}

func (te *tableEngine) PlayerFold(playerID string) error {
	return ErrTableInvalidAction
}

func (te *tableEngine) PlayerCall(playerID string) error {
	return ErrTableInvalidAction
}

func (te *tableEngine) PlayerRaise(playerID string, chipLevel int64) error {
	return ErrTableInvalidAction
}

// checkOpen rejects calls made before CreateTable finished or after CloseTable.
func (te *tableEngine) checkOpen() error {
	if te.table == nil || te.table.IsClosed() {
		return ErrTableClosed
	}
	return nil
}

func (te *tableEngine) seatPlayer(jp JoinPlayer, checkPassword bool) error {
	if err := te.checkOpen(); err != nil {
		return err
	}

	if te.table.HasSeat(jp.PlayerID) {
		return ErrTableAlreadySeated
	}

	if te.table.IsFull() {
		return ErrTableNoEmptySeats
	}

	if checkPassword && te.table.Meta.IsPrivate && te.table.Meta.Password != jp.Password {
		return ErrTableWrongPassword
	}

	te.table.AddSeat(jp.PlayerID, jp.Name)

	te.emitEvent("PlayerJoin", jp.PlayerID)
	te.emitTableStateEvent(TableStateEvent_SeatsUpdated)
	return nil
}

func (te *tableEngine) setStatus(status TableStateStatus) {
	prev := te.table.State.Status
	if prev == status {
		return
	}

	te.table.State.Status = status

	if prev == TableStateStatus_ReadyToStart {
		te.disarmAutoStart()
	}

	if status == TableStateStatus_ReadyToStart {
		te.armAutoStart()
	}

	te.logger.Debug("table status updated",
		zap.String("table_id", te.table.ID),
		zap.Int("round", te.table.State.RoundCount),
		zap.String("from", string(prev)),
		zap.String("to", string(status)),
	)
	te.emitEvent(TableStateEvent_StatusUpdated, "")
	te.emitTableStateEvent(TableStateEvent_StatusUpdated)
}

/*
schedule 延遲執行 fn
  - delay 為 0 時於當前鎖內同步執行
  - 到期時若桌次狀態或局數已改變則放棄執行
*/
func (te *tableEngine) schedule(delay time.Duration, fn func()) {
	if delay <= 0 {
		fn()
		return
	}

	status := te.table.State.Status
	round := te.table.State.RoundCount

	err := te.tb.NewTask(delay, func(isCancelled bool) {
		if isCancelled {
			return
		}

		defer te.flush()

		te.lock.Lock()
		defer te.lock.Unlock()

		if te.table.State.Status != status || te.table.State.RoundCount != round {
			te.logger.Debug("drop stale task",
				zap.String("table_id", te.table.ID),
				zap.String("expected_status", string(status)),
				zap.String("status", string(te.table.State.Status)),
			)
			return
		}

		fn()
	})
	if err != nil {
		te.emitErrorEvent("Schedule", "", err)
	}
}

func (te *tableEngine) armAutoStart() {
	if te.gate == nil || te.table.State.HostID == "" {
		return
	}

	te.gate.Setup(te.table.State.RoundCount, map[string]int{
		te.table.State.HostID: 0,
	})
}

func (te *tableEngine) disarmAutoStart() {
	if te.gate == nil {
		return
	}

	te.gate.Stop()
}

func (te *tableEngine) autoStart(round int) {
	defer te.flush()

	te.lock.Lock()
	defer te.lock.Unlock()

	if te.table.State.Status != TableStateStatus_ReadyToStart || te.table.State.RoundCount != round {
		return
	}

	te.logger.Info("host idle, starting round", zap.String("table_id", te.table.ID), zap.String("host_id", te.table.State.HostID))
	if err := te.rules.startRound(); err != nil {
		te.emitErrorEvent("AutoStart", te.table.State.HostID, err)
	}
}
