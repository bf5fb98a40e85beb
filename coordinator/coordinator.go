package coordinator

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/weedbox/cardtable"
	"github.com/weedbox/cardtable/matchmaking"
	"github.com/weedbox/cardtable/session"
	"go.uber.org/zap"
)

var (
	ErrAlreadySeated = errors.New("coordinator: already seated at a table")
	ErrNotSeated     = errors.New("coordinator: not seated at any table")
	ErrNoPlayers     = errors.New("coordinator: no players left to seat")
)

type Options struct {
	StartingBalance    int64
	DefaultTableSeats  int
	DefaultTableMinBet int64
	MinPlayers         map[cardtable.GameType]int
	Engine             *cardtable.TableEngineOptions
	Matchmaking        *matchmaking.Options
	Logger             *zap.Logger
}

func NewOptions() *Options {
	return &Options{
		StartingBalance:    1000,
		DefaultTableSeats:  4,
		DefaultTableMinBet: 10,
		MinPlayers: map[cardtable.GameType]int{
			cardtable.GameType_Blackjack: 1,
			cardtable.GameType_Poker:     2,
		},
		Engine:      cardtable.NewTableEngineOptions(),
		Matchmaking: matchmaking.NewOptions(),
		Logger:      zap.NewNop(),
	}
}

/*
Coordinator 處理玩家意圖
  - 以 Session 找出玩家與所在桌次, 交由桌次引擎執行
  - 失敗時只通知發出意圖的玩家, 不廣播
  - 桌面狀態廣播給同桌玩家, 大廳列表廣播給所有已登入玩家
*/
type Coordinator struct {
	seatLock       sync.Mutex
	options        *Options
	dir            *session.Directory
	manager        cardtable.Manager
	queue          *matchmaking.Queue
	bc             Broadcaster
	logger         *zap.Logger
	defaultTableID string
	engineOpts     []cardtable.TableEngineOpt
}

type Opt func(*Coordinator)

// WithTableEngineOpts applies opts to every table the coordinator creates.
func WithTableEngineOpts(opts ...cardtable.TableEngineOpt) Opt {
	return func(c *Coordinator) {
		c.engineOpts = append(c.engineOpts, opts...)
	}
}

func NewCoordinator(options *Options, dir *session.Directory, manager cardtable.Manager, bc Broadcaster, opts ...Opt) (*Coordinator, error) {
	if options == nil {
		options = NewOptions()
	}

	if options.Logger == nil {
		options.Logger = zap.NewNop()
	}

	if options.Engine == nil {
		options.Engine = cardtable.NewTableEngineOptions()
	}

	if options.Engine.Logger == nil {
		options.Engine.Logger = options.Logger
	}

	if options.Matchmaking == nil {
		options.Matchmaking = matchmaking.NewOptions()
	}

	if options.Matchmaking.Logger == nil {
		options.Matchmaking.Logger = options.Logger
	}

	c := &Coordinator{
		options: options,
		dir:     dir,
		manager: manager,
		bc:      bc,
		logger:  options.Logger,
	}

	for _, opt := range opts {
		opt(c)
	}

	c.queue = matchmaking.NewQueue(options.Matchmaking, c)

	table, err := c.createTable(cardtable.TableSetting{
		Meta: cardtable.TableMeta{
			GameType:       cardtable.GameType_Blackjack,
			MaxSeatCount:   options.DefaultTableSeats,
			MinPlayerCount: options.MinPlayers[cardtable.GameType_Blackjack],
			MinBet:         options.DefaultTableMinBet,
			IsPermanent:    true,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create default table: %w", err)
	}
	c.defaultTableID = table.ID

	return c, nil
}

func (c *Coordinator) Queue() *matchmaking.Queue {
	return c.queue
}

func (c *Coordinator) DefaultTableID() string {
	return c.defaultTableID
}

func (c *Coordinator) Authenticate(playerID, name string) error {
	s := c.dir.Open(playerID, name, c.options.StartingBalance)
	c.bc.JoinGroup(playerID, LobbyGroup)

	if s.TableID != "" {
		c.bc.JoinGroup(playerID, s.TableID)
	}

	c.bc.SendTo(playerID, Event_AuthResult, AuthResult{
		PlayerID: s.ID,
		Name:     s.Name,
		Balance:  s.Balance,
		TableID:  s.TableID,
		Tables:   c.manager.ListTables(),
	})

	c.logger.Info("player authenticated", zap.String("player_id", playerID), zap.Int64("balance", s.Balance))
	return nil
}

func (c *Coordinator) ListTables(playerID string) error {
	if _, err := c.dir.Get(playerID); err != nil {
		return c.reject(playerID, "list_tables", err)
	}

	c.bc.SendTo(playerID, Event_TableList, c.manager.ListTables())
	return nil
}

/*
CreateTable 建立桌次並讓建立者入座
  - 未指定的座位數與最低下注使用預設值
*/
func (c *Coordinator) CreateTable(playerID string, req CreateTableRequest) (string, error) {
	c.seatLock.Lock()
	defer c.seatLock.Unlock()

	s, err := c.dir.Get(playerID)
	if err != nil {
		return "", c.reject(playerID, "create_table", err)
	}

	if s.TableID != "" {
		return "", c.reject(playerID, "create_table", ErrAlreadySeated)
	}

	if req.GameType == "" {
		req.GameType = cardtable.GameType_Blackjack
	}

	if req.MaxPlayers <= 0 {
		req.MaxPlayers = c.options.DefaultTableSeats
	}

	if req.MinBet <= 0 {
		req.MinBet = c.options.DefaultTableMinBet
	}

	table, err := c.createTable(cardtable.TableSetting{
		Meta: cardtable.TableMeta{
			GameType:       req.GameType,
			MaxSeatCount:   req.MaxPlayers,
			MinPlayerCount: c.options.MinPlayers[req.GameType],
			MinBet:         req.MinBet,
			IsPrivate:      req.IsPrivate,
			Password:       req.Password,
		},
		JoinPlayers: []cardtable.JoinPlayer{
			{PlayerID: s.ID, Name: s.Name},
		},
	})
	if err != nil {
		return "", c.reject(playerID, "create_table", err)
	}

	c.seated(playerID, table.ID)

	c.logger.Info("table created",
		zap.String("table_id", table.ID),
		zap.String("game_type", string(req.GameType)),
		zap.String("host_id", playerID),
	)
	return table.ID, nil
}

func (c *Coordinator) JoinTable(playerID, tableID, password string) error {
	c.seatLock.Lock()
	defer c.seatLock.Unlock()

	if err := c.join(playerID, tableID, password); err != nil {
		return c.reject(playerID, "join_table", err)
	}
	return nil
}

/*
LeaveTable 玩家離桌回到大廳
  - 桌次已不存在或玩家已不在座位上時視同離桌成功
  - 非常駐桌無人後關閉
*/
func (c *Coordinator) LeaveTable(playerID string) error {
	c.seatLock.Lock()
	defer c.seatLock.Unlock()

	s, err := c.dir.Get(playerID)
	if err != nil {
		return c.reject(playerID, "leave_table", err)
	}

	if s.TableID == "" {
		return c.reject(playerID, "leave_table", ErrNotSeated)
	}

	c.leave(s)

	c.bc.SendTo(playerID, Event_ReturnToLobby, c.manager.ListTables())
	c.sendBalance(playerID)
	return nil
}

func (c *Coordinator) PlaceBet(playerID string, amount int64) error {
	err := c.tableAction(playerID, "place_bet", func(tableID string) error {
		return c.manager.PlayerBet(tableID, playerID, amount)
	})
	if err != nil {
		return err
	}

	c.sendBalance(playerID)
	return nil
}

func (c *Coordinator) StartRound(playerID string) error {
	return c.tableAction(playerID, "start_round", func(tableID string) error {
		return c.manager.StartRound(tableID, playerID)
	})
}

func (c *Coordinator) Hit(playerID string) error {
	return c.tableAction(playerID, "hit", func(tableID string) error {
		return c.manager.PlayerHit(tableID, playerID)
	})
}

func (c *Coordinator) Stand(playerID string) error {
	return c.tableAction(playerID, "stand", func(tableID string) error {
		return c.manager.PlayerStand(tableID, playerID)
	})
}

func (c *Coordinator) PokerFold(playerID string) error {
	return c.tableAction(playerID, "fold", func(tableID string) error {
		return c.manager.PlayerFold(tableID, playerID)
	})
}

func (c *Coordinator) PokerCall(playerID string) error {
	return c.tableAction(playerID, "call_check", func(tableID string) error {
		return c.manager.PlayerCall(tableID, playerID)
	})
}

func (c *Coordinator) PokerRaise(playerID string, chipLevel int64) error {
	return c.tableAction(playerID, "raise", func(tableID string) error {
		return c.manager.PlayerRaise(tableID, playerID, chipLevel)
	})
}

func (c *Coordinator) QuickPlay(playerID string, gameType cardtable.GameType) error {
	if _, err := c.dir.Get(playerID); err != nil {
		return c.reject(playerID, "quick_play", err)
	}

	if gameType == "" {
		gameType = cardtable.GameType_Blackjack
	}

	if err := c.queue.Enqueue(playerID, gameType, time.Now()); err != nil {
		return c.reject(playerID, "quick_play", err)
	}

	c.bc.SendTo(playerID, Event_QueueJoined, QueueStatus{GameType: gameType})
	return nil
}

func (c *Coordinator) CancelQuickPlay(playerID string) error {
	if err := c.queue.Dequeue(playerID); err != nil {
		return c.reject(playerID, "cancel_quick_play", err)
	}

	c.bc.SendTo(playerID, Event_QueueLeft, QueueStatus{})
	return nil
}

// Disconnect is an implicit leave. Calling it for an unknown or already disconnected player is a no-op.
func (c *Coordinator) Disconnect(playerID string) {
	c.queue.Dequeue(playerID)

	c.seatLock.Lock()
	defer c.seatLock.Unlock()

	s, err := c.dir.Get(playerID)
	if err != nil {
		return
	}

	if s.TableID != "" {
		c.leave(s)
	}

	c.bc.LeaveGroup(playerID, LobbyGroup)
	c.dir.Close(playerID)

	c.logger.Info("player disconnected", zap.String("player_id", playerID))
}

// Matcher

func (c *Coordinator) IsSeated(playerID string) bool {
	s, err := c.dir.Get(playerID)
	return err == nil && s.TableID != ""
}

func (c *Coordinator) FindOpenTable(gameType cardtable.GameType) (string, bool) {
	return c.manager.FindOpenTable(gameType)
}

func (c *Coordinator) MatchTable(playerID, tableID string) error {
	c.seatLock.Lock()
	defer c.seatLock.Unlock()

	err := c.join(playerID, tableID, "")
	if errors.Is(err, session.ErrSessionNotFound) || errors.Is(err, ErrAlreadySeated) {
		return fmt.Errorf("%w: %w", matchmaking.ErrPlayerUnavailable, err)
	}
	return err
}

/*
SpawnTable 為配桌佇列開新桌
  - 已斷線的玩家略過
*/
func (c *Coordinator) SpawnTable(gameType cardtable.GameType, playerIDs []string) (string, error) {
	c.seatLock.Lock()
	defer c.seatLock.Unlock()

	joinPlayers := make([]cardtable.JoinPlayer, 0, len(playerIDs))
	for _, playerID := range playerIDs {
		s, err := c.dir.Get(playerID)
		if err != nil || s.TableID != "" {
			continue
		}
		joinPlayers = append(joinPlayers, cardtable.JoinPlayer{PlayerID: s.ID, Name: s.Name})
	}

	if len(joinPlayers) == 0 {
		return "", fmt.Errorf("%w: %w", matchmaking.ErrPlayerUnavailable, ErrNoPlayers)
	}

	seats := c.options.DefaultTableSeats
	if seats < len(joinPlayers) {
		seats = len(joinPlayers)
	}

	table, err := c.createTable(cardtable.TableSetting{
		Meta: cardtable.TableMeta{
			GameType:       gameType,
			MaxSeatCount:   seats,
			MinPlayerCount: c.options.MinPlayers[gameType],
			MinBet:         c.options.DefaultTableMinBet,
		},
		JoinPlayers: joinPlayers,
	})
	if err != nil {
		return "", err
	}

	for _, jp := range joinPlayers {
		c.seated(jp.PlayerID, table.ID)
	}

	return table.ID, nil
}

func (c *Coordinator) createTable(setting cardtable.TableSetting) (*cardtable.Table, error) {
	callbacks := &cardtable.TableEngineCallbacks{
		OnTableUpdated:      c.onTableUpdated,
		OnTableErrorUpdated: c.onTableErrorUpdated,
		OnTableStateUpdated: c.onTableStateUpdated,
		OnSeatResultUpdated: c.onSeatResultUpdated,
	}

	return c.manager.CreateTable(c.options.Engine, callbacks, setting, c.engineOpts...)
}

// join must be called with seatLock held.
func (c *Coordinator) join(playerID, tableID, password string) error {
	s, err := c.dir.Get(playerID)
	if err != nil {
		return err
	}

	if s.TableID != "" {
		return ErrAlreadySeated
	}

	err = c.manager.PlayerJoin(tableID, cardtable.JoinPlayer{
		PlayerID: s.ID,
		Name:     s.Name,
		Password: password,
	})
	if err != nil {
		return err
	}

	c.seated(playerID, tableID)
	return nil
}

func (c *Coordinator) seated(playerID, tableID string) {
	c.dir.SetTable(playerID, tableID)
	c.queue.Dequeue(playerID)
	c.bc.JoinGroup(playerID, tableID)

	c.bc.SendTo(playerID, Event_TableJoined, TableJoined{TableID: tableID})
	if te, err := c.manager.GetTableEngine(tableID); err == nil {
		if table := te.GetTable(); table != nil {
			c.bc.SendTo(playerID, Event_TableState, cardtable.NewTableView(table))
		}
	}
}

// leave must be called with seatLock held.
func (c *Coordinator) leave(s session.Session) {
	err := c.manager.PlayerLeave(s.TableID, s.ID)
	if err != nil && !errors.Is(err, cardtable.ErrManagerTableNotFound) && !errors.Is(err, cardtable.ErrTablePlayerNotFound) {
		c.logger.Warn("failed to leave table", zap.String("player_id", s.ID), zap.String("table_id", s.TableID), zap.Error(err))
	}

	c.dir.ClearTable(s.ID, s.TableID)
	c.bc.LeaveGroup(s.ID, s.TableID)

	closed, err := c.manager.CloseTableIfEmpty(s.TableID)
	if closed {
		c.logger.Info("empty table closed", zap.String("table_id", s.TableID))
	}
	if err != nil && !errors.Is(err, cardtable.ErrManagerTableNotFound) {
		c.logger.Warn("failed to close empty table", zap.String("table_id", s.TableID), zap.Error(err))
	}
}

func (c *Coordinator) tableAction(playerID string, intent string, fn func(tableID string) error) error {
	s, err := c.dir.Get(playerID)
	if err != nil {
		return c.reject(playerID, intent, err)
	}

	if s.TableID == "" {
		return c.reject(playerID, intent, ErrNotSeated)
	}

	if err := fn(s.TableID); err != nil {
		return c.reject(playerID, intent, err)
	}

	return nil
}

func (c *Coordinator) reject(playerID string, intent string, err error) error {
	c.logger.Debug("intent rejected",
		zap.String("player_id", playerID),
		zap.String("intent", intent),
		zap.Error(err),
	)

	c.bc.SendTo(playerID, Event_ErrorMessage, ErrorMessage{
		Intent:  intent,
		Message: err.Error(),
	})
	return err
}

func (c *Coordinator) sendBalance(playerID string) {
	balance, err := c.dir.Balance(playerID)
	if err != nil {
		return
	}

	c.bc.SendTo(playerID, Event_BalanceUpdated, BalanceUpdated{Balance: balance})
}

// Table engine callbacks. They run after the table lock is released.

func (c *Coordinator) onTableUpdated(table *cardtable.Table) {
	c.bc.Broadcast(table.ID, Event_TableState, cardtable.NewTableView(table))
}

func (c *Coordinator) onTableStateUpdated(event string, table *cardtable.Table) {
	c.bc.Broadcast(LobbyGroup, Event_TableList, c.manager.ListTables())
}

func (c *Coordinator) onSeatResultUpdated(table *cardtable.Table, result *cardtable.SeatResult) {
	c.bc.SendTo(result.PlayerID, Event_SeatResult, result)
	c.bc.SendTo(result.PlayerID, Event_BalanceUpdated, BalanceUpdated{Balance: result.Balance})
}

func (c *Coordinator) onTableErrorUpdated(table *cardtable.Table, err error) {
	c.logger.Warn("table error",
		zap.String("table_id", table.ID),
		zap.String("status", string(table.State.Status)),
		zap.Error(err),
	)
}
