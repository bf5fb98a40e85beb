package cardtable

import (
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/thoas/go-funk"
)

var (
	ErrManagerTableNotFound   = errors.New("manager: table not found")
	ErrManagerUnknownGameType = errors.New("manager: unknown game type")
	ErrManagerPermanentTable  = errors.New("manager: permanent table cannot be closed")
)

type Manager interface {
	Reset()

	// TableEngine Actions
	GetTableEngine(tableID string) (TableEngine, error)
	CreateTable(options *TableEngineOptions, callbacks *TableEngineCallbacks, setting TableSetting, opts ...TableEngineOpt) (*Table, error)
	CloseTable(tableID string) error
	CloseTableIfEmpty(tableID string) (bool, error)
	ListTables() []TableSummary
	FindOpenTable(gameType GameType) (string, bool)
	StartRound(tableID, playerID string) error

	// Player Table Actions
	PlayerJoin(tableID string, joinPlayer JoinPlayer) error
	PlayerLeave(tableID, playerID string) error

	// Player Game Actions
	PlayerBet(tableID, playerID string, chips int64) error
	PlayerHit(tableID, playerID string) error
	PlayerStand(tableID, playerID string) error
	PlayerFold(tableID, playerID string) error
	PlayerCall(tableID, playerID string) error
	PlayerRaise(tableID, playerID string, chipLevel int64) error
}

type manager struct {
	wallet       Wallet
	tableEngines sync.Map
}

func NewManager(wallet Wallet) Manager {
	return &manager{
		wallet:       wallet,
		tableEngines: sync.Map{},
	}
}

// Reset closes every table, permanent ones included.
func (m *manager) Reset() {
	m.tableEngines.Range(func(key, value interface{}) bool {
		value.(TableEngine).CloseTable()
		return true
	})
	m.tableEngines = sync.Map{}
}

func (m *manager) GetTableEngine(tableID string) (TableEngine, error) {
	tableEngine, exist := m.tableEngines.Load(tableID)
	if !exist {
		return nil, ErrManagerTableNotFound
	}
	return tableEngine.(TableEngine), nil
}

func (m *manager) CreateTable(options *TableEngineOptions, callbacks *TableEngineCallbacks, setting TableSetting, opts ...TableEngineOpt) (*Table, error) {
	var engineOptions *TableEngineOptions
	if options != nil {
		engineOptions = options
	} else {
		engineOptions = NewTableEngineOptions()
	}

	var engineCallbacks *TableEngineCallbacks
	if callbacks != nil {
		engineCallbacks = callbacks
	} else {
		engineCallbacks = NewTableEngineCallbacks()
	}

	if !setting.Meta.GameType.IsValid() {
		return nil, ErrManagerUnknownGameType
	}

	if setting.TableID == "" {
		setting.TableID = uuid.New().String()
	}

	tableEngine, err := NewTableEngine(engineOptions, m.wallet, setting.Meta.GameType, opts...)
	if err != nil {
		return nil, err
	}
	tableEngine.OnTableUpdated(engineCallbacks.OnTableUpdated)
	tableEngine.OnTableErrorUpdated(engineCallbacks.OnTableErrorUpdated)
	tableEngine.OnTableStateUpdated(engineCallbacks.OnTableStateUpdated)
	tableEngine.OnSeatResultUpdated(engineCallbacks.OnSeatResultUpdated)

	// register first so that callbacks fired by CreateTable can already find the table
	m.tableEngines.Store(setting.TableID, tableEngine)

	table, err := tableEngine.CreateTable(setting)
	if err != nil {
		m.tableEngines.Delete(setting.TableID)
		return nil, err
	}

	return table, nil
}

func (m *manager) CloseTable(tableID string) error {
	tableEngine, err := m.GetTableEngine(tableID)
	if err != nil {
		return ErrManagerTableNotFound
	}

	if table := tableEngine.GetTable(); table != nil && table.Meta.IsPermanent {
		return ErrManagerPermanentTable
	}

	m.tableEngines.Delete(tableID)
	return tableEngine.CloseTable()
}

/*
CloseTableIfEmpty 無人桌次自動關閉
  - 常駐桌不關閉
  - 回傳是否已關閉
*/
func (m *manager) CloseTableIfEmpty(tableID string) (bool, error) {
	tableEngine, err := m.GetTableEngine(tableID)
	if err != nil {
		return false, ErrManagerTableNotFound
	}

	table := tableEngine.GetTable()
	if table == nil || table.Meta.IsPermanent || !table.IsEmpty() {
		return false, nil
	}

	if err := m.CloseTable(tableID); err != nil {
		return false, err
	}

	return true, nil
}

func (m *manager) ListTables() []TableSummary {
	tables := m.tables()

	summaries := make([]TableSummary, 0, len(tables))
	for _, table := range tables {
		summaries = append(summaries, table.Summary())
	}
	return summaries
}

// FindOpenTable returns the oldest public table of the game type that still has room before its round starts.
func (m *manager) FindOpenTable(gameType GameType) (string, bool) {
	waiting := []TableStateStatus{
		TableStateStatus_WaitingForPlayers,
		TableStateStatus_WaitingForBets,
		TableStateStatus_ReadyToStart,
	}

	for _, table := range m.tables() {
		if table.Meta.GameType != gameType || table.Meta.IsPrivate || table.IsFull() {
			continue
		}

		if funk.Contains(waiting, table.State.Status) {
			return table.ID, true
		}
	}

	return "", false
}

func (m *manager) StartRound(tableID, playerID string) error {
	tableEngine, err := m.GetTableEngine(tableID)
	if err != nil {
		return ErrManagerTableNotFound
	}

	return tableEngine.StartRound(playerID)
}

func (m *manager) PlayerJoin(tableID string, joinPlayer JoinPlayer) error {
	tableEngine, err := m.GetTableEngine(tableID)
	if err != nil {
		return ErrManagerTableNotFound
	}

	return tableEngine.PlayerJoin(joinPlayer)
}

func (m *manager) PlayerLeave(tableID, playerID string) error {
	tableEngine, err := m.GetTableEngine(tableID)
	if err != nil {
		return ErrManagerTableNotFound
	}

	return tableEngine.PlayerLeave(playerID)
}

func (m *manager) PlayerBet(tableID, playerID string, chips int64) error {
	tableEngine, err := m.GetTableEngine(tableID)
	if err != nil {
		return ErrManagerTableNotFound
	}

	return tableEngine.PlayerBet(playerID, chips)
}

func (m *manager) PlayerHit(tableID, playerID string) error {
	tableEngine, err := m.GetTableEngine(tableID)
	if err != nil {
		return ErrManagerTableNotFound
	}

	return tableEngine.PlayerHit(playerID)
}

func (m *manager) PlayerStand(tableID, playerID string) error {
	tableEngine, err := m.GetTableEngine(tableID)
	if err != nil {
		return ErrManagerTableNotFound
	}

	return tableEngine.PlayerStand(playerID)
}

func (m *manager) PlayerFold(tableID, playerID string) error {
	tableEngine, err := m.GetTableEngine(tableID)
	if err != nil {
		return ErrManagerTableNotFound
	}

	return tableEngine.PlayerFold(playerID)
}

func (m *manager) PlayerCall(tableID, playerID string) error {
	tableEngine, err := m.GetTableEngine(tableID)
	if err != nil {
		return ErrManagerTableNotFound
	}

	return tableEngine.PlayerCall(playerID)
}

func (m *manager) PlayerRaise(tableID, playerID string, chipLevel int64) error {
	tableEngine, err := m.GetTableEngine(tableID)
	if err != nil {
		return ErrManagerTableNotFound
	}

	return tableEngine.PlayerRaise(playerID, chipLevel)
}

// tables returns snapshots of every live table ordered by creation.
func (m *manager) tables() []*Table {
	tables := make([]*Table, 0)
	m.tableEngines.Range(func(key, value interface{}) bool {
		if table := value.(TableEngine).GetTable(); table != nil {
			tables = append(tables, table)
		}
		return true
	})

	sort.Slice(tables, func(i, j int) bool {
		return tables[i].CreatedAt < tables[j].CreatedAt
	})
	return tables
}
