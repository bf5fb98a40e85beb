package matchmaking

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/thoas/go-funk"
	"github.com/weedbox/cardtable"
	"go.uber.org/zap"
)

var (
	ErrAlreadyQueued   = errors.New("matchmaking: player already queued")
	ErrAlreadySeated   = errors.New("matchmaking: player already seated at a table")
	ErrNotQueued       = errors.New("matchmaking: player not queued")
	ErrInvalidGameType = errors.New("matchmaking: invalid game type")

	// ErrPlayerUnavailable is wrapped by Matcher errors for players that can never be matched, their entries are dropped.
	ErrPlayerUnavailable = errors.New("matchmaking: player unavailable")
)

// Matcher performs the table side of a match.
type Matcher interface {
	IsSeated(playerID string) bool
	FindOpenTable(gameType cardtable.GameType) (string, bool)
	MatchTable(playerID string, tableID string) error
	SpawnTable(gameType cardtable.GameType, playerIDs []string) (string, error)
}

type Entry struct {
	PlayerID   string             `json:"player_id"`
	GameType   cardtable.GameType `json:"game_type"`
	EnqueuedAt time.Time          `json:"enqueued_at"`
}

type Options struct {
	Interval      time.Duration // 配桌檢查間隔
	WaitThreshold time.Duration // 等待超過此時間即開新桌
	BatchSize     int           // 新桌最多入座人數
	Logger        *zap.Logger
}

func NewOptions() *Options {
	return &Options{
		Interval:      5 * time.Second,
		WaitThreshold: 30 * time.Second,
		BatchSize:     4,
		Logger:        zap.NewNop(),
	}
}

type Queue struct {
	mu        sync.Mutex
	drainLock sync.Mutex
	options   *Options
	matcher   Matcher
	queues    map[cardtable.GameType][]*Entry
	logger    *zap.Logger
}

func NewQueue(options *Options, matcher Matcher) *Queue {
	if options == nil {
		options = NewOptions()
	}

	if options.Logger == nil {
		options.Logger = zap.NewNop()
	}

	if options.BatchSize <= 0 {
		options.BatchSize = 1
	}

	return &Queue{
		options: options,
		matcher: matcher,
		queues:  make(map[cardtable.GameType][]*Entry),
		logger:  options.Logger,
	}
}

/*
Enqueue 加入快速配桌
  - 已入座或已在任一佇列中的玩家會被拒絕
*/
func (q *Queue) Enqueue(playerID string, gameType cardtable.GameType, now time.Time) error {
	if !gameType.IsValid() {
		return ErrInvalidGameType
	}

	if q.matcher.IsSeated(playerID) {
		return ErrAlreadySeated
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.find(playerID) != nil {
		return ErrAlreadyQueued
	}

	q.queues[gameType] = append(q.queues[gameType], &Entry{
		PlayerID:   playerID,
		GameType:   gameType,
		EnqueuedAt: now,
	})

	q.logger.Debug("player queued", zap.String("player_id", playerID), zap.String("game_type", string(gameType)))
	return nil
}

func (q *Queue) Dequeue(playerID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	entry := q.find(playerID)
	if entry == nil {
		return ErrNotQueued
	}

	q.queues[entry.GameType] = funk.Filter(q.queues[entry.GameType], func(e *Entry) bool {
		return e.PlayerID != playerID
	}).([]*Entry)

	return nil
}

func (q *Queue) IsQueued(playerID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.find(playerID) != nil
}

func (q *Queue) Len(gameType cardtable.GameType) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.queues[gameType])
}

// Entries returns the waiting entries of a game type, longest waiting first.
func (q *Queue) Entries(gameType cardtable.GameType) []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()

	entries := make([]Entry, 0, len(q.queues[gameType]))
	for _, e := range q.queues[gameType] {
		entries = append(entries, *e)
	}
	return entries
}

/*
Drain 執行一次配桌
  - 有空位且尚未開局的公開桌: 依等待順序逐一入座
  - 最久的玩家等待超過門檻: 取最多 BatchSize 位開新桌
  - 配桌失敗的玩家放回佇列前端, 保留原本的等待時間
  - Matcher 回報 ErrPlayerUnavailable 的玩家直接移出佇列
*/
func (q *Queue) Drain(now time.Time) {
	q.drainLock.Lock()
	defer q.drainLock.Unlock()

	for _, gameType := range q.gameTypes() {
		q.fillOpenTables(gameType)
		q.spawnTable(gameType, now)
	}
}

// Run drains the queue every Interval until ctx is done.
func (q *Queue) Run(ctx context.Context) {
	ticker := time.NewTicker(q.options.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			q.Drain(now)
		}
	}
}

func (q *Queue) fillOpenTables(gameType cardtable.GameType) {
	for {
		entry := q.popFront(gameType, 1)
		if len(entry) == 0 {
			return
		}

		// seated elsewhere since queueing
		if q.matcher.IsSeated(entry[0].PlayerID) {
			continue
		}

		tableID, ok := q.matcher.FindOpenTable(gameType)
		if !ok {
			q.pushFront(gameType, entry)
			return
		}

		err := q.matcher.MatchTable(entry[0].PlayerID, tableID)
		if errors.Is(err, ErrPlayerUnavailable) {
			q.logger.Info("drop unavailable player",
				zap.String("player_id", entry[0].PlayerID),
				zap.Error(err),
			)
			continue
		}

		if err != nil {
			q.logger.Warn("failed to join open table",
				zap.String("player_id", entry[0].PlayerID),
				zap.String("table_id", tableID),
				zap.Error(err),
			)
			q.pushFront(gameType, entry)
			return
		}

		q.logger.Info("player matched",
			zap.String("player_id", entry[0].PlayerID),
			zap.String("table_id", tableID),
		)
	}
}

func (q *Queue) spawnTable(gameType cardtable.GameType, now time.Time) {
	q.mu.Lock()
	waiting := q.queues[gameType]
	expired := len(waiting) > 0 && now.Sub(waiting[0].EnqueuedAt) >= q.options.WaitThreshold
	q.mu.Unlock()

	if !expired {
		return
	}

	batch := q.popFront(gameType, q.options.BatchSize)
	if len(batch) == 0 {
		return
	}

	playerIDs := funk.Map(batch, func(e *Entry) string {
		return e.PlayerID
	}).([]string)

	tableID, err := q.matcher.SpawnTable(gameType, playerIDs)
	if errors.Is(err, ErrPlayerUnavailable) {
		q.logger.Info("drop unavailable batch",
			zap.String("game_type", string(gameType)),
			zap.Strings("player_ids", playerIDs),
			zap.Error(err),
		)
		return
	}

	if err != nil {
		q.logger.Warn("failed to spawn table",
			zap.String("game_type", string(gameType)),
			zap.Strings("player_ids", playerIDs),
			zap.Error(err),
		)
		q.pushFront(gameType, batch)
		return
	}

	q.logger.Info("table spawned for queue",
		zap.String("table_id", tableID),
		zap.String("game_type", string(gameType)),
		zap.Strings("player_ids", playerIDs),
	)
}

func (q *Queue) popFront(gameType cardtable.GameType, n int) []*Entry {
	q.mu.Lock()
	defer q.mu.Unlock()

	waiting := q.queues[gameType]
	if n > len(waiting) {
		n = len(waiting)
	}

	popped := append([]*Entry{}, waiting[:n]...)
	q.queues[gameType] = waiting[n:]
	return popped
}

func (q *Queue) pushFront(gameType cardtable.GameType, entries []*Entry) {
	q.mu.Lock()
	defer q.mu.Unlock()

	// entries queued again meanwhile keep their newer position
	restored := funk.Filter(entries, func(e *Entry) bool {
		return q.find(e.PlayerID) == nil
	}).([]*Entry)

	q.queues[gameType] = append(restored, q.queues[gameType]...)
}

func (q *Queue) gameTypes() []cardtable.GameType {
	q.mu.Lock()
	defer q.mu.Unlock()

	gameTypes := make([]cardtable.GameType, 0, len(q.queues))
	for gameType := range q.queues {
		gameTypes = append(gameTypes, gameType)
	}

	sort.Slice(gameTypes, func(i, j int) bool {
		return gameTypes[i] < gameTypes[j]
	})
	return gameTypes
}

func (q *Queue) find(playerID string) *Entry {
	for _, waiting := range q.queues {
		for _, e := range waiting {
			if e.PlayerID == playerID {
				return e
			}
		}
	}
	return nil
}
