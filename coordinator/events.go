package coordinator

import (
	"github.com/weedbox/cardtable"
)

const LobbyGroup = "lobby"

// Outbound events
const (
	Event_AuthResult     = "auth_result"
	Event_TableList      = "table_list"
	Event_TableJoined    = "table_joined"
	Event_TableState     = "table_state"
	Event_SeatResult     = "seat_result"
	Event_BalanceUpdated = "balance_updated"
	Event_ErrorMessage   = "error_message"
	Event_ReturnToLobby  = "return_to_lobby"
	Event_QueueJoined    = "queue_joined"
	Event_QueueLeft      = "queue_left"
)

// Broadcaster delivers events to connected participants.
type Broadcaster interface {
	SendTo(playerID string, event string, payload interface{})
	Broadcast(group string, event string, payload interface{})
	JoinGroup(playerID string, group string)
	LeaveGroup(playerID string, group string)
}

type AuthResult struct {
	PlayerID string                   `json:"player_id"`
	Name     string                   `json:"name"`
	Balance  int64                    `json:"balance"`
	TableID  string                   `json:"table_id,omitempty"`
	Tables   []cardtable.TableSummary `json:"tables"`
}

type TableJoined struct {
	TableID string `json:"table_id"`
}

type BalanceUpdated struct {
	Balance int64 `json:"balance"`
}

type ErrorMessage struct {
	Intent  string `json:"intent"`
	Message string `json:"message"`
}

type QueueStatus struct {
	GameType cardtable.GameType `json:"game_type"`
}

type CreateTableRequest struct {
	GameType   cardtable.GameType `json:"game_type"`
	MaxPlayers int                `json:"max_players"`
	MinBet     int64              `json:"min_bet"`
	IsPrivate  bool               `json:"is_private"`
	Password   string             `json:"password"`
}
