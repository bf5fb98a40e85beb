package socketio

import (
	"encoding/json"
)

// Inbound payloads use the field names of the browser client.

type tableRequest struct {
	TableID  string `json:"tableId"`
	Password string `json:"password"`
	Amount   int64  `json:"amount"`
}

type createTableRequest struct {
	GameType   string `json:"gameType"`
	MaxPlayers int    `json:"maxPlayers"`
	MinBet     int64  `json:"minBet"`
	IsPrivate  bool   `json:"isPrivate"`
	Password   string `json:"password"`
}

// decodeArgs fills dst from the first event argument. Missing or malformed data leaves dst zero.
func decodeArgs(args []any, dst interface{}) bool {
	if len(args) == 0 || args[0] == nil {
		return false
	}

	data, err := json.Marshal(args[0])
	if err != nil {
		return false
	}

	return json.Unmarshal(data, dst) == nil
}
