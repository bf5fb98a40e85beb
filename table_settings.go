package cardtable

type TableSetting struct {
	TableID     string       `json:"table_id"`
	Meta        TableMeta    `json:"meta"`
	JoinPlayers []JoinPlayer `json:"join_players"`
}

type JoinPlayer struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Password string `json:"-"`
}
