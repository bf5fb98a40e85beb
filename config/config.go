package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	ErrInvalidConfig = errors.New("config: invalid configuration")
)

type Config struct {
	Port             int    `env:"PORT" envDefault:"3000"`
	GinMode          string `env:"GIN_MODE" envDefault:"debug"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"info"`
	CORSAllowOrigins string `env:"CORS_ALLOW_ORIGINS" envDefault:"*"`
	JWTSecret        string `env:"JWT_SECRET"` // 空字串時以訪客身分連線
	SocketIODebug    bool   `env:"SOCKETIO_DEBUG" envDefault:"false"`

	StartingBalance       int64         `env:"STARTING_BALANCE" envDefault:"1000"`
	DealerDrawInterval    time.Duration `env:"DEALER_DRAW_INTERVAL" envDefault:"1500ms"`
	ResultDisplayDuration time.Duration `env:"RESULT_DISPLAY_DURATION" envDefault:"5s"`
	AutoStartTimeout      time.Duration `env:"AUTO_START_TIMEOUT" envDefault:"0s"` // 0 表示只能由桌主開局

	MatchmakingInterval      time.Duration `env:"MATCHMAKING_INTERVAL" envDefault:"5s"`
	MatchmakingWaitThreshold time.Duration `env:"MATCHMAKING_WAIT_THRESHOLD" envDefault:"30s"`

	DefaultTableSeats   int   `env:"DEFAULT_TABLE_SEATS" envDefault:"4"`
	DefaultTableMinBet  int64 `env:"DEFAULT_TABLE_MIN_BET" envDefault:"10"`
	BlackjackMinPlayers int   `env:"BLACKJACK_MIN_PLAYERS" envDefault:"1"`
	PokerMinPlayers     int   `env:"POKER_MIN_PLAYERS" envDefault:"2"`
}

/*
Load 讀取設定
  - 先載入 .env (不存在時略過), 已存在的環境變數不會被覆蓋
  - 再由環境變數解析
*/
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}

	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", file, err)
		}
	}

	return parse(env.Options{})
}

// FromMap parses a configuration from the given variables only.
func FromMap(environment map[string]string) (*Config, error) {
	return parse(env.Options{Environment: environment})
}

func parse(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	switch {
	case c.Port <= 0:
		return fmt.Errorf("%w: PORT must be positive", ErrInvalidConfig)
	case c.StartingBalance < 0:
		return fmt.Errorf("%w: STARTING_BALANCE must not be negative", ErrInvalidConfig)
	case c.DefaultTableSeats <= 0:
		return fmt.Errorf("%w: DEFAULT_TABLE_SEATS must be positive", ErrInvalidConfig)
	case c.DefaultTableMinBet <= 0:
		return fmt.Errorf("%w: DEFAULT_TABLE_MIN_BET must be positive", ErrInvalidConfig)
	case c.BlackjackMinPlayers <= 0 || c.BlackjackMinPlayers > c.DefaultTableSeats:
		return fmt.Errorf("%w: BLACKJACK_MIN_PLAYERS must be within 1..DEFAULT_TABLE_SEATS", ErrInvalidConfig)
	case c.PokerMinPlayers < 2:
		return fmt.Errorf("%w: POKER_MIN_PLAYERS must be at least 2", ErrInvalidConfig)
	case c.MatchmakingInterval <= 0:
		return fmt.Errorf("%w: MATCHMAKING_INTERVAL must be positive", ErrInvalidConfig)
	}

	return nil
}

// AutoStartSeconds converts AutoStartTimeout to the whole seconds the ready group works in.
func (c *Config) AutoStartSeconds() int {
	if c.AutoStartTimeout <= 0 {
		return 0
	}

	seconds := int(c.AutoStartTimeout / time.Second)
	if seconds == 0 {
		seconds = 1
	}
	return seconds
}
