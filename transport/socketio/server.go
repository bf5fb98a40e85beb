package socketio

import (
	"errors"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/weedbox/cardtable"
	"github.com/weedbox/cardtable/coordinator"
	"github.com/zishang520/engine.io/v2/log"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io/v2/socket"
	"go.uber.org/zap"
)

var (
	ErrMissingToken = errors.New("socketio: missing token")
	ErrInvalidToken = errors.New("socketio: invalid token")
)

// Handler receives the intents of connected participants.
type Handler interface {
	Authenticate(playerID, name string) error
	ListTables(playerID string) error
	CreateTable(playerID string, req coordinator.CreateTableRequest) (string, error)
	JoinTable(playerID, tableID, password string) error
	LeaveTable(playerID string) error
	PlaceBet(playerID string, amount int64) error
	StartRound(playerID string) error
	Hit(playerID string) error
	Stand(playerID string) error
	QuickPlay(playerID string, gameType cardtable.GameType) error
	CancelQuickPlay(playerID string) error
	PokerFold(playerID string) error
	PokerCall(playerID string) error
	PokerRaise(playerID string, chipLevel int64) error
	Disconnect(playerID string)
}

type Options struct {
	JWTSecret    string
	AllowOrigins string
	Debug        bool
	Logger       *zap.Logger
}

/*
Server socket.io 傳輸層
  - 每位玩家對應一條連線, 重連時以新連線取代舊連線
  - 群組對應 socket.io room
*/
type Server struct {
	mu      sync.RWMutex
	options *Options
	sio     *socket.Server
	handler Handler
	conns   map[string]*socket.Socket
	logger  *zap.Logger
}

func NewServer(options *Options) *Server {
	if options.Logger == nil {
		options.Logger = zap.NewNop()
	}

	log.DEBUG = options.Debug

	s := &Server{
		options: options,
		sio:     socket.NewServer(nil, nil),
		conns:   make(map[string]*socket.Socket),
		logger:  options.Logger,
	}

	s.sio.On("connection", func(clients ...any) {
		s.onConnection(clients[0].(*socket.Socket))
	})

	return s
}

// SetHandler must be called before the server is mounted.
func (s *Server) SetHandler(handler Handler) {
	s.handler = handler
}

func (s *Server) Mount(router *gin.Engine) {
	c := socket.DefaultServerOptions()
	c.SetServeClient(false)
	c.SetPingInterval(5 * time.Second)
	c.SetPingTimeout(3 * time.Second)
	c.SetConnectTimeout(10 * time.Second)
	c.SetTransports(types.NewSet("polling", "websocket"))
	c.SetCors(&types.Cors{
		Origin:      s.options.AllowOrigins,
		Credentials: true,
	})

	handler := gin.WrapH(s.sio.ServeHandler(c))
	router.GET("/socket.io/*f", handler)
	router.POST("/socket.io/*f", handler)
}

func (s *Server) Close() {
	s.sio.Close(nil)
}

func (s *Server) Connections() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns)
}

// Broadcaster

func (s *Server) SendTo(playerID string, event string, payload interface{}) {
	conn, ok := s.connection(playerID)
	if !ok {
		return
	}

	if err := conn.Emit(event, payload); err != nil {
		s.logger.Warn("emit failed", zap.String("player_id", playerID), zap.String("event", event), zap.Error(err))
	}
}

func (s *Server) Broadcast(group string, event string, payload interface{}) {
	if err := s.sio.To(socket.Room(group)).Emit(event, payload); err != nil {
		s.logger.Warn("broadcast failed", zap.String("group", group), zap.String("event", event), zap.Error(err))
	}
}

func (s *Server) JoinGroup(playerID string, group string) {
	if conn, ok := s.connection(playerID); ok {
		conn.Join(socket.Room(group))
	}
}

func (s *Server) LeaveGroup(playerID string, group string) {
	if conn, ok := s.connection(playerID); ok {
		conn.Leave(socket.Room(group))
	}
}

func (s *Server) onConnection(client *socket.Socket) {
	playerID, name, err := identify(client.Handshake().Auth, []byte(s.options.JWTSecret))
	if err != nil {
		s.logger.Debug("handshake rejected", zap.String("sid", string(client.Id())), zap.Error(err))
		client.Emit(coordinator.Event_ErrorMessage, coordinator.ErrorMessage{Intent: "connect", Message: err.Error()})
		client.Disconnect(true)
		return
	}

	if prev := s.addConnection(playerID, client); prev != nil {
		prev.Disconnect(true)
	}

	s.logger.Info("connected", zap.String("player_id", playerID), zap.String("sid", string(client.Id())))

	s.route(client, playerID, name)
}

func (s *Server) route(client *socket.Socket, playerID, name string) {
	h := s.handler

	client.On("auth_request", func(args ...any) {
		h.Authenticate(playerID, name)
	})

	client.On("list_tables", func(args ...any) {
		h.ListTables(playerID)
	})

	client.On("create_table", func(args ...any) {
		var req createTableRequest
		decodeArgs(args, &req)
		h.CreateTable(playerID, coordinator.CreateTableRequest{
			GameType:   cardtable.GameType(req.GameType),
			MaxPlayers: req.MaxPlayers,
			MinBet:     req.MinBet,
			IsPrivate:  req.IsPrivate,
			Password:   req.Password,
		})
	})

	client.On("join_table", func(args ...any) {
		var req tableRequest
		decodeArgs(args, &req)
		h.JoinTable(playerID, req.TableID, req.Password)
	})

	client.On("leave_table", func(args ...any) {
		h.LeaveTable(playerID)
	})

	client.On("place_bet", func(args ...any) {
		var req tableRequest
		decodeArgs(args, &req)
		h.PlaceBet(playerID, req.Amount)
	})

	client.On("start_round", func(args ...any) {
		h.StartRound(playerID)
	})

	client.On("hit", func(args ...any) {
		h.Hit(playerID)
	})

	client.On("stand", func(args ...any) {
		h.Stand(playerID)
	})

	client.On("quick_play", func(args ...any) {
		var req createTableRequest
		decodeArgs(args, &req)
		h.QuickPlay(playerID, cardtable.GameType(req.GameType))
	})

	client.On("cancel_quick_play", func(args ...any) {
		h.CancelQuickPlay(playerID)
	})

	client.On("call_check", func(args ...any) {
		h.PokerCall(playerID)
	})

	client.On("raise", func(args ...any) {
		var req tableRequest
		decodeArgs(args, &req)
		h.PokerRaise(playerID, req.Amount)
	})

	client.On("fold", func(args ...any) {
		h.PokerFold(playerID)
	})

	client.On("disconnect", func(args ...any) {
		if s.removeConnection(playerID, client) {
			h.Disconnect(playerID)
		}
		s.logger.Info("disconnected", zap.String("player_id", playerID), zap.String("sid", string(client.Id())))
	})
}

func (s *Server) connection(playerID string) (*socket.Socket, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conn, ok := s.conns[playerID]
	return conn, ok
}

func (s *Server) addConnection(playerID string, conn *socket.Socket) *socket.Socket {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.conns[playerID]
	s.conns[playerID] = conn
	return prev
}

// removeConnection reports whether conn was still the player's current connection.
func (s *Server) removeConnection(playerID string, conn *socket.Socket) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conns[playerID] != conn {
		return false
	}

	delete(s.conns, playerID)
	return true
}

type identityClaims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

/*
identify 由握手資料取得玩家身分
  - 設定 secret 時必須帶 HS256 token, sub 為玩家 ID
  - 未設定時為訪客, 名稱取自 username
*/
func identify(auth any, secret []byte) (string, string, error) {
	data, _ := auth.(map[string]any)

	if len(secret) == 0 {
		name, _ := data["username"].(string)
		if name == "" {
			name = "Guest"
		}
		return uuid.New().String(), name, nil
	}

	token, _ := data["token"].(string)
	if token == "" {
		return "", "", ErrMissingToken
	}

	var claims identityClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || claims.Subject == "" {
		return "", "", ErrInvalidToken
	}

	name := claims.Name
	if name == "" {
		name = claims.Subject
	}

	return claims.Subject, name, nil
}
