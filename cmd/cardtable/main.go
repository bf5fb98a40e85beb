package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/weedbox/cardtable"
	"github.com/weedbox/cardtable/config"
	"github.com/weedbox/cardtable/coordinator"
	"github.com/weedbox/cardtable/session"
	"github.com/weedbox/cardtable/transport/socketio"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	zc := zap.NewProductionConfig()
	if cfg.GinMode != gin.ReleaseMode {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	return zc.Build()
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dir := session.NewDirectory()
	manager := cardtable.NewManager(dir)
	defer manager.Reset()

	server := socketio.NewServer(&socketio.Options{
		JWTSecret:    cfg.JWTSecret,
		AllowOrigins: cfg.CORSAllowOrigins,
		Debug:        cfg.SocketIODebug,
		Logger:       logger.Named("socketio"),
	})
	defer server.Close()

	opts := coordinator.NewOptions()
	opts.StartingBalance = cfg.StartingBalance
	opts.DefaultTableSeats = cfg.DefaultTableSeats
	opts.DefaultTableMinBet = cfg.DefaultTableMinBet
	opts.MinPlayers[cardtable.GameType_Blackjack] = cfg.BlackjackMinPlayers
	opts.MinPlayers[cardtable.GameType_Poker] = cfg.PokerMinPlayers
	opts.Engine.DealerDrawInterval = cfg.DealerDrawInterval
	opts.Engine.ResultDisplayDuration = cfg.ResultDisplayDuration
	opts.Engine.AutoStartTimeout = cfg.AutoStartSeconds()
	opts.Engine.Logger = logger.Named("table")
	opts.Matchmaking.Interval = cfg.MatchmakingInterval
	opts.Matchmaking.WaitThreshold = cfg.MatchmakingWaitThreshold
	opts.Matchmaking.BatchSize = cfg.DefaultTableSeats
	opts.Matchmaking.Logger = logger.Named("matchmaking")
	opts.Logger = logger.Named("coordinator")

	coord, err := coordinator.NewCoordinator(opts, dir, manager, server)
	if err != nil {
		return err
	}
	server.SetHandler(coord)

	go coord.Queue().Run(ctx)

	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Split(cfg.CORSAllowOrigins, ","),
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"*"},
		AllowCredentials: true,
	}))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "ok",
			"connections": server.Connections(),
			"sessions":    dir.Len(),
		})
	})

	router.GET("/api/tables", func(c *gin.Context) {
		c.JSON(http.StatusOK, manager.ListTables())
	})

	server.Mount(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", srv.Addr), zap.String("default_table", coord.DefaultTableID()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
