package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/openclaw/board/internal/activity"
	"github.com/openclaw/board/internal/board"
	"github.com/openclaw/board/internal/chat"
	"github.com/openclaw/board/internal/config"
	"github.com/openclaw/board/internal/gateway"
	"github.com/openclaw/board/internal/logger"
	"github.com/openclaw/board/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.L.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger.SetLevel(cfg.Log.Level)
	logger.SetFormat(cfg.Log.Format)

	boards, err := board.NewStore(cfg.Storage.DataDir)
	if err != nil {
		logger.L.Error("failed to open board store", "error", err)
		os.Exit(1)
	}
	chats, err := chat.NewStore(cfg.Storage.DataDir)
	if err != nil {
		logger.L.Error("failed to open chat store", "error", err)
		os.Exit(1)
	}

	// Resolve orphaned in-flight messages from a previous run before any
	// request can observe them.
	if err := chat.Sweep(chats); err != nil {
		logger.L.Error("recovery sweep failed", "error", err)
		os.Exit(1)
	}

	gw := gateway.NewClient(cfg.Gateway)
	engine := chat.NewEngine(chats, boards, gw, cfg.Gateway.Timeout)
	activityLog := activity.NewLog(filepath.Join(cfg.Storage.DataDir, cfg.Storage.ActivityDB))

	srv := server.New(boards, chats, engine, gw, activityLog,
		cfg.Storage.DataDir, cfg.Storage.WorkspaceDir, cfg.Server.StaticDir)

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	logger.L.Info("starting server", "address", addr, "gateway", cfg.Gateway.BaseURL)
	if err := http.ListenAndServe(addr, srv.Router()); err != nil {
		logger.L.Error("server failed", "error", err)
		os.Exit(1)
	}
}
