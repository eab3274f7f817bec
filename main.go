package main

import (
	"net/http"
	"os"

	"sesi/config"
	"sesi/config/database"
	"sesi/pkg/httpx"
	"sesi/pkg/logger"
	"sesi/router"
	"sesi/socket"
)

func main() {
	logger.Init(os.Getenv("DEV_MODE") == "true")
	defer logger.Log.Sync()

	cfg := config.Load()
	httpx.DevMode = cfg.DevMode

	db := database.Connect(cfg)
	defer db.Close()

	hub := socket.NewHub()
	go hub.Run()

	srv := router.Setup(db, cfg, hub)

	logger.Sugar.Infof("Backend listening on %s", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, srv); err != nil {
		logger.Sugar.Fatalf("Server stopped: %v", err)
	}
}
