package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/shinyyama/marketplace-backend/internal/config"
	"github.com/shinyyama/marketplace-backend/internal/db"
	"github.com/shinyyama/marketplace-backend/internal/model"
	"github.com/shinyyama/marketplace-backend/internal/server"
)

// set via -ldflags at build time
var (
	gitSHA    = "dev"
	buildTime = "unknown"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	}

	srv := server.New(nil, rdb, cfg, gitSHA, buildTime)

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)

	go func() {
		log.Printf("starting server on %s", addr)
		errCh <- srv.Start(addr)
	}()

	// Connect the database in the background so the instance can begin
	// serving health checks immediately.
	go func() {
		conn, err := db.Connect(cfg)
		if err != nil {
			log.Printf("db connect error: %v", err)
			return
		}
		srv.SetDB(conn)
		if err := conn.AutoMigrate(
			&model.Listing{},
			&model.Conversation{},
			&model.ConversationParticipant{},
			&model.Message{},
			&model.Report{},
		); err != nil {
			log.Printf("auto migrate error: %v", err)
		}
	}()

	if err := <-errCh; err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
