// gatewaysim starts a local simulator of the remote quantum gateway for
// development and end-to-end testing.
// Usage: go run ./cmd/gatewaysim
package main

import (
	"log"
	"log/slog"
	"os"
	"strconv"

	"github.com/qgate-dev/qgate/internal/gateway"
	"github.com/qgate-dev/qgate/internal/store"
)

func main() {
	addr := ":8080"
	if v := os.Getenv("QGATE_SIM_ADDR"); v != "" {
		addr = v
	}

	finishAfter := 0
	if v := os.Getenv("QGATE_SIM_FINISH_AFTER"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			finishAfter = n
		}
	}

	db, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	srv := gateway.NewServer(gateway.Config{
		Addr:        addr,
		Token:       os.Getenv("QGATE_SIM_TOKEN"),
		FinishAfter: finishAfter,
	}, db, logger)

	logger.Info("gatewaysim: starting", "addr", addr)
	if err := srv.Run(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
