// cmd/server/main.go
package main

import (
	"log"
	"net/http"
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/roomcast/server/internal/handlers"
	"github.com/roomcast/server/internal/journal"
	"github.com/roomcast/server/internal/middleware"
	"github.com/roomcast/server/internal/room"
	"github.com/roomcast/server/internal/ws"
)

func main() {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	gw := ws.NewGateway(logger)
	reg := room.NewRegistry(gw, logger)

	if d := os.Getenv("ROOM_EVICT_DELAY"); d != "" {
		dur, err := time.ParseDuration(d)
		if err != nil {
			logger.Warnf("invalid ROOM_EVICT_DELAY %q, keeping %s: %v", d, reg.EvictDelay, err)
		} else {
			reg.EvictDelay = dur
		}
	}

	j, err := journal.Connect(logger)
	if err != nil {
		logger.Warnf("journal disabled: %v", err)
	} else if j != nil {
		reg.Journal = j
		defer j.Close()
		logger.Info("room event journal enabled")
	}

	// A raw socket drop carries no room association; the registry scans
	// for the departing connection.
	gw.OnDisconnect(reg.Disconnect)

	mux := http.NewServeMux()

	mux.Handle("/ws", middleware.LogMiddleware(logger)(
		handlers.SignalWSHandler(logger, gw, reg),
	))

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
