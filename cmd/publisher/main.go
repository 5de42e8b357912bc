// Команда publisher отправляет сигнал "корзина изменилась" для сессии покупателя,
// например после правки корзины в админке бэкенда.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	stan "github.com/nats-io/stan.go"
	"go.uber.org/zap"

	"github.com/example/storefront/internal/adapter/natsstan"
	"github.com/example/storefront/internal/config"
	"github.com/example/storefront/internal/logger"
)

func main() {
	sessionID := flag.String("session", "", "session id (value of the session cookie)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: "stderr"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := publish(cfg.NATS, *sessionID); err != nil {
		log.Fatal("publish failed", zap.Error(err))
	}
	log.Info("signal published", zap.String("session_id", *sessionID), zap.String("subject", cfg.NATS.Subject))
}

func publish(cfg config.NATSConfig, sessionID string) error {
	if _, err := uuid.Parse(sessionID); err != nil {
		return fmt.Errorf("invalid -session %q: %w", sessionID, err)
	}
	data, err := natsstan.Encode(natsstan.Signal{SessionID: sessionID, Origin: "publisher"})
	if err != nil {
		return err
	}

	sc, err := stan.Connect(cfg.ClusterID, "storefront-publisher-"+uuid.NewString(), stan.NatsURL(cfg.URL))
	if err != nil {
		return fmt.Errorf("stan connect: %w", err)
	}
	defer sc.Close()

	return sc.Publish(cfg.Subject, data)
}
