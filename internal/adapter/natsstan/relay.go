package natsstan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	stan "github.com/nats-io/stan.go"
	"go.uber.org/zap"

	"github.com/example/storefront/internal/domain"
)

var (
	ErrNotConnected  = errors.New("natsstan: relay is not connected")
	ErrInvalidSignal = errors.New("natsstan: invalid signal")
)

// Config — подключение к NATS Streaming.
type Config struct {
	ClusterID string
	ClientID  string
	URL       string
	Subject   string
	Durable   string
}

// Signal — конверт сигнала "корзина изменилась". Полезной нагрузки нет,
// только сессия и экземпляр-отправитель.
type Signal struct {
	SessionID string `json:"session_id"`
	Origin    string `json:"origin"`
}

// Encode сериализует сигнал для отправки.
func Encode(s Signal) ([]byte, error) {
	if s.SessionID == "" {
		return nil, fmt.Errorf("%w: session id is required", ErrInvalidSignal)
	}
	return json.Marshal(s)
}

// Decode разбирает и проверяет полученный сигнал.
func Decode(raw []byte) (Signal, error) {
	var s Signal
	if err := json.Unmarshal(raw, &s); err != nil {
		return Signal{}, fmt.Errorf("%w: %w", ErrInvalidSignal, err)
	}
	if s.SessionID == "" {
		return Signal{}, fmt.Errorf("%w: missing session id", ErrInvalidSignal)
	}
	return s, nil
}

// Relay пересылает сигналы шины между экземплярами витрины.
// Каждый экземпляр подписан отдельно и получает все сигналы; свои пропускает по origin.
type Relay struct {
	cfg    Config
	origin string
	logger *zap.Logger

	mu   sync.Mutex
	conn stan.Conn
}

// NewRelay создаёт ретранслятор без подключения.
func NewRelay(cfg Config, logger *zap.Logger) *Relay {
	origin := uuid.NewString()
	if cfg.ClientID == "" {
		cfg.ClientID = "storefront-" + origin
	}
	return &Relay{cfg: cfg, origin: origin, logger: logger}
}

// Origin — идентификатор экземпляра в исходящих сигналах.
func (r *Relay) Origin() string { return r.origin }

func (r *Relay) Connect() error {
	sc, err := stan.Connect(r.cfg.ClusterID, r.cfg.ClientID,
		stan.NatsURL(r.cfg.URL),
		stan.SetConnectionLostHandler(func(_ stan.Conn, err error) {
			r.logger.Error("stan connection lost", zap.Error(err))
		}),
	)
	if err != nil {
		return fmt.Errorf("stan connect: %w", err)
	}
	r.mu.Lock()
	r.conn = sc
	r.mu.Unlock()
	r.logger.Info("stan connected",
		zap.String("cluster", r.cfg.ClusterID),
		zap.String("client", r.cfg.ClientID),
		zap.String("subject", r.cfg.Subject),
	)
	return nil
}

func (r *Relay) connection() (stan.Conn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn == nil {
		return nil, ErrNotConnected
	}
	return r.conn, nil
}

// Forward публикует сигнал для сессии.
func (r *Relay) Forward(_ context.Context, sessionID string) error {
	sc, err := r.connection()
	if err != nil {
		return err
	}
	data, err := Encode(Signal{SessionID: sessionID, Origin: r.origin})
	if err != nil {
		return err
	}
	return sc.Publish(r.cfg.Subject, data)
}

// Subscribe доставляет сигналы других экземпляров до отмены ctx.
func (r *Relay) Subscribe(ctx context.Context, deliver func(ctx context.Context, sessionID string)) error {
	sc, err := r.connection()
	if err != nil {
		return err
	}
	opts := []stan.SubscriptionOption{stan.SetManualAckMode(), stan.AckWait(10 * time.Second)}
	if r.cfg.Durable != "" {
		opts = append(opts, stan.DurableName(r.cfg.Durable))
	}
	sub, err := sc.Subscribe(r.cfg.Subject, func(m *stan.Msg) {
		hCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.handle(hCtx, m.Data, deliver); err != nil {
			// не подтверждаем, даём сообщению переотправиться
			r.logger.Warn("signal rejected", zap.Error(err), zap.Uint64("sequence", m.Sequence))
			return
		}
		if err := m.Ack(); err != nil {
			r.logger.Warn("ack failed", zap.Error(err))
		}
	}, opts...)
	if err != nil {
		return fmt.Errorf("stan subscribe %s: %w", r.cfg.Subject, err)
	}
	go func() {
		<-ctx.Done()
		if err := sub.Close(); err != nil {
			r.logger.Debug("close subscription", zap.Error(err))
		}
	}()
	return nil
}

func (r *Relay) handle(ctx context.Context, raw []byte, deliver func(ctx context.Context, sessionID string)) error {
	s, err := Decode(raw)
	if err != nil {
		return err
	}
	if s.Origin == r.origin {
		return nil
	}
	deliver(ctx, s.SessionID)
	return nil
}

func (r *Relay) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn == nil {
		return nil
	}
	err := r.conn.Close()
	r.conn = nil
	return err
}

var _ domain.SignalRelay = (*Relay)(nil)
