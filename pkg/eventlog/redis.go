// Package eventlog публикует события жизненного цикла анализа в Redis
// для внешних потребителей (оркестратор, UI): последнее состояние
// доступно по GET, подписчики получают событие через pub/sub.
package eventlog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// AnalysisEvent - событие смены состояния анализа, публикуемое в Redis.
//
// Redis-ключи:
//
//	SET  procheff:analysis:<id>:state  <JSON>  EX <ttl>  — для опроса (polling)
//	PUB  procheff:analysis:events                        — для подписки (pub/sub)
type AnalysisEvent struct {
	AnalysisID string    `json:"analysis_id"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurred_at"`
	DurationMs int64     `json:"duration_ms,omitempty"`
	CostUSD    float64   `json:"cost_usd,omitempty"`
	Error      *string   `json:"error,omitempty"`
}

// Config - подключение к Redis
type Config struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`

	// TTL - время жизни state-ключа в секундах (0 = 3600)
	TTL int `yaml:"ttl"`
}

// RedisPublisher публикует события анализа в Redis
type RedisPublisher struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisPublisher создает publisher на основе конфигурации
func NewRedisPublisher(config Config) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Address,
		Password: config.Password,
		DB:       config.DB,
	})

	ttl := time.Duration(config.TTL) * time.Second
	if ttl <= 0 {
		ttl = time.Hour
	}

	return &RedisPublisher{client: client, ttl: ttl}
}

// Publish публикует событие анализа:
//   - SET procheff:analysis:<id>:state <JSON> EX <ttl>
//   - PUBLISH procheff:analysis:events <JSON>
//
// Вызывается и при успехе, и при неудаче анализа.
// execErr == nil означает успешное завершение
func (p *RedisPublisher) Publish(ctx context.Context, analysisID, status string, durationMs int64, costUSD float64, execErr error) error {
	event := AnalysisEvent{
		AnalysisID: analysisID,
		Status:     status,
		OccurredAt: time.Now().UTC(),
		DurationMs: durationMs,
		CostUSD:    costUSD,
	}

	if execErr != nil {
		errStr := execErr.Error()
		event.Error = &errStr
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	stateKey := fmt.Sprintf("procheff:analysis:%s:state", analysisID)

	// SET ключ с TTL — потребитель может GET последнее состояние
	if err := p.client.Set(ctx, stateKey, payload, p.ttl).Err(); err != nil {
		return fmt.Errorf("redis SET failed: %w", err)
	}

	// PUBLISH событие — потребитель может SUBSCRIBE
	if err := p.client.Publish(ctx, "procheff:analysis:events", payload).Err(); err != nil {
		return fmt.Errorf("redis PUBLISH failed: %w", err)
	}

	return nil
}

// Ping проверяет доступность Redis
func (p *RedisPublisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Close закрывает соединение с Redis
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
