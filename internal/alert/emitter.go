// Package alert delivers risk alerts to the alert store and to live subscribers.
package alert

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
	"github.com/andresuchdata/stockcast/backend-go/internal/repository"
)

// Emitter receives alerts produced by the engine.
type Emitter interface {
	Emit(ctx context.Context, alerts ...domain.Alert) error
}

// New builds an unresolved alert.
func New(productID int64, typ domain.AlertType, severity domain.Severity, description string) domain.Alert {
	return domain.Alert{
		ProductID:   productID,
		Type:        typ,
		Severity:    severity,
		Description: description,
	}
}

// StoreEmitter writes alerts to the datastore in one batch.
type StoreEmitter struct {
	repo repository.AlertRepository
}

func NewStoreEmitter(repo repository.AlertRepository) *StoreEmitter {
	return &StoreEmitter{repo: repo}
}

func (e *StoreEmitter) Emit(ctx context.Context, alerts ...domain.Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	if err := e.repo.CreateAlerts(ctx, alerts); err != nil {
		return fmt.Errorf("%w: store %d alerts: %v", domain.ErrPersistenceFailure, len(alerts), err)
	}
	return nil
}

// Publisher is the subset of *redis.Client used for pub/sub.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisPublisher publishes each alert as a JSON message on a channel.
type RedisPublisher struct {
	client  Publisher
	channel string
}

func NewRedisPublisher(client Publisher, channel string) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel}
}

func (p *RedisPublisher) Emit(ctx context.Context, alerts ...domain.Alert) error {
	for _, a := range alerts {
		payload, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("encode alert: %w", err)
		}
		if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
			return fmt.Errorf("redis publish failed: %w", err)
		}
	}
	return nil
}

// Fanout stores alerts and then notifies subscribers. Only the store result
// is returned; subscriber failures are logged.
type Fanout struct {
	store       Emitter
	subscribers []Emitter
}

func NewFanout(store Emitter, subscribers ...Emitter) *Fanout {
	return &Fanout{store: store, subscribers: subscribers}
}

func (f *Fanout) Emit(ctx context.Context, alerts ...domain.Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	if err := f.store.Emit(ctx, alerts...); err != nil {
		return err
	}
	for _, s := range f.subscribers {
		if err := s.Emit(ctx, alerts...); err != nil {
			log.Warn().Err(err).Int("alerts", len(alerts)).Msg("failed to publish alerts")
		}
	}
	return nil
}
