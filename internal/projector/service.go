package projector

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ariefcatur/go-shop-checkout.git/internal/redisx"
	"github.com/ariefcatur/go-shop-checkout.git/internal/shop"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
)

// Cache is the projector's view of Redis: event dedup + the order-status cache.
type Cache interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	MarkSeen(ctx context.Context, eventID string) error
	SetStatus(ctx context.Context, orderID string, status shop.Status) error
}

type RedisCache struct {
	Client      *redis.Client
	ServiceName string
}

func (c *RedisCache) Seen(ctx context.Context, eventID string) (bool, error) {
	return redisx.Exists(ctx, c.Client, fmt.Sprintf(redisx.KeyDedup, c.ServiceName, eventID))
}

func (c *RedisCache) MarkSeen(ctx context.Context, eventID string) error {
	return c.Client.Set(ctx, fmt.Sprintf(redisx.KeyDedup, c.ServiceName, eventID), "1", redisx.TTLDedup).Err()
}

func (c *RedisCache) SetStatus(ctx context.Context, orderID string, status shop.Status) error {
	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	return c.Client.Set(ctx, key, fmt.Sprintf(`{"status":%q}`, status), redisx.TTLStatusCache).Err()
}

// Service memelihara cache status order di Redis dari event lifecycle, supaya
// GET status tidak perlu ke DB. Consumer boleh redeliver; dedup per event_id.
type Service struct {
	Cache Cache
}

// HandleEvent: dipasang sebagai handler consumer untuk topic order.created dan
// order.status.changed. Dedup key baru ditulis setelah handle sukses, supaya
// redelivery setelah gagal tetap diproses.
func (s *Service) HandleEvent(ctx context.Context, m kafkago.Message) error {
	var env shop.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}

	seen, _ := s.Cache.Seen(ctx, env.EventID)
	if seen {
		return nil
	}

	var err error
	switch env.EventType {
	case shop.EventOrderCreated:
		var p shop.OrderCreatedPayload
		if err = json.Unmarshal(env.Payload, &p); err != nil {
			return err
		}
		err = s.Cache.SetStatus(ctx, p.OrderID, shop.StatusPending)
	case shop.EventOrderStatusChanged:
		var p shop.OrderStatusChangedPayload
		if err = json.Unmarshal(env.Payload, &p); err != nil {
			return err
		}
		err = s.Cache.SetStatus(ctx, p.OrderID, p.To)
	default:
		return nil // ignore
	}
	if err != nil {
		return err
	}
	_ = s.Cache.MarkSeen(ctx, env.EventID)
	return nil
}
