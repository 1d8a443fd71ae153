package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	channelPrefix  = "checkin:event:"
	publishTimeout = 2 * time.Second
)

// envelope is what travels on a room channel; the event id is the channel suffix.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// RedisPubSub carries room messages between instances: PUBLISH per event channel,
// one PSUBSCRIBE over all of them.
type RedisPubSub struct {
	client redis.UniversalClient
	logger *zap.Logger
}

// NewRedisPubSub creates the bridge over an existing client.
func NewRedisPubSub(client redis.UniversalClient, logger *zap.Logger) *RedisPubSub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisPubSub{client: client, logger: logger}
}

// PublishEvent implements Publisher.
func (r *RedisPubSub) PublishEvent(eventID, event string, payload []byte) error {
	body, err := json.Marshal(envelope{Event: event, Data: payload})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	return r.client.Publish(ctx, channelPrefix+eventID, body).Err()
}

// Subscribe implements Subscriber. Delivery stops when ctx is done.
func (r *RedisPubSub) Subscribe(ctx context.Context, handler func(eventID, event string, payload []byte)) error {
	ps := r.client.PSubscribe(ctx, channelPrefix+"*")
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return fmt.Errorf("psubscribe %s*: %w", channelPrefix, err)
	}
	go func() {
		defer ps.Close()
		ch := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var env envelope
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
					r.logger.Debug("drop malformed room message", zap.String("channel", msg.Channel), zap.Error(err))
					continue
				}
				handler(strings.TrimPrefix(msg.Channel, channelPrefix), env.Event, env.Data)
			}
		}
	}()
	return nil
}
