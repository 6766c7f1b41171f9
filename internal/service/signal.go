package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/totegamma/biblion"
	"github.com/totegamma/biblion/internal/domain"
	"github.com/totegamma/biblion/internal/usecase"
)

type SignalService struct {
	rdb *redis.Client
}

func NewSignalService(redisClient *redis.Client) *SignalService {
	return &SignalService{
		rdb: redisClient,
	}
}

// ChannelOf maps a timeline key ("activity" or "tokens/<id>") to its redis channel.
func ChannelOf(key string) (string, bool) {
	if key == biblion.ActivityKey {
		return domain.EventChannel, true
	}
	if id, ok := biblion.ParseTokenKey(key); ok {
		return domain.TokenChannelPrefix + strconv.FormatUint(id, 10), true
	}
	return "", false
}

// PublishEvent sends event to the collection channel and, for token events,
// to the channel of that token.
func (s *SignalService) PublishEvent(ctx context.Context, event domain.Event) error {
	jsonstr, err := json.Marshal(event)
	if err != nil {
		return err
	}

	err = s.rdb.Publish(ctx, domain.EventChannel, jsonstr).Err()
	if err != nil {
		return errors.Wrap(err, "publish to event channel")
	}

	if event.TokenID != nil {
		channel := domain.TokenChannelPrefix + strconv.FormatUint(*event.TokenID, 10)
		err = s.rdb.Publish(ctx, channel, jsonstr).Err()
		if err != nil {
			return errors.Wrapf(err, "publish to %s", channel)
		}
	}

	return nil
}

// Realtime forwards events of the listened keys to output until ctx is done.
// Every value received on input replaces the previous subscription.
func (s *SignalService) Realtime(ctx context.Context, input <-chan []string, output chan<- domain.Event) {
	pubsub := s.rdb.Subscribe(ctx)
	defer pubsub.Close()

	messages := pubsub.Channel()
	var current []string

	for {
		select {
		case <-ctx.Done():
			return

		case keys, ok := <-input:
			if !ok {
				return
			}

			channels := make([]string, 0, len(keys))
			for _, key := range keys {
				if channel, ok := ChannelOf(key); ok {
					channels = append(channels, channel)
				}
			}

			if len(current) > 0 {
				err := pubsub.Unsubscribe(ctx, current...)
				if err != nil {
					slog.ErrorContext(
						ctx, "failed to unsubscribe",
						slog.String("error", err.Error()),
						slog.String("module", "realtime"),
					)
				}
			}
			if len(channels) > 0 {
				err := pubsub.Subscribe(ctx, channels...)
				if err != nil {
					slog.ErrorContext(
						ctx, "failed to subscribe",
						slog.String("error", err.Error()),
						slog.String("module", "realtime"),
					)
					continue
				}
			}
			current = channels

		case msg, ok := <-messages:
			if !ok {
				return
			}

			var event domain.Event
			err := json.Unmarshal([]byte(msg.Payload), &event)
			if err != nil {
				slog.WarnContext(
					ctx, "malformed event on channel",
					slog.String("channel", msg.Channel),
					slog.String("module", "realtime"),
				)
				continue
			}

			select {
			case output <- event:
			case <-ctx.Done():
				return
			}
		}
	}
}

var _ usecase.EventPublisher = (*SignalService)(nil)
