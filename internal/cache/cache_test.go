package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"koop-backend/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestOpen(t *testing.T) {
	t.Run("Given no address When opening Then the cache is Noop", func(t *testing.T) {
		c := Open(context.Background(), config.RedisConfig{}, zap.NewNop())
		if _, ok := c.(Noop); !ok {
			t.Fatalf("cache = %T, want Noop", c)
		}
		var dest map[string]any
		if err := c.GetJSON(context.Background(), "k", &dest); !errors.Is(err, ErrMiss) {
			t.Errorf("GetJSON err = %v, want ErrMiss", err)
		}
	})

	t.Run("Given an unreachable address When opening Then it warns and falls back to Noop", func(t *testing.T) {
		core, logs := observer.New(zap.WarnLevel)
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		c := Open(ctx, config.RedisConfig{Addr: "127.0.0.1:1"}, zap.New(core))
		if _, ok := c.(Noop); !ok {
			t.Fatalf("cache = %T, want Noop", c)
		}
		if logs.FilterMessage("redis unreachable, catalog cache disabled").Len() != 1 {
			t.Errorf("warnings = %v", logs.All())
		}
	})
}
