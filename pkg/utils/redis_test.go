package utils

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestNewCallSlots_Validation(t *testing.T) {
	if _, err := NewCallSlots(nil, 1, time.Second); err == nil {
		t.Fatalf("expected error for nil client")
	}

	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer rdb.Close()

	if _, err := NewCallSlots(rdb, 0, time.Second); err == nil {
		t.Fatalf("expected error for zero limit")
	}
	if _, err := NewCallSlots(rdb, 1, 0); err == nil {
		t.Fatalf("expected error for zero ttl")
	}

	s, err := NewCallSlots(rdb, 3, time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := s.key("u1"); got != "voicebot:call-slots:u1" {
		t.Fatalf("unexpected key %q", got)
	}
	if _, err := s.Acquire(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty owner")
	}
}

func TestRedisDefaults(t *testing.T) {
	c := RedisConfig{Addr: "localhost:6379"}.withDefaults()
	if c.PoolSize != 10 || c.PingTimeout != 2*time.Second {
		t.Fatalf("unexpected defaults: %+v", c)
	}
}

func TestOpenRedis_RequiresAddr(t *testing.T) {
	if _, err := OpenRedis(context.Background(), RedisConfig{}); err == nil {
		t.Fatalf("expected error for empty addr")
	}
}
