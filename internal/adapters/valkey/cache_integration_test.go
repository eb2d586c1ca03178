//go:build integration
// +build integration

package valkey_test

import (
	"context"
	"testing"

	"github.com/samirrijal/tifprobe/internal/adapters/valkey"
	"github.com/samirrijal/tifprobe/internal/pkg/config"
)

func TestCache_RoundTrip(t *testing.T) {
	cfg, err := config.Load("tifprobe-test")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer cache.Close()

	ctx := context.Background()
	if err := cache.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}

	key := "test:roundtrip"
	if err := cache.Set(ctx, key, []byte{0x00, 0xff, 'x'}, 30); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := cache.Get(ctx, key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "\x00\xffx" {
		t.Errorf("binary value mangled: %q", got)
	}

	if err := cache.Delete(ctx, key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := cache.Get(ctx, key); !valkey.IsMiss(err) {
		t.Errorf("expected a miss after delete, got %v", err)
	}
}
