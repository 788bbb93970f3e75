package main

import (
	"context"
	"testing"
	"time"

	"github.com/Borislavv/count-min-sketch/pkg/config"
	"github.com/Borislavv/count-min-sketch/pkg/storage/lru"
	sharded "github.com/Borislavv/count-min-sketch/pkg/storage/map"
	"github.com/stretchr/testify/assert"
)

func TestNewRegistry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Default()
	_, ok := newRegistry(ctx, cfg).(*sharded.Map)
	assert.True(t, ok)

	cfg.Cms.Registry.MemLimit = 1 << 20
	_, ok = newRegistry(ctx, cfg).(*lru.Storage)
	assert.True(t, ok)
}

func TestServeStopsOnCancel(t *testing.T) {
	cfg := config.Default()
	cfg.Cms.Server.Addr = "127.0.0.1:0"
	cfg.Cms.Registry.MemLimit = 1 << 20

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, cfg) }()

	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("serve did not stop")
	}
}
