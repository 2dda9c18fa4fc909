package main

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sudotouchwoman/serialscope/pkg/server"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func startHealth(t *testing.T) (*server.Health, *HealthClient, *bytes.Buffer) {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	h := server.NewHealth(listener.Addr().String())
	h.Listener = listener

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go h.Serve(ctx)

	cc, err := grpc.Dial(listener.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { cc.Close() })

	var out bytes.Buffer
	return h, &HealthClient{HealthClient: healthpb.NewHealthClient(cc), Service: "serialcircle", Out: &out}, &out
}

func TestHealthClient_Check(t *testing.T) {
	h, cl, out := startHealth(t)

	h.SetServing("serialcircle", true)
	require.NoError(t, cl.Check(context.Background(), 2*time.Second))

	h.SetServing("serialcircle", false)
	assert.ErrorIs(t, cl.Check(context.Background(), 2*time.Second), ErrNotServing)
	assert.Equal(t, "serialcircle: SERVING\nserialcircle: NOT_SERVING\n", out.String())
}

func TestHealthClient_Watch(t *testing.T) {
	h, cl, out := startHealth(t)
	h.SetServing("serialcircle", true)

	done := make(chan error, 1)
	go func() { done <- cl.Watch(context.Background()) }()

	// let the first status through before flipping it
	time.Sleep(100 * time.Millisecond)
	h.SetServing("serialcircle", false)

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrNotServing)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not notice the status change")
	}
	assert.Equal(t, "serialcircle: SERVING\nserialcircle: NOT_SERVING\n", out.String())
}
