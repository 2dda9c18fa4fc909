package main

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sudotouchwoman/serialscope/pkg/circle"
	"github.com/sudotouchwoman/serialscope/pkg/web"
)

func TestFollow(t *testing.T) {
	logger := zerolog.Nop()
	hub := web.NewHub()
	hub.Logger = &logger
	srv := httptest.NewServer(web.NewRouter(hub, &web.CircleSockClientFactory{
		Ctx:         context.Background(),
		Hub:         hub,
		ReadTimeout: time.Second,
		Logger:      &logger,
	}))
	defer srv.Close()

	state := circle.NewState()
	state.Value, state.Radius, state.Seq = 0.5, 100, 1
	require.NoError(t, hub.Redraw(state))

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	var out bytes.Buffer
	done := make(chan error, 1)
	go func() { done <- follow(context.Background(), conn, &out) }()

	require.Eventually(t, func() bool { return hub.Peers() == 1 }, time.Second, 10*time.Millisecond)
	require.NoError(t, hub.Close(errors.New("device unplugged")))

	select {
	case err := <-done:
		assert.ErrorIs(t, err, errRemote)
		assert.ErrorContains(t, err, "device unplugged")
	case <-time.After(5 * time.Second):
		t.Fatal("follow did not return")
	}
	assert.Equal(t, "frame 1: radius 100.00 (value 0.500)\n", out.String())
}
