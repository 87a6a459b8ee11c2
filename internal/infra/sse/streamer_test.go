package sse

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readEvent(t *testing.T, r *bufio.Reader) (string, string) {
	t.Helper()
	var eventType, data string
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			eventType = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "" && eventType != "":
			return eventType, data
		}
	}
}

func TestStreamer_BroadcastReachesClient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	streamer := NewStreamer(Config{HeartbeatInterval: time.Minute})
	streamer.Start(ctx)

	srv := httptest.NewServer(http.HandlerFunc(streamer.HandleSSE))
	defer srv.Close()

	reqCtx, reqCancel := context.WithTimeout(ctx, 5*time.Second)
	defer reqCancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, srv.URL+"?client_id=dash-1", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	eventType, data := readEvent(t, reader)
	assert.Equal(t, EventConnected, eventType)
	assert.Contains(t, data, `"client_id":"dash-1"`)
	assert.Equal(t, 1, streamer.GetClientCount())

	require.NoError(t, streamer.Broadcast(EventDashboardRefreshed, "7", map[string]int{"sequence": 7}))

	eventType, data = readEvent(t, reader)
	assert.Equal(t, EventDashboardRefreshed, eventType)
	assert.Contains(t, data, `"query_id":"7"`)
	assert.Contains(t, data, `"sequence":7`)
}

func TestStreamer_Stopped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	streamer := NewStreamer(Config{MessageBufferSize: 1})
	streamer.Start(ctx)
	cancel()

	require.Eventually(t, func() bool {
		_, err := streamer.AddClient("late")
		return err == ErrStreamerStopped
	}, time.Second, 10*time.Millisecond)
}

func TestStreamer_MaxConnections(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	streamer := NewStreamer(Config{MaxConnections: 1})
	streamer.Start(ctx)

	_, err := streamer.AddClient("first")
	require.NoError(t, err)
	_, err = streamer.AddClient("second")
	assert.Error(t, err)
}
