package handler

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Temutjin2k/ride-hail-driver/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-driver/internal/domain/types"
	"github.com/Temutjin2k/ride-hail-driver/internal/events"
)

func TestEvents_StreamsAsSSE(t *testing.T) {
	d := events.NewDispatcher()
	h := NewEvents(d, 8, time.Hour, testLogger())

	srv := httptest.NewServer(http.HandlerFunc(h.Stream))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	require.Eventually(t, func() bool { return d.Len() == 1 }, time.Second, 5*time.Millisecond)

	e := models.NewEvent(types.EventRideCancelled, time.Now().UTC())
	e.RideID = "42"
	e.Reason = "passenger no-show"
	d.Publish(e)

	r := bufio.NewReader(resp.Body)
	var lines []string
	for len(lines) < 3 {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}

	require.Equal(t, "id: "+e.ID.String(), lines[0])
	require.Equal(t, "event: RIDE_CANCELLED", lines[1])
	require.True(t, strings.HasPrefix(lines[2], "data: {"))
	require.Contains(t, lines[2], `"reason":"passenger no-show"`)

	cancel()
	require.Eventually(t, func() bool { return d.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestEvents_EndsWhenDispatcherCloses(t *testing.T) {
	d := events.NewDispatcher()
	h := NewEvents(d, 8, time.Hour, testLogger())

	done := make(chan struct{})
	rec := httptest.NewRecorder()
	go func() {
		defer close(done)
		h.Stream(rec, httptest.NewRequest(http.MethodGet, "/events", nil))
	}()

	require.Eventually(t, func() bool { return d.Len() == 1 }, time.Second, 5*time.Millisecond)
	d.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stream did not end")
	}
}
