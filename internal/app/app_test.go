package app

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/Temutjin2k/ride-hail-driver/config"
	"github.com/Temutjin2k/ride-hail-driver/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-driver/internal/domain/types"
	"github.com/Temutjin2k/ride-hail-driver/pkg/logger"
)

const waitFor = 2 * time.Second

func dispatchBackend(t *testing.T) (string, <-chan models.Message) {
	t.Helper()
	received := make(chan models.Message, 32)
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			var msg models.Message
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			received <- msg
		}
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http"), received
}

func testConfig(t *testing.T, url string) config.Config {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"driver_id": "driver-7",
		"exp":       time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	return config.Config{
		Log: config.LogConfig{Level: logger.LevelError},
		Transport: config.TransportConfig{
			URL:              url,
			Token:            token,
			HandshakeTimeout: time.Second,
			PingInterval:     time.Minute,
			ReconnectMin:     50 * time.Millisecond,
			ReconnectMax:     time.Second,
		},
		Session: config.SessionConfig{
			OfferTimeout:      30 * time.Second,
			ConfirmTimeout:    15 * time.Second,
			TelemetryInterval: time.Minute,
		},
		Location: config.LocationConfig{Mode: types.LocationStatic, Latitude: 43.2, Longitude: 76.9},
		HTTP:     config.HTTPConfig{Host: "127.0.0.1", Port: "0"},
	}
}

func waitMessage(t *testing.T, ch <-chan models.Message, want types.MessageType) models.Message {
	t.Helper()
	timeout := time.After(waitFor)
	for {
		select {
		case msg := <-ch:
			if msg.Type == want {
				return msg
			}
		case <-timeout:
			t.Fatalf("no %s message received", want)
		}
	}
}

func TestNewApplication_InvalidToken(t *testing.T) {
	url, _ := dispatchBackend(t)
	cfg := testConfig(t, url)
	cfg.Transport.Token = "not-a-jwt"

	_, err := NewApplication(context.Background(), cfg, logger.New(io.Discard, "test", logger.LevelError))
	require.Error(t, err)
}

func TestApp_RunUntilCancelled(t *testing.T) {
	url, received := dispatchBackend(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := NewApplication(ctx, testConfig(t, url), logger.New(io.Discard, "test", logger.LevelError))
	require.NoError(t, err)
	require.Equal(t, "driver-7", a.driverID)
	waitMessage(t, received, types.MsgAuth)

	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	require.Eventually(t, func() bool {
		return a.session.GoOnline(ctx) == nil
	}, waitFor, 10*time.Millisecond)
	waitMessage(t, received, types.MsgDriverOnline)
	require.Equal(t, types.Online, a.session.Snapshot().Availability)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("Run did not return")
	}
}

func TestApp_CloseGoesOffline(t *testing.T) {
	url, received := dispatchBackend(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := NewApplication(ctx, testConfig(t, url), logger.New(io.Discard, "test", logger.LevelError))
	require.NoError(t, err)
	go a.session.Run(ctx)

	require.NoError(t, a.session.GoOnline(ctx))
	waitMessage(t, received, types.MsgDriverOnline)

	a.close(context.Background())
	waitMessage(t, received, types.MsgDriverOffline)
	require.ErrorIs(t, a.session.GoOnline(context.Background()), types.ErrSessionClosed)
}

func TestApp_CloseEndsEventStreams(t *testing.T) {
	url, _ := dispatchBackend(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	cfg := testConfig(t, url)
	cfg.HTTP.Port = strconv.Itoa(port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := NewApplication(ctx, cfg, logger.New(io.Discard, "test", logger.LevelError))
	require.NoError(t, err)
	go a.session.Run(ctx)

	errCh := make(chan error, 1)
	a.api.Run(ctx, errCh)

	var resp *http.Response
	require.Eventually(t, func() bool {
		resp, err = http.Get(fmt.Sprintf("http://127.0.0.1:%d/events", port))
		return err == nil
	}, waitFor, 10*time.Millisecond)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	start := time.Now()
	a.close(context.Background())
	require.Less(t, time.Since(start), time.Second)

	// the stream was ended by the server
	_, err = io.ReadAll(resp.Body)
	require.NoError(t, err)
}
