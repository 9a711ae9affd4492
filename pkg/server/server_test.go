package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/nimburion/taskboard/pkg/observability/logger"
)

func startServer(t *testing.T, srv *Server) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(ctx) }()
	select {
	case <-srv.Ready():
	case err := <-errCh:
		t.Fatalf("server did not start: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start in time")
	}
	return cancel, errCh
}

func TestServer_StartAndShutdown(t *testing.T) {
	// Given
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	srv := NewServer(Config{Name: "test", Host: "127.0.0.1", Port: 0, ReadTimeout: time.Second}, handler, logger.Nop{})

	// When
	cancel, errCh := startServer(t, srv)
	resp, err := http.Get("http://" + srv.Addr() + "/")

	// Then
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("shutdown error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown timed out")
	}
}

func TestServer_ShutdownWaitsForInFlight(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		close(entered)
		<-release
		w.WriteHeader(http.StatusOK)
	})
	srv := NewServer(Config{Host: "127.0.0.1", ShutdownTimeout: 5 * time.Second}, handler, logger.Nop{})
	cancel, errCh := startServer(t, srv)

	respCh := make(chan int, 1)
	go func() {
		resp, err := http.Get("http://" + srv.Addr() + "/slow")
		if err != nil {
			respCh <- 0
			return
		}
		resp.Body.Close()
		respCh <- resp.StatusCode
	}()
	<-entered

	cancel()
	time.Sleep(50 * time.Millisecond)
	close(release)

	if code := <-respCh; code != http.StatusOK {
		t.Errorf("in-flight request status = %d, want 200", code)
	}
	if err := <-errCh; err != nil {
		t.Errorf("shutdown error: %v", err)
	}
}

func TestServer_ListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	port := ln.Addr().(*net.TCPAddr).Port

	srv := NewServer(Config{Name: "clash", Host: "127.0.0.1", Port: port}, http.NotFoundHandler(), logger.Nop{})
	err = srv.Start(context.Background())

	if err == nil {
		t.Fatal("expected listen error")
	}
	var opErr *net.OpError
	if !errors.As(err, &opErr) {
		t.Errorf("expected wrapped net.OpError, got %v", err)
	}
}

func TestServer_ShutdownBeforeStart(t *testing.T) {
	srv := NewServer(Config{}, http.NotFoundHandler(), logger.Nop{})
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() = %v", err)
	}
	if srv.Addr() != "" {
		t.Errorf("Addr() = %q before start", srv.Addr())
	}
}
