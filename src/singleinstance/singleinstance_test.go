package singleinstance

import (
	"errors"
	"net"
	"testing"
)

func freePort(t *testing.T) int {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("loopback unavailable: %v", err)
	}
	port := lis.Addr().(*net.TCPAddr).Port
	_ = lis.Close()
	return port
}

func TestAcquireTwiceReportsRunningInstance(t *testing.T) {
	port := freePort(t)

	first, err := Acquire(port)
	if err != nil {
		t.Fatalf("first Acquire failed: %v", err)
	}
	defer first.Release()

	if first.Port() != port {
		t.Fatalf("Expected port %d, got %d", port, first.Port())
	}

	_, err = Acquire(port)
	if !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("Expected ErrAlreadyRunning, got %v", err)
	}
}

func TestAcquireAfterRelease(t *testing.T) {
	port := freePort(t)

	first, err := Acquire(port)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if err := first.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if err := first.Release(); err != nil {
		t.Fatalf("second Release should be a no-op, got %v", err)
	}

	second, err := Acquire(port)
	if err != nil {
		t.Fatalf("Acquire after release failed: %v", err)
	}
	_ = second.Release()
}

func TestAcquireForeignListener(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("loopback unavailable: %v", err)
	}
	defer lis.Close()
	go func() {
		for {
			c, err := lis.Accept()
			if err != nil {
				return
			}
			_ = c.Close()
		}
	}()

	_, err = Acquire(lis.Addr().(*net.TCPAddr).Port)
	if err == nil || errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("Expected a bind error distinct from ErrAlreadyRunning, got %v", err)
	}
}

func TestAcquireDisabled(t *testing.T) {
	l, err := Acquire(0)
	if err != nil {
		t.Fatalf("Acquire(0) failed: %v", err)
	}
	if l.Port() != 0 {
		t.Fatalf("Expected no-op lock, got port %d", l.Port())
	}
	if err := l.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
}
