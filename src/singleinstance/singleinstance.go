package singleinstance

// A watcher claims a loopback TCP port for its whole lifetime and answers
// PING so that a second watcher can tell it apart from an unrelated listener.

import (
	"bufio"
	"errors"
	"fmt"
	"log"
	"net"
	"strconv"
	"sync"
	"time"
)

const (
	residentHost = "127.0.0.1"
	pingRequest  = "PING\n"
	pongResponse = "PONG\n"
	pingTimeout  = 300 * time.Millisecond
)

// ErrAlreadyRunning means another watcher holds the port.
var ErrAlreadyRunning = errors.New("another watcher is already running")

// Lock is held until Release is called.
type Lock struct {
	lis  net.Listener
	port int
	once sync.Once
	done chan struct{}
}

// Acquire claims port on the loopback interface. Port 0 disables the check
// and returns a no-op lock.
func Acquire(port int) (*Lock, error) {
	if port == 0 {
		return &Lock{}, nil
	}
	addr := net.JoinHostPort(residentHost, strconv.Itoa(port))
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		if ping(addr, pingTimeout) {
			return nil, fmt.Errorf("%w (port %d)", ErrAlreadyRunning, port)
		}
		return nil, fmt.Errorf("singleinstance: failed to bind %s: %w", addr, err)
	}
	l := &Lock{lis: lis, port: port, done: make(chan struct{})}
	log.Printf("singleinstance: holding %s", addr)
	go l.acceptLoop()
	return l, nil
}

// Port returns the claimed port, or 0 for a no-op lock.
func (l *Lock) Port() int { return l.port }

// Release frees the port. Safe to call more than once.
func (l *Lock) Release() error {
	if l.lis == nil {
		return nil
	}
	var err error
	l.once.Do(func() {
		close(l.done)
		err = l.lis.Close()
	})
	return err
}

func (l *Lock) acceptLoop() {
	for {
		c, err := l.lis.Accept()
		if err != nil {
			select {
			case <-l.done:
				return
			default:
			}
			log.Printf("singleinstance: accept failed: %v", err)
			return
		}
		go answer(c)
	}
}

func answer(c net.Conn) {
	defer c.Close()
	_ = c.SetDeadline(time.Now().Add(3 * time.Second))
	line, err := bufio.NewReader(c).ReadString('\n')
	if err != nil || line != pingRequest {
		return
	}
	_, _ = c.Write([]byte(pongResponse))
}

func ping(addr string, timeout time.Duration) bool {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return false
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(timeout))
	w := bufio.NewWriter(conn)
	if _, err := w.WriteString(pingRequest); err != nil {
		return false
	}
	if err := w.Flush(); err != nil {
		return false
	}
	resp, err := bufio.NewReader(conn).ReadString('\n')
	return err == nil && resp == pongResponse
}
