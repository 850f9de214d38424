package mcp

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// StdioConfig describes how to spawn an MCP server using the stdio transport.
type StdioConfig struct {
	Command string
	Args    []string
	Dir     string
	Env     []string

	// Stderr receives the server's standard error. Defaults to os.Stderr.
	Stderr io.Writer

	// WaitDelay bounds how long Close waits for the process to exit after its
	// pipes are closed before it is killed. Defaults to two seconds.
	WaitDelay time.Duration

	Options Options
}

// StdioClient is a Client bound to a spawned server process.
type StdioClient struct {
	*Client

	cmd       *exec.Cmd
	exited    chan struct{}
	waitDelay time.Duration
	closeOnce sync.Once
	closeErr  error
}

// NewStdioClient starts the configured command and runs the initialise
// handshake over its stdin/stdout. The caller must Close the returned client;
// Close also stops the process. Any failure during start-up stops the process
// and returns an error.
func NewStdioClient(ctx context.Context, cfg StdioConfig) (*StdioClient, error) {
	if strings.TrimSpace(cfg.Command) == "" {
		return nil, errors.New("mcp: stdio command is required")
	}

	// The process must outlive ctx, which usually only covers start-up.
	cmd := exec.Command(cfg.Command, cfg.Args...)
	cmd.Dir = cfg.Dir
	if len(cfg.Env) > 0 {
		cmd.Env = append(os.Environ(), cfg.Env...)
	}
	if cfg.Stderr != nil {
		cmd.Stderr = cfg.Stderr
	} else {
		cmd.Stderr = os.Stderr
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("mcp: stdout pipe: %w", err)
	}
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("mcp: stdin pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("mcp: start %s: %w", cfg.Command, err)
	}

	sc := &StdioClient{
		cmd:       cmd,
		exited:    make(chan struct{}),
		waitDelay: cfg.WaitDelay,
	}
	if sc.waitDelay <= 0 {
		sc.waitDelay = 2 * time.Second
	}

	transport := newStdioTransport(stdin, stdout)

	// Close the transport when the process exits to unblock pending reads.
	go func() {
		_ = cmd.Wait()
		_ = transport.Close()
		close(sc.exited)
	}()

	client, err := NewClient(ctx, transport, cfg.Options)
	if err != nil {
		sc.stop()
		return nil, err
	}
	sc.Client = client
	return sc, nil
}

// Close ends the session and stops the server process. It is idempotent.
func (s *StdioClient) Close() error {
	if s == nil {
		return nil
	}
	s.closeOnce.Do(func() {
		if s.Client != nil {
			s.closeErr = s.Client.Close()
		}
		s.stop()
		// The pipes may already have been released by the exiting process.
		if errors.Is(s.closeErr, os.ErrClosed) {
			s.closeErr = nil
		}
	})
	return s.closeErr
}

// stop waits briefly for the process to exit on its own once stdin is closed,
// then kills it.
func (s *StdioClient) stop() {
	select {
	case <-s.exited:
		return
	case <-time.After(s.waitDelay):
	}
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	<-s.exited
}

// maxLine bounds a single message read from the server.
const maxLine = 8 << 20

// pipeTransport carries one JSON message per line over a pair of pipes.
type pipeTransport struct {
	in  io.WriteCloser
	out io.ReadCloser
	r   *bufio.Reader

	writeMu sync.Mutex
}

func newStdioTransport(in io.WriteCloser, out io.ReadCloser) Transport {
	return &pipeTransport{in: in, out: out, r: bufio.NewReaderSize(out, 64<<10)}
}

// Send writes payload and a newline. json.Marshal never emits raw newlines.
func (t *pipeTransport) Send(ctx context.Context, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	_, err := t.in.Write(append(payload[:len(payload):len(payload)], '\n'))
	return err
}

// Receive returns the next non-empty line. Cancelling ctx closes the
// transport to release the pending read.
func (t *pipeTransport) Receive(ctx context.Context) ([]byte, error) {
	type line struct {
		b   []byte
		err error
	}
	done := make(chan line, 1)
	go func() {
		b, err := t.next()
		done <- line{b, err}
	}()

	select {
	case <-ctx.Done():
		_ = t.Close()
		return nil, ctx.Err()
	case l := <-done:
		return l.b, l.err
	}
}

func (t *pipeTransport) next() ([]byte, error) {
	var buf []byte
	for {
		chunk, err := t.r.ReadSlice('\n')
		buf = append(buf, chunk...)
		if len(buf) > maxLine {
			return nil, fmt.Errorf("mcp: message exceeds %d bytes", maxLine)
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if trimmed := bytes.TrimSpace(buf); len(trimmed) > 0 && (err == nil || errors.Is(err, io.EOF)) {
			return trimmed, nil
		}
		if err != nil {
			return nil, err
		}
		buf = buf[:0]
	}
}

func (t *pipeTransport) Close() error {
	err := t.in.Close()
	if e := t.out.Close(); e != nil && err == nil {
		err = e
	}
	return err
}
