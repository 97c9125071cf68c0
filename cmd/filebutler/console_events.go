package main

import (
	"fmt"
	"io"
	"path/filepath"
	"sync"
)

// consoleEvents renders watcher callbacks as terse progress lines. It also
// exposes a channel that receives a signal per finished batch, which the
// one-shot organize command uses to wait for completion.
type consoleEvents struct {
	mu  sync.Mutex
	out io.Writer

	batchDone chan struct{}
}

func newConsoleEvents(out io.Writer) *consoleEvents {
	return &consoleEvents{out: out, batchDone: make(chan struct{}, 8)}
}

func (c *consoleEvents) FileIndexed(path string) {
	c.printf("indexed   %s", filepath.Base(path))
}

func (c *consoleEvents) FileOrganized(source, dest, folder string) {
	c.printf("organized %s -> %s/", filepath.Base(source), folder)
}

func (c *consoleEvents) StatusChanged(status string) {
	c.printf("%s", status)
}

func (c *consoleEvents) Error(path string, message string) {
	if path != "" {
		c.printf("error     %s: %s", filepath.Base(path), message)
		return
	}
	c.printf("error     %s", message)
}

func (c *consoleEvents) BatchFinished(folder string, processed []string) {
	select {
	case c.batchDone <- struct{}{}:
	default:
	}
}

func (c *consoleEvents) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format+"\n", args...)
}
