package utils

import (
	"bytes"
	"io"
	"sync"
)

// DeferredWriter forwards writes to its target until Hold is called. While
// held, writes are buffered in memory and written out in order by Release.
// Safe for concurrent use.
type DeferredWriter struct {
	mu   sync.Mutex
	out  io.Writer
	held bool
	buf  bytes.Buffer
}

// NewDeferredWriter returns a writer that passes through to out.
func NewDeferredWriter(out io.Writer) *DeferredWriter {
	return &DeferredWriter{out: out}
}

// Write forwards p to the target, or buffers it while held.
func (d *DeferredWriter) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.held {
		return d.buf.Write(p)
	}
	return d.out.Write(p)
}

// Hold starts buffering writes.
func (d *DeferredWriter) Hold() {
	d.mu.Lock()
	d.held = true
	d.mu.Unlock()
}

// Release writes everything buffered since Hold to the target and resumes
// pass-through.
func (d *DeferredWriter) Release() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.held = false
	if d.buf.Len() == 0 {
		return nil
	}
	_, err := d.buf.WriteTo(d.out)
	return err
}
