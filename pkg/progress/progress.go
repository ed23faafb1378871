// Package progress renders a single-line byte counter with a transfer
// rate, the moral equivalent of the tqdm bars the original tool showed
// during tarball creation and S3 transfers.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
)

const renderInterval = 250 * time.Millisecond

// Tracker accumulates processed bytes and periodically redraws a status
// line on stderr. It stays silent when stderr is not a terminal or when
// quiet is requested, so logs piped to files are not littered with
// carriage returns.
type Tracker struct {
	label   string
	total   atomic.Int64
	done    atomic.Int64
	start   time.Time
	enabled bool

	stopOnce sync.Once
	stopCh   chan struct{}
	waitCh   chan struct{}
}

// New creates a tracker. total may be 0 when the final size is unknown;
// the percentage is then omitted.
func New(label string, total int64, quiet bool) *Tracker {
	t := &Tracker{
		label:   label,
		enabled: !quiet && isatty.IsTerminal(os.Stderr.Fd()),
		stopCh:  make(chan struct{}),
		waitCh:  make(chan struct{}),
	}
	t.total.Store(total)
	return t
}

// SetTotal adjusts the expected total after planning.
func (t *Tracker) SetTotal(total int64) {
	t.total.Store(total)
}

// Start begins periodic rendering.
func (t *Tracker) Start() {
	t.start = time.Now()
	if !t.enabled {
		close(t.waitCh)
		return
	}
	go t.loop()
}

// Add records n processed bytes.
func (t *Tracker) Add(n int64) {
	if n > 0 {
		t.done.Add(n)
	}
}

// Stop renders the final state and terminates the render loop. Safe to
// call more than once.
func (t *Tracker) Stop() {
	t.stopOnce.Do(func() {
		close(t.stopCh)
	})
	<-t.waitCh
}

func (t *Tracker) loop() {
	defer close(t.waitCh)
	ticker := time.NewTicker(renderInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			t.render(false)
		case <-t.stopCh:
			t.render(true)
			return
		}
	}
}

func (t *Tracker) render(final bool) {
	done := t.done.Load()
	total := t.total.Load()
	elapsed := time.Since(t.start).Seconds()

	var rate string
	if elapsed > 0 {
		rate = humanize.IBytes(uint64(float64(done)/elapsed)) + "/s"
	} else {
		rate = "--"
	}

	line := fmt.Sprintf("\r%s  %s", t.label, humanize.IBytes(uint64(done)))
	if total > 0 {
		pct := done * 100 / total
		if pct > 100 {
			pct = 100
		}
		line += fmt.Sprintf(" / %s (%d%%)", humanize.IBytes(uint64(total)), pct)
	}
	line += "  " + rate

	fmt.Fprint(os.Stderr, line)
	if final {
		fmt.Fprintln(os.Stderr)
	}
}

// Reader returns a reader that counts bytes as they are consumed, for
// upload bodies.
func (t *Tracker) Reader(r io.Reader) io.Reader {
	return &countingReader{r: r, t: t}
}

// WriterAt returns a WriterAt that counts bytes as they land, for the
// download manager's concurrent part writes.
func (t *Tracker) WriterAt(w io.WriterAt) io.WriterAt {
	return &countingWriterAt{w: w, t: t}
}

type countingReader struct {
	r io.Reader
	t *Tracker
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.t.Add(int64(n))
	return n, err
}

type countingWriterAt struct {
	w io.WriterAt
	t *Tracker
}

func (c *countingWriterAt) WriteAt(p []byte, off int64) (int, error) {
	n, err := c.w.WriteAt(p, off)
	c.t.Add(int64(n))
	return n, err
}
