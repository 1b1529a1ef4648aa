package build

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/briandowns/spinner"
)

// Progress is told about requests as a Runner works through them. Started and
// Finished may be called concurrently.
type Progress interface {
	Start(total int)
	Started(name string)
	Finished(name string, err error)
	Stop()
}

type noProgress struct{}

func (noProgress) Start(int)              {}
func (noProgress) Started(string)         {}
func (noProgress) Finished(string, error) {}
func (noProgress) Stop()                  {}

// SpinnerProgress shows a spinner with the number of finished requests and the
// most recently started one.
type SpinnerProgress struct {
	spinner *spinner.Spinner

	mu       sync.Mutex
	total    int
	finished int
	failed   int
}

// NewSpinnerProgress creates a progress display writing to w.
func NewSpinnerProgress(w io.Writer) *SpinnerProgress {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	return &SpinnerProgress{spinner: s}
}

func (p *SpinnerProgress) Start(total int) {
	p.mu.Lock()
	p.total = total
	p.mu.Unlock()
	p.spinner.Start()
}

func (p *SpinnerProgress) Started(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.update(name)
}

func (p *SpinnerProgress) Finished(name string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.finished++
	if err != nil {
		p.failed++
	}
	p.update(name)
}

func (p *SpinnerProgress) Stop() {
	p.spinner.Stop()
}

func (p *SpinnerProgress) update(name string) {
	suffix := fmt.Sprintf(" [%d/%d] %s", p.finished, p.total, name)
	if p.failed > 0 {
		suffix += fmt.Sprintf(" (%d failed)", p.failed)
	}
	p.spinner.Lock()
	p.spinner.Suffix = suffix
	p.spinner.Unlock()
}
