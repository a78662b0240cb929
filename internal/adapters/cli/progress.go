package cli

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
)

const progressWidth = 40

// Progress draws a bar for a known number of items. Tick is safe to call
// from several goroutines. On a non-interactive output only the final count
// is printed.
type Progress struct {
	mu    sync.Mutex
	out   *Output
	bar   progress.Model
	label string
	total int
	done  int
}

func NewProgress(out *Output, label string, total int) *Progress {
	return &Progress{
		out:   out,
		bar:   progress.New(progress.WithDefaultGradient(), progress.WithWidth(progressWidth), progress.WithoutPercentage()),
		label: label,
		total: total,
	}
}

func (p *Progress) Tick() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done++
	if p.out.Interactive() {
		p.draw()
	}
}

func (p *Progress) Done() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// Finish ends the bar's line.
func (p *Progress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.out.Interactive() {
		p.draw()
		fmt.Fprintln(p.out.Writer())
		return
	}
	fmt.Fprintf(p.out.Writer(), "  %s %d/%d\n", p.label, p.done, p.total)
}

func (p *Progress) draw() {
	fmt.Fprintf(p.out.Writer(), "\r  %s %s %d/%d", p.label, p.bar.ViewAs(p.fraction()), p.done, p.total)
}

func (p *Progress) fraction() float64 {
	if p.total == 0 {
		return 1
	}
	return float64(p.done) / float64(p.total)
}
