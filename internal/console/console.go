// Package console implements the logging and progress reporting surface
// (C11): structured logging via logrus and a byte-throughput progress
// bar via mpb, gated on whether stderr is a terminal.
//
// Grounded on github.com/direktiv-vorteil's pkg/elog.CLI (DisableTTY
// short-circuits to a no-op progress object; the same logrus +
// mpb/v5/decor combination; AddBar with a name decorator and an
// OnComplete-replaced ETA decorator), recast for a single fixed-size
// byte counter (the input PBF file's total size) instead of elog's
// percent-or-KiB mode switch.
package console

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/vbauerster/mpb/v5"
	"github.com/vbauerster/mpb/v5/decor"
)

// New builds a logrus logger at the given level, writing human-readable
// text to stderr when attached to a terminal and JSON otherwise (so
// piping mapindexer's output into a log aggregator doesn't inherit
// ANSI codes meant for a human).
func New(level logrus.Level) *logrus.Logger {
	log := logrus.New()
	log.SetLevel(level)
	log.SetOutput(os.Stderr)

	if isatty.IsTerminal(os.Stderr.Fd()) {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	return log
}

// Progress tracks bytes consumed out of a known total.
type Progress interface {
	// SetTotal fixes (or refixes) the byte count the bar considers 100%.
	SetTotal(total int64)
	// Add advances the bar by n bytes.
	Add(n int64)
	// Done marks the bar complete.
	Done()
}

// NewProgress returns a Progress that renders a live bar labeled label
// when stderr is a terminal, or a silent no-op otherwise — mirroring
// elog's DisableTTY branch, since a bar escape-sequence stream in a
// redirected log file is worse than no progress output at all.
func NewProgress(label string, total int64) Progress {
	if !isatty.IsTerminal(os.Stderr.Fd()) {
		return noopProgress{}
	}

	container := mpb.New(mpb.WithWidth(64), mpb.WithOutput(os.Stderr))

	bar := container.AddBar(total,
		mpb.PrependDecorators(
			decor.Name(label, decor.WC{W: len(label) + 1, C: decor.DidentRight}),
			decor.OnComplete(decor.AverageETA(decor.ET_STYLE_GO, decor.WC{W: 4}), "done"),
		),
		mpb.AppendDecorators(
			decor.CountersKibiByte("% .1f / % .1f"),
		),
	)

	return &barProgress{container: container, bar: bar}
}

type barProgress struct {
	container *mpb.Progress
	bar       *mpb.Bar
}

func (p *barProgress) SetTotal(total int64) { p.bar.SetTotal(total, false) }
func (p *barProgress) Add(n int64)          { p.bar.IncrInt64(n) }
func (p *barProgress) Done() {
	p.bar.SetTotal(p.bar.Current(), true)
	p.container.Wait()
}

type noopProgress struct{}

func (noopProgress) SetTotal(int64) {}
func (noopProgress) Add(int64)      {}
func (noopProgress) Done()          {}
