package publisher

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"fs22bot/internal/runtime/supervisor"
	"fs22bot/internal/transport"
	logx "fs22bot/pkg/logx"
	"fs22bot/pkg/tgui"
)

const DefaultReportPace = 3 * time.Second

// StatsSource is the read side of the play-time aggregator.
type StatsSource interface {
	Advance()
	Window() int
	Totals(serverIDs []int) map[string]int
}

type ReportTarget struct {
	Message transport.MessageRef
	// Servers limits the report; empty means every server.
	Servers []int
}

type PlayerMinutes struct {
	Player  string `json:"player"`
	Minutes int    `json:"minutes"`
}

// Ranking orders totals by minutes, descending, then by name.
func Ranking(totals map[string]int) []PlayerMinutes {
	out := make([]PlayerMinutes, 0, len(totals))
	for p, m := range totals {
		out = append(out, PlayerMinutes{Player: p, Minutes: m})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Minutes != out[j].Minutes {
			return out[i].Minutes > out[j].Minutes
		}
		return out[i].Player < out[j].Player
	})
	return out
}

func RenderReport(window int, ranking []PlayerMinutes, now time.Time) string {
	var b strings.Builder
	b.WriteString("<b>Online times</b>\n")
	fmt.Fprintf(&b, "Online times within the last %d days:\n", window)
	if len(ranking) == 0 {
		b.WriteString("\n(nobody yet)")
	}
	for _, r := range ranking {
		fmt.Fprintf(&b, "\n    %s: %d minutes", tgui.B(r.Player), r.Minutes)
	}
	fmt.Fprintf(&b, "\n\n<i>Last update: %s</i>", now.Format("2006-01-02 15:04:05"))
	return b.String()
}

// Reporter edits ranked play-time messages. Unlike Publisher it keeps no
// pending store and refreshes every target on every tick.
type Reporter struct {
	source  StatsSource
	sink    transport.Adapter
	opts    Options
	limiter *rate.Limiter
	log     logx.Logger

	mu      sync.Mutex
	targets map[int]ReportTarget

	delivered, failed atomic.Uint64

	stopOnce sync.Once
	stop     chan struct{}
	done     <-chan struct{}
}

func NewReporter(source StatsSource, sink transport.Adapter, opts Options, log logx.Logger) *Reporter {
	if opts.Pace <= 0 {
		opts.Pace = DefaultReportPace
	}
	opts = opts.withDefaults()
	return &Reporter{
		source:  source,
		sink:    sink,
		opts:    opts,
		limiter: rate.NewLimiter(rate.Every(opts.Pace), 1),
		log:     log.With(logx.String("comp", "publisher.reporter")),
		targets: make(map[int]ReportTarget),
		stop:    make(chan struct{}),
	}
}

func (r *Reporter) AddTarget(id int, cfg ReportTarget) {
	cfg.Servers = append([]int(nil), cfg.Servers...)
	r.mu.Lock()
	r.targets[id] = cfg
	r.mu.Unlock()
}

func (r *Reporter) RemoveTarget(id int) {
	r.mu.Lock()
	delete(r.targets, id)
	r.mu.Unlock()
}

func (r *Reporter) Target(id int) (ReportTarget, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg, ok := r.targets[id]
	return cfg, ok
}

func (r *Reporter) TargetIDs() []int {
	r.mu.Lock()
	ids := make([]int, 0, len(r.targets))
	for id := range r.targets {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	sort.Ints(ids)
	return ids
}

func (r *Reporter) Stats() Stats {
	r.mu.Lock()
	n := len(r.targets)
	r.mu.Unlock()
	return Stats{Name: "reporter", Targets: n, Delivered: r.delivered.Load(), Failed: r.failed.Load()}
}

func (r *Reporter) Start(sup *supervisor.Supervisor) {
	r.done = sup.GoRestart("publisher.reporter", func(ctx context.Context) error {
		runTicks(ctx, r.stop, r.opts.Interval, r.Flush)
		return nil
	})
}

func (r *Reporter) Stop() { r.stopOnce.Do(func() { close(r.stop) }) }

func (r *Reporter) Wait(ctx context.Context) error { return waitDone(ctx, r.done) }

// Flush refreshes every target once.
func (r *Reporter) Flush(ctx context.Context) {
	r.mu.Lock()
	targets := make(map[int]ReportTarget, len(r.targets))
	for id, cfg := range r.targets {
		targets[id] = cfg
	}
	r.mu.Unlock()
	if len(targets) == 0 {
		return
	}

	r.source.Advance()
	window := r.source.Window()
	for id, cfg := range targets {
		if err := r.limiter.Wait(ctx); err != nil {
			r.failed.Add(1)
			r.log.Warn("pacing aborted", logx.Int("target", id), logx.Err(err))
			return
		}
		if err := r.refresh(ctx, window, cfg); err != nil {
			r.failed.Add(1)
			r.log.Warn("report update failed", logx.Int("target", id), logx.Err(err))
			continue
		}
		r.delivered.Add(1)
	}
}

func (r *Reporter) refresh(ctx context.Context, window int, cfg ReportTarget) (err error) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error("report panicked", logx.Any("panic", p), logx.Stack(string(debug.Stack())))
			err = fmt.Errorf("reporter: panic: %v", p)
		}
	}()
	text := RenderReport(window, Ranking(r.source.Totals(cfg.Servers)), r.opts.Clock())
	dctx, cancel := context.WithTimeout(ctx, r.opts.DeliverTimeout)
	defer cancel()
	return r.sink.EditText(dctx, cfg.Message, text, &transport.SendOptions{ParseMode: tgui.ParseModeHTML, DisablePreview: true})
}
