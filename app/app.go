// Package app wires the HAL, configuration, storage, view and renderer into
// a cooperative step loop.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"dayplan/hal"
	"dayplan/internal/buildinfo"
	"dayplan/internal/config"
	"dayplan/internal/logging"
	"dayplan/planner/calendar"
	"dayplan/planner/keys"
	"dayplan/planner/kv"
	"dayplan/planner/store"
	"dayplan/planner/ui"
	"dayplan/planner/view"
)

// ErrQuit is returned by Step after the user quits.
var ErrQuit = hal.ErrQuit

type Options struct {
	// Config nil uses config.Default().
	Config *config.Config
	// Logger nil builds one on the HAL logger at the configured level.
	Logger *log.Logger
	// Timestamps adds wall-clock stamps to log lines.
	Timestamps bool
	// Store overrides the configured key/value backend.
	Store kv.Store
	// Getenv looks up the sealing passphrase. Nil never finds one.
	Getenv func(string) string
	// Script is a key script played one key per step before live input.
	Script string
}

// App is one running planner.
type App struct {
	h   hal.HAL
	cfg *config.Config
	log log.FieldLogger

	kv      kv.Store
	closers []io.Closer
	store   *store.Store
	view    *view.App
	render  *ui.Renderer

	keyCh  <-chan hal.KeyEvent
	tickCh <-chan uint64
	script []keys.Key

	cron    *cron.Cron
	todayCh chan calendar.Date

	now        uint64
	noticeSeq  uint64
	noticeAt   uint64
	renderFail bool
	dirty      bool

	closeOnce sync.Once
}

// New opens storage and builds the first view. The returned App has not drawn
// anything yet; the first Step does.
func New(h hal.HAL, opts Options) (*App, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	lg := opts.Logger
	if lg == nil {
		lg = logging.New(h.Logger(), cfg.Log.Logrus(), opts.Timestamps)
	}
	a := &App{
		h:       h,
		cfg:     cfg,
		log:     lg.WithField("component", "app"),
		todayCh: make(chan calendar.Date, 1),
		dirty:   true,
	}

	a.log.WithField("version", buildinfo.String()).Info("starting")
	a.script = keys.ParseScript(opts.Script)

	ctx := context.Background()
	bootScreen(h, "opening storage")
	backend := opts.Store
	if backend == nil {
		var err error
		backend, err = a.openKV(ctx, opts.Getenv)
		if err != nil {
			a.Close()
			return nil, err
		}
	}
	a.kv = backend

	st, rep, err := store.Open(ctx, backend, store.Options{Logger: lg.WithField("component", "store")})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("app: open store: %w", err)
	}
	a.store = st
	a.log.WithFields(log.Fields{
		"events":  rep.Events,
		"tasks":   rep.Tasks,
		"corrupt": rep.Corrupt,
		"next_id": rep.NextID,
	}).Info("store loaded")

	today, live := a.today()
	a.view = view.New(st, today, view.Options{
		MinuteStep: cfg.Calendar.MinuteStep,
		WeekStart:  cfg.Calendar.Weekday(),
		Clock12h:   cfg.UI.Clock12h,
		Logger:     lg,
	})
	if !live {
		a.log.WithField("date", today.String()).Info("no wall clock, using fallback date")
	}

	if d := h.Display(); d != nil {
		if fb := d.Framebuffer(); fb != nil {
			c, err := ui.NewFramebufferCanvas(fb)
			if err != nil {
				a.log.WithError(err).Warn("display unusable, running blind")
			} else {
				a.render = ui.NewRenderer(c, ui.DefaultPalette)
			}
		}
	}
	if in := h.Input(); in != nil {
		if kb := in.Keyboard(); kb != nil {
			a.keyCh = kb.Events()
		}
	}
	if t := h.Time(); t != nil {
		a.tickCh = t.Ticks()
	}

	if live {
		a.startCron()
	}
	bootScreen(h, "ready")
	return a, nil
}

// NewStep adapts New to the HAL runners.
func NewStep(h hal.HAL, opts Options) (func() error, error) {
	a, err := New(h, opts)
	if err != nil {
		return nil, err
	}
	return a.GuardedStep(), nil
}

// GuardedStep is Step with panics converted to ErrPanic.
func (a *App) GuardedStep() func() error { return guard(a.h, a.Step) }

func (a *App) View() *view.App     { return a.view }
func (a *App) Store() *store.Store { return a.store }

// today reports the current date and whether it came from a real clock.
func (a *App) today() (calendar.Date, bool) {
	if c := a.h.Clock(); c != nil {
		if now, ok := c.Now(); ok {
			if d, err := calendar.New(now.Year(), int(now.Month()), now.Day()); err == nil {
				return d, true
			}
		}
	}
	return a.cfg.Calendar.Fallback(), false
}

func (a *App) startCron() {
	c := cron.New()
	_, err := c.AddFunc(a.cfg.Calendar.TodayRefresh, func() {
		d, _ := a.today()
		select {
		case a.todayCh <- d:
		default:
		}
	})
	if err != nil {
		a.log.WithError(err).Warn("today refresh disabled")
		return
	}
	c.Start()
	a.cron = c
}

// Step runs one frame: input, timers, then drawing if anything changed.
func (a *App) Step() error {
	a.drainTicks()

	if len(a.script) > 0 {
		k := a.script[0]
		a.script = a.script[1:]
		if a.handle(k) {
			return a.quit()
		}
	}
	if a.drainKeys() {
		return a.quit()
	}

	select {
	case d := <-a.todayCh:
		if d != a.view.Today() {
			a.log.WithField("date", d.String()).Info("date changed")
			a.view.SetToday(d)
			a.dirty = true
		}
	default:
	}
	a.expireNotice()

	if a.dirty {
		a.dirty = false
		a.draw()
	}
	return nil
}

// drainKeys handles every pending key event. It reports whether one of them quit.
func (a *App) drainKeys() bool {
	for a.keyCh != nil {
		select {
		case ev, ok := <-a.keyCh:
			if !ok {
				a.keyCh = nil
				return false
			}
			if k, ok := keys.FromEvent(ev); ok && a.handle(k) {
				return true
			}
		default:
			return false
		}
	}
	return false
}

func (a *App) drainTicks() {
	for a.tickCh != nil {
		select {
		case t := <-a.tickCh:
			if t > a.now {
				a.now = t
			}
		default:
			return
		}
	}
}

func (a *App) handle(k keys.Key) bool {
	a.dirty = true
	return a.view.Handle(context.Background(), k)
}

func (a *App) expireNotice() {
	msg, seq := a.view.Notice()
	if seq != a.noticeSeq {
		a.noticeSeq = seq
		a.noticeAt = a.now
		return
	}
	if msg == "" {
		return
	}
	if time.Duration(a.now-a.noticeAt)*time.Millisecond >= a.cfg.UI.NoticeDuration() {
		a.view.ClearNotice()
		a.dirty = true
	}
}

func (a *App) draw() {
	if a.render == nil {
		return
	}
	if err := a.render.Draw(a.view); err != nil {
		if !a.renderFail {
			a.log.WithError(err).Error("present failed")
		}
		a.renderFail = true
		return
	}
	a.renderFail = false
}

func (a *App) quit() error {
	a.log.Info("quit")
	a.Close()
	return ErrQuit
}

// Close stops the scheduler and releases the storage backend.
func (a *App) Close() error {
	var errs []error
	a.closeOnce.Do(func() {
		if a.cron != nil {
			<-a.cron.Stop().Done()
		}
		for i := len(a.closers) - 1; i >= 0; i-- {
			if err := a.closers[i].Close(); err != nil {
				errs = append(errs, err)
			}
		}
	})
	return errors.Join(errs...)
}
