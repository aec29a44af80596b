//go:build !tinygo

// Command mkplan creates and inspects planner flash images and moves their
// contents to and from iCalendar files.
//
//	mkplan init   -out planner.flash [-size N] [-seed cal.ics]
//	mkplan dump   -flash planner.flash
//	mkplan export -flash planner.flash -out cal.ics
//	mkplan import -flash planner.flash -in cal.ics
//	mkplan compact -flash planner.flash
//	mkplan version
//
// Every store subcommand accepts -redis addr (instead of -flash) and
// -passphrase-env NAME for sealed stores. -erase must match the
// storage.flash_erase_size the planner is configured with.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"dayplan/hal"
	"dayplan/internal/buildinfo"
	"dayplan/internal/logging"
	"dayplan/planner/ics"
	"dayplan/planner/kv"
	"dayplan/planner/kv/flashkv"
	"dayplan/planner/kv/rediskv"
	"dayplan/planner/kv/sealed"
	"dayplan/planner/store"
)

const usage = "usage: mkplan init|dump|export|import|compact|version [flags]"

const defaultFlashPath = "planner.flash"

func main() {
	err := run(context.Background(), os.Args[1:], os.Stdout, os.Getenv)
	var uerr usageError
	switch {
	case err == nil:
	case errors.As(err, &uerr):
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(2)
	default:
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type usageError string

func (e usageError) Error() string { return string(e) }

// target names the backing store of a subcommand.
type target struct {
	flashPath     string
	eraseSize     uint
	redisAddr     string
	redisPrefix   string
	passphraseEnv string
	verbose       bool
}

func (t *target) register(fs *flag.FlagSet, flashFlag string) {
	fs.StringVar(&t.flashPath, flashFlag, defaultFlashPath, "Flash image path.")
	fs.UintVar(&t.eraseSize, "erase", hal.DefaultFlashEraseBytes, "Erase block size (bytes).")
	fs.StringVar(&t.redisAddr, "redis", "", "Use the Redis store at this address instead of a flash image.")
	fs.StringVar(&t.redisPrefix, "prefix", "dayplan:", "Redis key prefix.")
	fs.StringVar(&t.passphraseEnv, "passphrase-env", "", "Environment variable holding the sealing passphrase.")
	fs.BoolVar(&t.verbose, "v", false, "Log store warnings.")
}

type session struct {
	st      *store.Store
	report  store.LoadReport
	flash   *flashkv.Store
	closers []io.Closer
}

func (s *session) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i].Close())
	}
	return errors.Join(errs...)
}

func (t *target) open(ctx context.Context, getenv func(string) string, create bool, size uint) (*session, error) {
	s := &session{}
	var base kv.Store
	if t.redisAddr != "" {
		rs, err := rediskv.Dial(ctx, t.redisAddr, t.redisPrefix)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, rs)
		base = rs
	} else {
		var ff *hal.FlashFile
		var err error
		if create {
			ff, err = hal.CreateFlashFile(t.flashPath, uint32(size), uint32(t.eraseSize))
		} else {
			ff, err = hal.OpenFlashFile(t.flashPath, uint32(t.eraseSize))
		}
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, ff)
		fs, err := flashkv.Open(ff, flashkv.Options{})
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		s.flash = fs
		base = fs
	}

	if t.passphraseEnv != "" {
		pass := getenv(t.passphraseEnv)
		if pass == "" {
			_ = s.Close()
			return nil, fmt.Errorf("$%s is empty", t.passphraseEnv)
		}
		ss, err := sealed.Open(ctx, base, []byte(pass), sealed.Options{})
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		base = ss
	}

	lg := logging.Discard()
	if t.verbose {
		lg.SetOutput(os.Stderr)
	}
	st, rep, err := store.Open(ctx, base, store.Options{Logger: lg})
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	s.st, s.report = st, rep
	return s, nil
}

func run(ctx context.Context, args []string, stdout io.Writer, getenv func(string) string) error {
	if len(args) == 0 {
		return usageError(usage)
	}
	cmd, args := args[0], args[1:]
	fs := flag.NewFlagSet("mkplan "+cmd, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var t target

	switch cmd {
	case "init":
		var size uint
		var seed string
		t.register(fs, "out")
		fs.UintVar(&size, "size", hal.DefaultFlashSizeBytes, "Flash image size (bytes).")
		fs.StringVar(&seed, "seed", "", "Import this .ics into the new image.")
		if err := fs.Parse(args); err != nil {
			return usageError(err.Error())
		}
		s, err := t.open(ctx, getenv, t.redisAddr == "", size)
		if err != nil {
			return err
		}
		defer s.Close()
		if seed != "" {
			if err := importFile(ctx, s.st, seed, stdout); err != nil {
				return err
			}
		}
		fmt.Fprintf(stdout, "initialized %s\n", t.describe())
		return nil

	case "dump":
		t.register(fs, "flash")
		if err := fs.Parse(args); err != nil {
			return usageError(err.Error())
		}
		s, err := t.open(ctx, getenv, false, 0)
		if err != nil {
			return err
		}
		defer s.Close()
		dump(stdout, s)
		return nil

	case "export":
		var out string
		t.register(fs, "flash")
		fs.StringVar(&out, "out", "", "Output .ics path (\"-\" for stdout).")
		if err := fs.Parse(args); err != nil {
			return usageError(err.Error())
		}
		if out == "" {
			return usageError("export: -out is required")
		}
		s, err := t.open(ctx, getenv, false, 0)
		if err != nil {
			return err
		}
		defer s.Close()
		return exportFile(s.st, out, stdout)

	case "import":
		var in string
		t.register(fs, "flash")
		fs.StringVar(&in, "in", "", "Input .ics path.")
		if err := fs.Parse(args); err != nil {
			return usageError(err.Error())
		}
		if in == "" {
			return usageError("import: -in is required")
		}
		s, err := t.open(ctx, getenv, false, 0)
		if err != nil {
			return err
		}
		defer s.Close()
		return importFile(ctx, s.st, in, stdout)

	case "compact":
		t.register(fs, "flash")
		if err := fs.Parse(args); err != nil {
			return usageError(err.Error())
		}
		if t.redisAddr != "" {
			return usageError("compact: needs a flash image, not -redis")
		}
		s, err := t.open(ctx, getenv, false, 0)
		if err != nil {
			return err
		}
		defer s.Close()
		if err := s.flash.Compact(ctx); err != nil {
			return err
		}
		st := s.flash.Stats()
		fmt.Fprintf(stdout, "compacted %s: generation=%d used=%d/%d\n",
			t.flashPath, st.Generation, st.UsedBytes, st.BankBytes)
		return nil

	case "version":
		fmt.Fprintln(stdout, "mkplan", buildinfo.String())
		return nil

	default:
		return usageError(fmt.Sprintf("unknown command %q; %s", cmd, usage))
	}
}

func (t *target) describe() string {
	if t.redisAddr != "" {
		return "redis " + t.redisAddr
	}
	return t.flashPath
}

func dump(w io.Writer, s *session) {
	if s.flash != nil {
		st := s.flash.Stats()
		fmt.Fprintf(w, "flash: keys=%d generation=%d used=%d/%d compactions=%d torn_tail=%v\n",
			st.Keys, st.Generation, st.UsedBytes, st.BankBytes, st.Compactions, st.TornTail)
	}
	stats := s.st.Stats()
	fmt.Fprintf(w, "store: events=%d tasks=%d pending=%d next_id=%d corrupt=%d\n",
		stats.Events, stats.Tasks, stats.Pending, stats.NextID, s.report.Corrupt)

	fmt.Fprintln(w, "events:")
	for _, e := range s.st.Events() {
		fmt.Fprintf(w, "  #%d %s %s %s %s\n", e.ID, e.Date, e.Time, e.Priority.Marker(), e.Title)
	}
	fmt.Fprintln(w, "tasks:")
	for _, t := range s.st.SortedTasks() {
		box := "[ ]"
		if t.Done {
			box = "[x]"
		}
		line := fmt.Sprintf("  #%d %s %s %s", t.ID, box, t.Priority.Marker(), t.Title)
		if !t.Due.IsZero() {
			line += " due " + t.Due.String()
		}
		fmt.Fprintln(w, line)
	}
}

func exportFile(st *store.Store, path string, stdout io.Writer) error {
	w := stdout
	if path != "-" {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	if err := ics.Export(w, st.Events(), st.Tasks(), ics.ExportOptions{}); err != nil {
		return err
	}
	if path != "-" {
		fmt.Fprintf(stdout, "exported %d events, %d tasks to %s\n", len(st.Events()), len(st.Tasks()), path)
	}
	return nil
}

func importFile(ctx context.Context, st *store.Store, path string, stdout io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	res, err := ics.Import(f)
	if err != nil {
		return err
	}
	var events, tasks int
	for _, e := range res.Events {
		if _, err := st.CreateEvent(ctx, e); err != nil {
			return fmt.Errorf("import event %q: %w", e.Title, err)
		}
		events++
	}
	for _, t := range res.Tasks {
		if _, err := st.CreateTask(ctx, t); err != nil {
			return fmt.Errorf("import task %q: %w", t.Title, err)
		}
		tasks++
	}
	fmt.Fprintf(stdout, "imported %d events, %d tasks (%d skipped)\n", events, tasks, res.Skipped)
	return nil
}
