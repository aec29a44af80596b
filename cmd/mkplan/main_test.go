//go:build !tinygo

package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"

	"dayplan/hal"
	"dayplan/planner/kv/flashkv"
)

func crlf(lines ...string) string { return strings.Join(lines, "\r\n") + "\r\n" }

var seedICS = crlf(
	"BEGIN:VCALENDAR",
	"VERSION:2.0",
	"PRODID:-//test//EN",
	"BEGIN:VEVENT",
	"UID:a@test",
	"SUMMARY:Dentist",
	"DTSTART:20240229T093000",
	"PRIORITY:1",
	"END:VEVENT",
	"BEGIN:VTODO",
	"UID:b@test",
	"SUMMARY:Pay rent",
	"STATUS:COMPLETED",
	"DUE;VALUE=DATE:20240301",
	"END:VTODO",
	"BEGIN:VEVENT",
	"UID:c@test",
	"SUMMARY:No start",
	"END:VEVENT",
	"END:VCALENDAR",
)

func noEnv(string) string { return "" }

func runOK(t *testing.T, getenv func(string) string, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	if err := run(context.Background(), args, &out, getenv); err != nil {
		t.Fatalf("run(%v): %v", args, err)
	}
	return out.String()
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestInitSeedDumpExport(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "planner.flash")
	seed := filepath.Join(dir, "seed.ics")
	writeFile(t, seed, seedICS)

	out := runOK(t, noEnv, "init", "-out", img, "-size", "65536", "-seed", seed)
	if !strings.Contains(out, "imported 1 events, 1 tasks (1 skipped)") {
		t.Fatalf("init output=%q", out)
	}
	st, err := os.Stat(img)
	if err != nil || st.Size() != 65536 {
		t.Fatalf("image stat=%v err=%v, want 65536 bytes", st, err)
	}

	out = runOK(t, noEnv, "dump", "-flash", img)
	for _, want := range []string{"events=1 tasks=1 pending=0", "2024-02-29 09:30 ! Dentist", "[x]", "Pay rent due 2024-03-01"} {
		if !strings.Contains(out, want) {
			t.Fatalf("dump missing %q:\n%s", want, out)
		}
	}

	ics := filepath.Join(dir, "out.ics")
	runOK(t, noEnv, "export", "-flash", img, "-out", ics)
	b, err := os.ReadFile(ics)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"SUMMARY:Dentist", "DTSTART:20240229T093000", "STATUS:COMPLETED"} {
		if !strings.Contains(string(b), want) {
			t.Fatalf("export missing %q:\n%s", want, b)
		}
	}
}

func TestImportAppends(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "planner.flash")
	seed := filepath.Join(dir, "seed.ics")
	writeFile(t, seed, seedICS)

	runOK(t, noEnv, "init", "-out", img, "-size", "65536")
	runOK(t, noEnv, "import", "-flash", img, "-in", seed)
	runOK(t, noEnv, "import", "-flash", img, "-in", seed)

	out := runOK(t, noEnv, "dump", "-flash", img)
	if !strings.Contains(out, "events=2 tasks=2") {
		t.Fatalf("dump after two imports:\n%s", out)
	}
}

func TestExportStdout(t *testing.T) {
	img := filepath.Join(t.TempDir(), "planner.flash")
	runOK(t, noEnv, "init", "-out", img, "-size", "65536")
	out := runOK(t, noEnv, "export", "-flash", img, "-out", "-")
	if !strings.HasPrefix(out, "BEGIN:VCALENDAR") {
		t.Fatalf("stdout export=%q", out)
	}
}

func TestSealedImage(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "planner.flash")
	seed := filepath.Join(dir, "seed.ics")
	writeFile(t, seed, seedICS)
	env := func(k string) string {
		if k == "PLAN_KEY" {
			return "hunter2"
		}
		return ""
	}

	runOK(t, env, "init", "-out", img, "-size", "65536", "-passphrase-env", "PLAN_KEY", "-seed", seed)
	out := runOK(t, env, "dump", "-flash", img, "-passphrase-env", "PLAN_KEY")
	if !strings.Contains(out, "Dentist") {
		t.Fatalf("sealed dump:\n%s", out)
	}

	raw, err := os.ReadFile(img)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(raw, []byte("Dentist")) {
		t.Fatalf("sealed image contains plaintext title")
	}

	var buf bytes.Buffer
	if err := run(context.Background(), []string{"dump", "-flash", img, "-passphrase-env", "PLAN_KEY"}, &buf, noEnv); err == nil {
		t.Fatalf("dump with empty passphrase succeeded")
	}
}

func TestRedisTarget(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(mr.Close)
	seed := filepath.Join(t.TempDir(), "seed.ics")
	writeFile(t, seed, seedICS)

	runOK(t, noEnv, "import", "-redis", mr.Addr(), "-in", seed)
	out := runOK(t, noEnv, "dump", "-redis", mr.Addr())
	if !strings.Contains(out, "events=1 tasks=1") || strings.Contains(out, "flash:") {
		t.Fatalf("redis dump:\n%s", out)
	}
	if keys := mr.Keys(); len(keys) == 0 || !strings.HasPrefix(keys[0], "dayplan:") {
		t.Fatalf("redis keys=%v, want dayplan: prefix", keys)
	}
}

func TestUsageErrors(t *testing.T) {
	cases := [][]string{
		nil,
		{"frobnicate"},
		{"export", "-flash", "x.flash"},
		{"import", "-flash", "x.flash"},
		{"dump", "-bogus"},
		{"compact", "-redis", "127.0.0.1:6379"},
	}
	for _, args := range cases {
		var buf bytes.Buffer
		err := run(context.Background(), args, &buf, noEnv)
		var uerr usageError
		if !errors.As(err, &uerr) {
			t.Fatalf("run(%v)=%v, want usage error", args, err)
		}
	}
}

func TestVersion(t *testing.T) {
	if out := runOK(t, noEnv, "version"); !strings.HasPrefix(out, "mkplan dev") {
		t.Fatalf("version=%q", out)
	}
}

func TestDumpMissingImage(t *testing.T) {
	var buf bytes.Buffer
	err := run(context.Background(), []string{"dump", "-flash", filepath.Join(t.TempDir(), "nope.flash")}, &buf, noEnv)
	if err == nil || !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("dump missing image err=%v, want not-exist", err)
	}
}

func TestCompactLargeEraseImage(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "big.flash")
	seed := filepath.Join(dir, "seed.ics")
	writeFile(t, seed, seedICS)

	runOK(t, noEnv, "init", "-out", img, "-size", "196608", "-erase", "65536", "-seed", seed)
	if out := runOK(t, noEnv, "compact", "-flash", img, "-erase", "65536"); !strings.Contains(out, "generation=2") {
		t.Fatalf("compact=%q", out)
	}
	if out := runOK(t, noEnv, "dump", "-flash", img, "-erase", "65536"); !strings.Contains(out, "Dentist") {
		t.Fatalf("dump after compact=%q", out)
	}

	var buf bytes.Buffer
	err := run(context.Background(), []string{"dump", "-flash", img}, &buf, noEnv)
	if !errors.Is(err, flashkv.ErrGeometry) {
		t.Fatalf("dump with default erase err=%v, want ErrGeometry", err)
	}

	for _, tc := range []struct {
		erase uint32
		want  error
	}{
		{0, flashkv.ErrGeometry},
		{65536, nil},
	} {
		h := hal.NewHost(hal.HostOptions{FlashPath: img, FlashEraseSize: tc.erase, LogOutput: io.Discard})
		fs, err := flashkv.Open(h.Flash(), flashkv.Options{})
		if !errors.Is(err, tc.want) {
			t.Fatalf("host erase=%d: Open err=%v, want %v", tc.erase, err, tc.want)
		}
		if err == nil && fs.Stats().Keys == 0 {
			t.Fatalf("host erase=%d: no keys", tc.erase)
		}
		if c, ok := h.Flash().(io.Closer); ok {
			_ = c.Close()
		}
	}
}
