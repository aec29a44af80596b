package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"dayplan/planner/calendar"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate()=%v", err)
	}
	if got := cfg.Calendar.Fallback(); got != calendar.MustNew(2026, 1, 1) {
		t.Fatalf("Fallback=%v", got)
	}
	if cfg.Calendar.Weekday() != calendar.Sunday {
		t.Fatalf("Weekday=%v", cfg.Calendar.Weekday())
	}
}

func TestLoadFirstRunWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "dayplan.yaml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.Backend != BackendFlash {
		t.Fatalf("backend=%q", cfg.Storage.Backend)
	}
	st, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if st.Mode().Perm() != 0o600 {
		t.Fatalf("mode=%v, want 0600", st.Mode().Perm())
	}
	again, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if *again != *cfg {
		t.Fatalf("reload=%+v, want %+v", again, cfg)
	}
}

func TestLoadPartialNormalizes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.yaml")
	data := "storage:\n  backend: Memory\ncalendar:\n  week_start: MONDAY\n  minute_step: 15\nui:\n  clock_12h: true\nlog:\n  level: debug\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.Backend != BackendMemory || cfg.Storage.FlashPath != DefaultFlashPath ||
		cfg.Storage.FlashEraseSize != DefaultFlashErase {
		t.Fatalf("storage=%+v", cfg.Storage)
	}
	if cfg.Calendar.Weekday() != calendar.Monday || cfg.Calendar.MinuteStep != 15 {
		t.Fatalf("calendar=%+v", cfg.Calendar)
	}
	if cfg.Calendar.TodayRefresh != DefaultTodayRefresh || cfg.UI.NoticeMS != DefaultNoticeMS {
		t.Fatalf("defaults not filled: %+v", cfg)
	}
	if !cfg.UI.Clock12h {
		t.Fatalf("ui.clock_12h not read")
	}
	if cfg.Log.Logrus() != logrus.DebugLevel {
		t.Fatalf("level=%v", cfg.Log.Logrus())
	}
}

func TestLoadRejects(t *testing.T) {
	cases := map[string]string{
		"backend":  "storage:\n  backend: sqlite\n",
		"erase":    "storage:\n  flash_erase_size: 1000\n",
		"bank":     "storage:\n  flash_size: 65536\n  flash_erase_size: 65536\n",
		"week":     "calendar:\n  week_start: friday\n",
		"step":     "calendar:\n  minute_step: 7\n",
		"fallback": "calendar:\n  fallback_date: 2023-02-29\n",
		"cron":     "calendar:\n  today_refresh: every midnight\n",
		"level":    "log:\n  level: loud\n",
	}
	for name, data := range cases {
		path := filepath.Join(t.TempDir(), name+".yaml")
		if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
		if _, err := Load(path); !errors.Is(err, ErrInvalid) {
			t.Fatalf("%s: Load err=%v, want ErrInvalid", name, err)
		}
	}
}

func TestLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	_ = os.WriteFile(path, []byte("storage: [\n"), 0o600)
	if _, err := Load(path); err == nil {
		t.Fatalf("Load of malformed yaml succeeded")
	}
	if _, err := Load(""); err == nil {
		t.Fatalf("Load(\"\") succeeded")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.yaml")
	cfg := Default()
	cfg.Storage.Backend = BackendRedis
	cfg.Storage.PassphraseEnv = "DAYPLAN_PASS"
	cfg.UI.NoticeMS = 1000
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if *got != *cfg {
		t.Fatalf("Load=%+v, want %+v", got, cfg)
	}
	if got.UI.NoticeDuration() != time.Second {
		t.Fatalf("NoticeDuration=%v", got.UI.NoticeDuration())
	}
}

func TestFallbackUnparsable(t *testing.T) {
	c := Calendar{FallbackDate: "soon"}
	if got := c.Fallback(); got != calendar.MustNew(2026, 1, 1) {
		t.Fatalf("Fallback=%v", got)
	}
}
