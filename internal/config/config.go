// Package config holds the planner configuration.
//
// The YAML file layer (Load/Save) is host-only. Device builds start from
// Default().
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"dayplan/planner/calendar"
)

const (
	BackendFlash  = "flash"
	BackendRedis  = "redis"
	BackendMemory = "memory"

	DefaultFlashPath    = "planner.flash"
	DefaultFlashSize    = 1024 * 1024
	DefaultFlashErase   = 4096
	DefaultRedisAddr    = "127.0.0.1:6379"
	DefaultRedisPrefix  = "dayplan:"
	DefaultWeekStart    = "sunday"
	DefaultMinuteStep   = 5
	DefaultFallbackDate = "2026-01-01"
	DefaultTodayRefresh = "0 0 * * *"
	DefaultNoticeMS     = 2500
	DefaultLogLevel     = "info"
)

var ErrInvalid = errors.New("config: invalid")

// Storage selects and parameterizes the key/value backend.
type Storage struct {
	// Backend is one of flash, redis, memory.
	Backend string `yaml:"backend"`

	// FlashEraseSize must match the one the image was made with (mkplan -erase).
	FlashPath      string `yaml:"flash_path"`
	FlashSize      uint32 `yaml:"flash_size"`
	FlashEraseSize uint32 `yaml:"flash_erase_size"`

	RedisAddr   string `yaml:"redis_addr"`
	RedisPrefix string `yaml:"redis_prefix"`

	// PassphraseEnv names the environment variable holding the sealing
	// passphrase. Empty stores values in the clear.
	PassphraseEnv string `yaml:"passphrase_env"`
}

type Calendar struct {
	// WeekStart is sunday or monday.
	WeekStart  string `yaml:"week_start"`
	MinuteStep int    `yaml:"minute_step"`
	// FallbackDate is today when the board has no clock.
	FallbackDate string `yaml:"fallback_date"`
	// TodayRefresh is a standard 5-field cron spec.
	TodayRefresh string `yaml:"today_refresh"`
}

type UI struct {
	NoticeMS int  `yaml:"notice_ms"`
	Clock12h bool `yaml:"clock_12h"`
}

type Log struct {
	Level string `yaml:"level"`
}

// Config is the top-level configuration.
type Config struct {
	Storage  Storage  `yaml:"storage"`
	Calendar Calendar `yaml:"calendar"`
	UI       UI       `yaml:"ui"`
	Log      Log      `yaml:"log"`
}

func Default() *Config {
	return &Config{
		Storage: Storage{
			Backend:        BackendFlash,
			FlashPath:      DefaultFlashPath,
			FlashSize:      DefaultFlashSize,
			FlashEraseSize: DefaultFlashErase,
			RedisAddr:      DefaultRedisAddr,
			RedisPrefix:    DefaultRedisPrefix,
		},
		Calendar: Calendar{
			WeekStart:    DefaultWeekStart,
			MinuteStep:   DefaultMinuteStep,
			FallbackDate: DefaultFallbackDate,
			TodayRefresh: DefaultTodayRefresh,
		},
		UI:  UI{NoticeMS: DefaultNoticeMS},
		Log: Log{Level: DefaultLogLevel},
	}
}

// Normalize fills zero values with defaults and lowercases enum fields.
func (c *Config) Normalize() {
	s := &c.Storage
	s.Backend = strings.ToLower(strings.TrimSpace(s.Backend))
	if s.Backend == "" {
		s.Backend = BackendFlash
	}
	if s.FlashPath == "" {
		s.FlashPath = DefaultFlashPath
	}
	if s.FlashSize == 0 {
		s.FlashSize = DefaultFlashSize
	}
	if s.FlashEraseSize == 0 {
		s.FlashEraseSize = DefaultFlashErase
	}
	if s.RedisAddr == "" {
		s.RedisAddr = DefaultRedisAddr
	}
	if s.RedisPrefix == "" {
		s.RedisPrefix = DefaultRedisPrefix
	}

	cal := &c.Calendar
	cal.WeekStart = strings.ToLower(strings.TrimSpace(cal.WeekStart))
	if cal.WeekStart == "" {
		cal.WeekStart = DefaultWeekStart
	}
	if cal.MinuteStep == 0 {
		cal.MinuteStep = DefaultMinuteStep
	}
	if cal.FallbackDate == "" {
		cal.FallbackDate = DefaultFallbackDate
	}
	if strings.TrimSpace(cal.TodayRefresh) == "" {
		cal.TodayRefresh = DefaultTodayRefresh
	}

	if c.UI.NoticeMS <= 0 {
		c.UI.NoticeMS = DefaultNoticeMS
	}
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
}

// Validate reports the first field that cannot be used.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendFlash, BackendRedis, BackendMemory:
	default:
		return fmt.Errorf("%w: storage.backend %q", ErrInvalid, c.Storage.Backend)
	}
	if e := c.Storage.FlashEraseSize; e%256 != 0 || c.Storage.FlashSize < 2*e {
		return fmt.Errorf("%w: storage.flash_erase_size %d", ErrInvalid, e)
	}
	switch c.Calendar.WeekStart {
	case "sunday", "monday":
	default:
		return fmt.Errorf("%w: calendar.week_start %q", ErrInvalid, c.Calendar.WeekStart)
	}
	if st := c.Calendar.MinuteStep; st < 1 || st > 30 || 60%st != 0 {
		return fmt.Errorf("%w: calendar.minute_step %d does not divide 60", ErrInvalid, st)
	}
	if _, err := calendar.Parse(c.Calendar.FallbackDate); err != nil {
		return fmt.Errorf("%w: calendar.fallback_date: %w", ErrInvalid, err)
	}
	if _, err := cron.ParseStandard(c.Calendar.TodayRefresh); err != nil {
		return fmt.Errorf("%w: calendar.today_refresh: %w", ErrInvalid, err)
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log.level: %w", ErrInvalid, err)
	}
	return nil
}

func (c Calendar) Weekday() calendar.Weekday {
	if c.WeekStart == "monday" {
		return calendar.Monday
	}
	return calendar.Sunday
}

// Fallback returns the parsed fallback date, or the built-in default when it
// does not parse.
func (c Calendar) Fallback() calendar.Date {
	if d, err := calendar.Parse(c.FallbackDate); err == nil && !d.IsZero() {
		return d
	}
	d, _ := calendar.Parse(DefaultFallbackDate)
	return d
}

func (u UI) NoticeDuration() time.Duration { return time.Duration(u.NoticeMS) * time.Millisecond }

// Logrus returns the parsed level, info when unparsable.
func (l Log) Logrus() logrus.Level {
	lvl, err := logrus.ParseLevel(l.Level)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}
