// Package config loads the pipeline's environment-driven configuration
// table (spec §6) through three layers: built-in defaults, an optional
// YAML file, then environment variable overrides — each layer overwriting
// only the fields it actually sets. A company seed list
// file can additionally be hot-reloaded via fsnotify so operators can add
// target companies without restarting the process.
package config

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Config is the layered, resolved configuration surface. Field names and
// defaults mirror spec §6's configuration table exactly.
type Config struct {
	UserAgent              string        `yaml:"user_agent"`
	RequestDelay           time.Duration `yaml:"request_delay"`
	MaxRetries             int           `yaml:"max_retries"`
	Timeout                time.Duration `yaml:"timeout"`
	MaxConsecutiveFailures int           `yaml:"max_consecutive_failures"`
	RespectRobotsTxt       bool          `yaml:"respect_robots_txt"`
	DecayLambda            float64       `yaml:"decay_lambda"`
	MaxAgeMonths           int           `yaml:"max_age_months"`
	TargetCompanies        []string      `yaml:"target_companies"`

	MetricsEnabled bool   `yaml:"metrics_enabled"`
	MetricsAddr    string `yaml:"metrics_addr"`
}

// Defaults returns the table's default values.
func Defaults() Config {
	return Config{
		UserAgent:              "Interview Intelligence Research Bot 1.0",
		RequestDelay:           1 * time.Second,
		MaxRetries:             2,
		Timeout:                20 * time.Second,
		MaxConsecutiveFailures: 3,
		RespectRobotsTxt:       false,
		DecayLambda:            0.08,
		MaxAgeMonths:           60,
		TargetCompanies:        nil,
		MetricsEnabled:         false,
		MetricsAddr:            ":9090",
	}
}

// Load builds a Config by layering Defaults, an optional YAML file at
// path (skipped silently if path is empty or the file does not exist),
// and environment variable overrides, in that order.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if yamlErr := yaml.Unmarshal(data, &cfg); yamlErr != nil {
				return Config{}, yamlErr
			}
		} else if !os.IsNotExist(err) {
			return Config{}, err
		}
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v, ok := os.LookupEnv("USER_AGENT"); ok {
		cfg.UserAgent = v
	}
	if v, ok := envSeconds("REQUEST_DELAY"); ok {
		cfg.RequestDelay = v
	}
	if v, ok := envInt("MAX_RETRIES"); ok {
		cfg.MaxRetries = v
	}
	if v, ok := envSeconds("TIMEOUT"); ok {
		cfg.Timeout = v
	}
	if v, ok := envInt("MAX_CONSECUTIVE_FAILURES"); ok {
		cfg.MaxConsecutiveFailures = v
	}
	if v, ok := envBool("RESPECT_ROBOTS_TXT"); ok {
		cfg.RespectRobotsTxt = v
	}
	if v, ok := envFloat("DECAY_LAMBDA"); ok {
		cfg.DecayLambda = v
	}
	if v, ok := envInt("MAX_AGE_MONTHS"); ok {
		cfg.MaxAgeMonths = v
	}
	if v, ok := os.LookupEnv("TARGET_COMPANIES"); ok {
		cfg.TargetCompanies = splitAndTrim(v)
	}
	if v, ok := envBool("METRICS_ENABLED"); ok {
		cfg.MetricsEnabled = v
	}
	if v, ok := os.LookupEnv("METRICS_ADDR"); ok {
		cfg.MetricsAddr = v
	}
}

func envSeconds(key string) (time.Duration, bool) {
	v, ok := envInt(key)
	if !ok {
		return 0, false
	}
	return time.Duration(v) * time.Second, true
}

func envInt(key string) (int, bool) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, false
	}
	return n, true
}

func envFloat(key string) (float64, bool) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func envBool(key string) (bool, bool) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return false, false
	}
	b, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false, false
	}
	return b, true
}

func splitAndTrim(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// CompanyWatcher hot-reloads a plain-text, one-company-per-line seed list
// file via fsnotify, so operators can grow the target company set without
// restarting the process.
type CompanyWatcher struct {
	path    string
	watcher *fsnotify.Watcher

	mu        sync.RWMutex
	companies []string

	onChange func([]string)
}

// WatchCompanies starts watching path for writes, calling onChange (if
// non-nil) with the freshly parsed list after every change, in addition to
// an initial parse performed synchronously before returning.
func WatchCompanies(path string, onChange func([]string)) (*CompanyWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	cw := &CompanyWatcher{path: path, watcher: w, onChange: onChange}
	if err := cw.reload(); err != nil {
		_ = w.Close()
		return nil, err
	}
	if err := w.Add(path); err != nil {
		_ = w.Close()
		return nil, err
	}
	go cw.loop()
	return cw, nil
}

func (cw *CompanyWatcher) loop() {
	for {
		select {
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				_ = cw.reload()
			}
		case _, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func (cw *CompanyWatcher) reload() error {
	data, err := os.ReadFile(cw.path)
	if err != nil {
		return err
	}
	companies := splitAndTrim(strings.ReplaceAll(string(data), "\n", ","))
	cw.mu.Lock()
	cw.companies = companies
	cw.mu.Unlock()
	if cw.onChange != nil {
		cw.onChange(companies)
	}
	return nil
}

// Companies returns the most recently loaded seed list.
func (cw *CompanyWatcher) Companies() []string {
	cw.mu.RLock()
	defer cw.mu.RUnlock()
	out := make([]string, len(cw.companies))
	copy(out, cw.companies)
	return out
}

// Close stops the underlying fsnotify watcher.
func (cw *CompanyWatcher) Close() error {
	return cw.watcher.Close()
}
