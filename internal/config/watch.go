package config

import (
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Live holds the current configuration snapshot. Snapshots are never
// mutated; a reload publishes a new one.
type Live struct {
	current atomic.Pointer[Config]

	mu   sync.Mutex
	subs []func(*Config)
}

// NewLive wraps a fixed snapshot.
func NewLive(cfg *Config) *Live {
	l := &Live{}
	l.current.Store(cfg)
	return l
}

// Current returns the latest snapshot.
func (l *Live) Current() *Config {
	return l.current.Load()
}

// Subscribe registers fn to be called with every published snapshot.
func (l *Live) Subscribe(fn func(*Config)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.subs = append(l.subs, fn)
}

// Publish installs cfg as the current snapshot and notifies subscribers.
func (l *Live) Publish(cfg *Config) {
	l.current.Store(cfg)

	l.mu.Lock()
	subs := append([]func(*Config){}, l.subs...)
	l.mu.Unlock()
	for _, fn := range subs {
		fn(cfg)
	}
}

// Watch loads configuration like LoadFile and keeps reloading it when the
// file changes. A reload that fails to decode or validate is logged and the
// previous snapshot stays current.
func Watch(path string) (*Live, error) {
	v := newViper(path)
	if err := readConfig(v); err != nil {
		return nil, err
	}
	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	live := NewLive(cfg)

	if v.ConfigFileUsed() == "" {
		return live, nil
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		next, err := decode(v)
		if err == nil {
			err = next.Validate()
		}
		if err != nil {
			zap.L().Warn("config: reload rejected", zap.String("file", e.Name), zap.Error(err))
			return
		}
		live.Publish(next)
		zap.L().Info("config: reloaded", zap.String("file", e.Name))
	})
	v.WatchConfig()
	return live, nil
}
