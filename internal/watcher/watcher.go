// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package watcher hot-reloads the configuration file.
package watcher

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
	"github.com/traylinx/integrationhub/internal/config"
)

const defaultDebounce = 150 * time.Millisecond

// ConfigWatcher reloads the config file on change and hands the new value to reload.
// The parent directory is watched so editors that save via rename are detected.
type ConfigWatcher struct {
	configPath string
	reload     func(*config.Config)
	debounce   time.Duration

	watcher *fsnotify.Watcher
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
}

// NewConfigWatcher creates a watcher for configPath.
func NewConfigWatcher(configPath string, reload func(*config.Config)) (*ConfigWatcher, error) {
	if configPath == "" {
		return nil, fmt.Errorf("config path cannot be empty")
	}
	if reload == nil {
		return nil, fmt.Errorf("reload callback cannot be nil")
	}
	abs, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}
	return &ConfigWatcher{
		configPath: abs,
		reload:     reload,
		debounce:   defaultDebounce,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}, nil
}

// Start begins watching in a background goroutine.
func (w *ConfigWatcher) Start() error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fw.Add(filepath.Dir(w.configPath)); err != nil {
		fw.Close()
		return err
	}
	w.watcher = fw

	go w.loop()
	return nil
}

func (w *ConfigWatcher) loop() {
	defer close(w.done)

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.configPath {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			w.reloadNow()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Errorf("config watcher error: %v", err)
		case <-w.stop:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

func (w *ConfigWatcher) reloadNow() {
	cfg, err := config.LoadConfig(w.configPath)
	if err != nil {
		log.Warnf("config changed but could not be loaded, keeping previous: %v", err)
		return
	}
	log.Infof("configuration reloaded from %s", w.configPath)
	w.reload(cfg)
}

// Stop terminates the watcher. It is safe to call more than once.
func (w *ConfigWatcher) Stop() error {
	var err error
	w.once.Do(func() {
		close(w.stop)
		if w.watcher != nil {
			err = w.watcher.Close()
			<-w.done
		}
	})
	return err
}
