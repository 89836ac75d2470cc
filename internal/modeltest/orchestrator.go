// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package modeltest drives a single in-flight model test against a provider
// and exposes its progress as a small state machine:
// idle -> loading -> success | error.
package modeltest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/traylinx/integrationhub/internal/config"
	"github.com/traylinx/integrationhub/internal/provider"
)

// Status is the state of the current test session.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// UnknownErrorMessage is reported when a failure carries no message.
const UnknownErrorMessage = "Unknown error occurred"

// State is a snapshot of the orchestrator.
type State struct {
	Status     Status     `json:"status"`
	Provider   string     `json:"provider,omitempty"`
	Model      string     `json:"model,omitempty"`
	Response   string     `json:"response"`
	Session    uint64     `json:"session"`
	LatencyMs  int64      `json:"latencyMs,omitempty"`
	StartedAt  *time.Time `json:"startedAt,omitempty"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

// Resolver finds the provider to call for a provider name.
type Resolver interface {
	Resolve(ctx context.Context, name string) (provider.Provider, error)
}

// Error is returned by StartTest when the test fails. Message equals the
// response text recorded in State.
type Error struct {
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// Orchestrator runs model tests. Starting a new test supersedes the previous
// one; late results from superseded sessions are dropped.
type Orchestrator struct {
	resolver      Resolver
	timeout       time.Duration
	defaultPrompt string
	now           func() time.Time

	mu      sync.Mutex
	state   State
	session uint64
}

// New creates an idle orchestrator.
func New(resolver Resolver, cfg config.ModelTestConfig) *Orchestrator {
	return &Orchestrator{
		resolver:      resolver,
		timeout:       cfg.Timeout,
		defaultPrompt: cfg.DefaultPrompt,
		now:           time.Now,
		state:         State{Status: StatusIdle},
	}
}

// StartTest sends prompt to modelID on the named provider and waits for the
// outcome. An empty prompt uses the configured default. The returned error is
// an *Error whose message matches the recorded state.
func (o *Orchestrator) StartTest(ctx context.Context, providerName, modelID, prompt string) (string, error) {
	token, started := o.begin(providerName, modelID)
	return o.run(ctx, token, started, providerName, modelID, prompt)
}

// StartTestAsync begins a test in the background and returns its session token.
// Progress is observed through State.
func (o *Orchestrator) StartTestAsync(providerName, modelID, prompt string) uint64 {
	token, started := o.begin(providerName, modelID)
	go func() {
		_, _ = o.run(context.Background(), token, started, providerName, modelID, prompt)
	}()
	return token
}

// State returns a copy of the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return copyState(o.state)
}

// Reset returns to idle. Any in-flight session becomes stale.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	o.session++
	o.state = State{Status: StatusIdle, Session: o.session}
	o.mu.Unlock()
}

func (o *Orchestrator) begin(providerName, modelID string) (uint64, time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.session++
	started := o.now()
	o.state = State{
		Status:    StatusLoading,
		Provider:  providerName,
		Model:     modelID,
		Session:   o.session,
		StartedAt: &started,
	}
	return o.session, started
}

func (o *Orchestrator) run(ctx context.Context, token uint64, started time.Time, providerName, modelID, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		prompt = o.defaultPrompt
	}
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	response, err := o.invoke(ctx, providerName, modelID, prompt)
	finished := o.now()

	if err != nil {
		msg := errorMessage(err)
		o.finish(token, StatusError, msg, started, finished)
		log.WithFields(log.Fields{"provider": providerName, "model": modelID, "session": token}).Warnf("model test failed: %s", msg)
		return "", &Error{Message: msg, Err: err}
	}

	o.finish(token, StatusSuccess, response, started, finished)
	log.WithFields(log.Fields{"provider": providerName, "model": modelID, "session": token}).Info("model test succeeded")
	return response, nil
}

func (o *Orchestrator) invoke(ctx context.Context, providerName, modelID, prompt string) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("provider panicked: %v", r)
		}
	}()
	if o.resolver == nil {
		return "", fmt.Errorf("no provider resolver configured")
	}
	p, err := o.resolver.Resolve(ctx, providerName)
	if err != nil {
		return "", err
	}
	return p.Invoke(ctx, modelID, prompt)
}

// finish applies the outcome only if token is still the current session.
func (o *Orchestrator) finish(token uint64, status Status, response string, started, finished time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if token != o.session {
		log.WithFields(log.Fields{"session": token, "current": o.session}).Debug("model test: discarding stale result")
		return
	}
	o.state.Status = status
	o.state.Response = response
	o.state.LatencyMs = finished.Sub(started).Milliseconds()
	o.state.FinishedAt = &finished
}

func errorMessage(err error) string {
	if err == nil {
		return UnknownErrorMessage
	}
	msg := strings.TrimSpace(err.Error())
	if msg == "" {
		return UnknownErrorMessage
	}
	return msg
}

func copyState(s State) State {
	if s.StartedAt != nil {
		t := *s.StartedAt
		s.StartedAt = &t
	}
	if s.FinishedAt != nil {
		t := *s.FinishedAt
		s.FinishedAt = &t
	}
	return s
}
