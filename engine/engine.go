// Package engine is a typed client for the fairness-audit worker engine. Each
// worker command gets one method that builds the request envelope and calls
// the bridge with a timeout suited to that operation's cost.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/guseggert/procbridge/bridge"
	"github.com/guseggert/procbridge/internal/files"
	"go.uber.org/zap"
)

const (
	// defaultTimeout covers single-document evaluations.
	defaultTimeout = 30 * time.Second
	// advancedTimeout covers multi-metric evaluations, which load heavier
	// statistical tooling in the worker.
	advancedTimeout = 60 * time.Second
	// repositoryTimeout covers whole-repository analysis, which walks
	// commit history.
	repositoryTimeout = 120 * time.Second
)

// Config describes how to start the worker engine.
type Config struct {
	// Python is the interpreter to invoke. Defaults to "python3".
	Python string
	// Script is the path to the engine entry point. If empty, the engine
	// dir is located by searching upward from Dir for "py_engine".
	Script string
	// Dir is the working directory for the worker.
	Dir string
}

// Engine fronts one worker process as a set of typed async calls.
type Engine struct {
	log    *zap.SugaredLogger
	bridge *bridge.Bridge
}

type Option func(e *options)

type options struct {
	logger     *zap.Logger
	bridgeOpts []bridge.Option
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithBridgeOptions appends options for the underlying bridge, e.g. metrics
// or restart tuning.
func WithBridgeOptions(opts ...bridge.Option) Option {
	return func(o *options) {
		o.bridgeOpts = append(o.bridgeOpts, opts...)
	}
}

// New starts the worker engine and schedules its warm-up request.
func New(cfg Config, opts ...Option) (*Engine, error) {
	python := cfg.Python
	if python == "" {
		python = "python3"
	}
	script := cfg.Script
	if script == "" {
		engineDir, err := files.FindUp("py_engine", ".")
		if err != nil {
			return nil, fmt.Errorf("locating engine script: %w", err)
		}
		script = filepath.Join(engineDir, "main.py")
	}
	return NewWithLauncher(&bridge.ExecLauncher{
		Command: python,
		Args:    []string{script},
		Dir:     cfg.Dir,
	}, opts...)
}

// NewWithLauncher starts the engine with a custom launcher, e.g. a
// bridge.ContainerLauncher for a containerized worker.
func NewWithLauncher(l bridge.Launcher, opts ...Option) (*Engine, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	logger := o.logger
	if logger == nil {
		var err error
		logger, err = zap.NewProduction()
		if err != nil {
			return nil, fmt.Errorf("building logger: %w", err)
		}
	}

	bridgeOpts := append([]bridge.Option{
		bridge.WithLogger(logger),
		bridge.WithWarmup(warmupEnvelope()),
	}, o.bridgeOpts...)

	b, err := bridge.New(l, bridgeOpts...)
	if err != nil {
		return nil, fmt.Errorf("starting engine bridge: %w", err)
	}
	return &Engine{
		log:    logger.Named("engine").Sugar(),
		bridge: b,
	}, nil
}

// Close shuts the worker down. After Close every call fails immediately.
func (e *Engine) Close() error {
	return e.bridge.Close()
}

// Stats reports the worker process's resource usage.
func (e *Engine) Stats() (*bridge.WorkerStats, error) {
	return e.bridge.Stats()
}

// Result is a decoded worker response.
type Result map[string]any

// WorkerError is an error computed and reported by the worker itself, as
// opposed to a bridge-level failure.
type WorkerError struct {
	Command string
	Message string
}

func (e *WorkerError) Error() string {
	return fmt.Sprintf("worker rejected %q: %s", e.Command, e.Message)
}

// call wraps req into a command envelope and sends it through the bridge. A
// worker response of the form {"error": ...} is surfaced as a WorkerError.
func (e *Engine) call(ctx context.Context, command string, req any, timeout time.Duration) (Result, error) {
	env, err := envelope(command, req)
	if err != nil {
		return nil, fmt.Errorf("building %q envelope: %w", command, err)
	}
	res, err := e.bridge.Call(ctx, command, env, timeout)
	if err != nil {
		return nil, err
	}
	if msg, ok := res["error"].(string); ok {
		return nil, &WorkerError{Command: command, Message: msg}
	}
	return Result(res), nil
}

// envelope flattens req into a map and tags it with the command discriminator
// the worker dispatches on.
func envelope(command string, req any) (map[string]any, error) {
	b, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	env := map[string]any{}
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, err
	}
	env["command"] = command
	return env, nil
}
