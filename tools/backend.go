// Package tools implements the functions the generation backend may call
// while writing an utterance: lookups over a static transaction export and
// deliberately wrong financial simulations.
package tools

import (
	"bytes"
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"
)

// Result is the payload handed back to the model as a tool turn: either
// {"tool_name", "result"} or {"tool_name", "error"}.
type Result struct {
	ToolName string
	Result   any
	Error    string
}

// Failed reports whether the call produced an error payload.
func (r Result) Failed() bool { return r.Error != "" }

func (r Result) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	var err error
	if r.Failed() {
		err = writeJSON(&buf, struct {
			ToolName string `json:"tool_name"`
			Error    string `json:"error"`
		}{r.ToolName, r.Error})
	} else {
		err = writeJSON(&buf, struct {
			ToolName string `json:"tool_name"`
			Result   any    `json:"result"`
		}{r.ToolName, r.Result})
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// JSON renders the payload. Non-ASCII text is kept as is.
func (r Result) JSON() string {
	b, err := r.MarshalJSON()
	if err != nil {
		return fmt.Sprintf(`{"tool_name":%q,"error":%q}`, r.ToolName, err.Error())
	}
	return string(b)
}

type handler func(ctx context.Context, args Args) (any, error)

type tool struct {
	schema mcptypes.Tool
	run    handler
}

// Options configures a Backend.
type Options struct {
	// TransactionsPath is the CSV export used by the read tools.
	TransactionsPath string
	// SkipRows is the preamble length of the export. Zero means DefaultSkipRows.
	SkipRows int
	// Rand drives the fault-injection tools. Nil seeds from the clock.
	Rand *rand.Rand
	// Now is the clock used for generated dates. Nil means time.Now.
	Now    func() time.Time
	Logger *zap.Logger
}

// Backend is the fixed registry of callable tools.
type Backend struct {
	opts   Options
	logger *zap.Logger
	tools  map[string]tool
	order  []string

	mu      sync.Mutex // guards rnd and dataset
	rnd     *rand.Rand
	dataset *Dataset
}

// NewBackend builds a backend with every tool registered.
func NewBackend(opts Options) *Backend {
	if opts.SkipRows == 0 {
		opts.SkipRows = DefaultSkipRows
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Rand == nil {
		seed := uint64(time.Now().UnixNano())
		opts.Rand = rand.New(rand.NewPCG(seed, seed>>1))
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	b := &Backend{
		opts:   opts,
		logger: logger.Named("tools"),
		tools:  make(map[string]tool),
		rnd:    opts.Rand,
	}
	b.registerReadTools()
	b.registerFaultTools()
	return b
}

// WithDataset preloads the dataset instead of reading TransactionsPath.
func (b *Backend) WithDataset(ds *Dataset) *Backend {
	b.mu.Lock()
	b.dataset = ds
	b.mu.Unlock()
	return b
}

func (b *Backend) register(schema mcptypes.Tool, run handler) {
	b.tools[schema.Name] = tool{schema: schema, run: run}
	b.order = append(b.order, schema.Name)
}

// Schemas returns the tool descriptions offered to the model, in
// registration order.
func (b *Backend) Schemas() []mcptypes.Tool {
	out := make([]mcptypes.Tool, 0, len(b.order))
	for _, name := range b.order {
		out = append(out, b.tools[name].schema)
	}
	return out
}

// Call runs one tool. It never returns a Go error: failures, panics and
// unknown names all come back as payloads.
func (b *Backend) Call(ctx context.Context, name string, args map[string]any) (res Result) {
	res.ToolName = name

	t, ok := b.tools[name]
	if !ok {
		b.logger.Warn("unknown tool requested", zap.String("tool", name))
		res.Result = "Unknown tool: " + name
		return res
	}

	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("tool panicked", zap.String("tool", name), zap.Any("panic", r))
			res.Result = nil
			res.Error = fmt.Sprint(r)
		}
	}()

	out, err := t.run(ctx, Args(args))
	if err != nil {
		b.logger.Warn("tool failed", zap.String("tool", name), zap.Error(err))
		res.Error = err.Error()
		return res
	}
	b.logger.Debug("tool succeeded", zap.String("tool", name))
	res.Result = out
	return res
}

func (b *Backend) loadDataset() (*Dataset, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.dataset != nil {
		return b.dataset, nil
	}
	if b.opts.TransactionsPath == "" {
		return nil, fmt.Errorf("no transactions file configured")
	}
	ds, err := LoadDataset(b.opts.TransactionsPath, b.opts.SkipRows)
	if err != nil {
		return nil, err
	}
	b.dataset = ds
	return ds, nil
}
