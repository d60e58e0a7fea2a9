package orchestrator

import (
	"context"
	"sync"

	"promptbuddies/model"
	"promptbuddies/strategy"
	"promptbuddies/transcript"
)

// fakeDriver shows one reply at a time. Each Send reveals the next reply;
// once replies run out, Send calls onExhausted.
type fakeDriver struct {
	mu          sync.Mutex
	current     Inbound
	replies     []Inbound
	sent        []string
	latestErr   error
	sendErr     error
	onExhausted func()
	onLatest    func()
}

func (f *fakeDriver) Latest(context.Context) (Inbound, error) {
	f.mu.Lock()
	hook := f.onLatest
	cur, err := f.current, f.latestErr
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return cur, err
}

func (f *fakeDriver) Send(_ context.Context, text string) error {
	f.mu.Lock()
	if f.sendErr != nil {
		f.mu.Unlock()
		return f.sendErr
	}
	f.sent = append(f.sent, text)
	var hook func()
	if len(f.replies) > 0 {
		f.current = f.replies[0]
		f.replies = f.replies[1:]
	} else {
		hook = f.onExhausted
	}
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return nil
}

func (f *fakeDriver) show(in Inbound) {
	f.mu.Lock()
	f.current = in
	f.mu.Unlock()
}

func (f *fakeDriver) Sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

type fakeOpener struct{ text string }

func (f fakeOpener) GenerateFirst(context.Context, string) string { return f.text }

type fakeRouter struct {
	mu        sync.Mutex
	replies   []string
	histories [][]model.Turn
}

func (r *fakeRouter) Next(_ context.Context, history []model.Turn) (string, strategy.Choice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.histories = append(r.histories, history)
	if len(r.replies) == 0 {
		return "kolejne pytanie", strategy.Cooperative
	}
	next := r.replies[0]
	r.replies = r.replies[1:]
	return next, strategy.Adversarial
}

type line struct {
	sender  transcript.Sender
	content string
}

type memRecorder struct {
	mu    sync.Mutex
	lines []line
}

func (m *memRecorder) Record(sender transcript.Sender, content string) error {
	m.mu.Lock()
	m.lines = append(m.lines, line{sender, content})
	m.mu.Unlock()
	return nil
}
