package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"promptbuddies/generator"
	"promptbuddies/model"
	"promptbuddies/transcript"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	markerMessage = "bot singlenogroup"
	markerButtons = "container"
	markerUser    = "user singlenogroup"
)

func newTestOrchestrator(t *testing.T, d Driver, opener Opener, r Router, rec Recorder) *Orchestrator {
	return New(d, opener, r, rec, Config{
		SystemPrompt: "system",
		Seed:         "Cześć! Jak mogę Ci pomóc?",
		PollInterval: time.Millisecond,
		Logger:       zaptest.NewLogger(t),
	})
}

func TestRunLockoutSendsResetToken(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d := &fakeDriver{
		current: Inbound{Text: "Witaj w czacie", Marker: markerMessage},
		replies: []Inbound{
			{Text: "Jesteś zablokowany!!! Spróbuj później.", Marker: markerMessage},
			{Text: "Cześć! W czym mogę pomóc?\n==========\nConversation: abc-123", Marker: markerMessage},
		},
		onExhausted: cancel,
	}
	router := &fakeRouter{replies: []string{"Chcę sprawdzić saldo"}}
	rec := &memRecorder{}
	o := newTestOrchestrator(t, d, fakeOpener{text: "Dzień dobry"}, router, rec)

	err := o.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, []string{"Dzień dobry", ResetToken, "Chcę sprawdzić saldo"}, d.Sent())
	require.Len(t, router.histories, 1, "no generation for the lockout turn")
	assert.Equal(t, []model.Turn{
		{Author: model.System, Content: "system"},
		{Author: model.Theirs, Content: "Cześć! W czym mogę pomóc?"},
	}, router.histories[0], "history restarts after reset")

	assert.Equal(t, 1, o.Resets())
	assert.Equal(t, 3, o.Turns())
	assert.Equal(t, []line{
		{transcript.User, "Dzień dobry"},
		{transcript.Bot, "Jesteś zablokowany!!! Spróbuj później."},
		{transcript.User, ResetToken},
		{transcript.Bot, "Cześć! W czym mogę pomóc?\n==========\nConversation: abc-123"},
		{transcript.User, "Chcę sprawdzić saldo"},
	}, rec.lines)
}

func TestRunLockoutLogsExchangeCount(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	core, logs := observer.New(zap.WarnLevel)
	d := &fakeDriver{
		current:     Inbound{Text: "Witaj w czacie", Marker: markerMessage},
		replies:     []Inbound{{Text: "Jesteś zablokowany!!!", Marker: markerMessage}},
		onExhausted: cancel,
	}
	o := New(d, fakeOpener{text: "Dzień dobry"}, &fakeRouter{}, nil, Config{
		SystemPrompt: "system",
		PollInterval: time.Millisecond,
		Logger:       zap.New(core),
	})

	require.ErrorIs(t, o.Run(ctx), context.Canceled)

	entries := logs.FilterMessage("lockout detected, resetting conversation").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(1), entries[0].ContextMap()["exchanges"])
}

func TestRunOperatorBanner(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d := &fakeDriver{
		current:     Inbound{Text: "", Marker: ""},
		replies:     []Inbound{{Text: "Komunikat na potrzeby hackatonu: koniec rundy", Marker: "state"}},
		onExhausted: cancel,
	}
	router := &fakeRouter{}
	o := newTestOrchestrator(t, d, fakeOpener{text: "Hej"}, router, nil)

	require.ErrorIs(t, o.Run(ctx), context.Canceled)
	assert.Equal(t, []string{"Hej", ResetToken}, d.Sent())
	assert.Empty(t, router.histories)
}

func TestRunConversation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d := &fakeDriver{
		current: Inbound{Text: "Witaj", Marker: markerMessage},
		replies: []Inbound{
			{Text: "Podaj kwotę.\n==========\nUser ID: 1\nConversation: abc", Marker: markerMessage},
			{Text: "Wybierz rodzaj przelewu", Marker: markerButtons, Buttons: []string{"Krajowy", "Zagraniczny"}},
		},
		onExhausted: cancel,
	}
	router := &fakeRouter{replies: []string{"1000 zł", "Zagraniczny, ale w złotówkach"}}
	o := newTestOrchestrator(t, d, fakeOpener{text: "Chcę zrobić przelew"}, router, nil)

	require.ErrorIs(t, o.Run(ctx), context.Canceled)
	assert.Equal(t, []string{"Chcę zrobić przelew", "1000 zł", "Zagraniczny, ale w złotówkach"}, d.Sent())

	assert.Equal(t, []model.Turn{
		{Author: model.System, Content: "system"},
		{Author: model.Ours, Content: "Chcę zrobić przelew"},
		{Author: model.Theirs, Content: "Podaj kwotę."},
		{Author: model.Ours, Content: "1000 zł"},
		{Author: model.Theirs, Content: "Wybierz rodzaj przelewu\nPrzycisk 1 - Krajowy\nPrzycisk 2 - Zagraniczny\n\nWybierz tekst z przycisków powyżej"},
		{Author: model.Ours, Content: "Zagraniczny, ale w złotówkach"},
	}, o.History())
	assert.Len(t, router.histories[0], 3)
}

func TestStepIgnoresSeenAndUnknown(t *testing.T) {
	d := &fakeDriver{current: Inbound{Text: "Witaj", Marker: markerMessage}}
	router := &fakeRouter{}
	o := newTestOrchestrator(t, d, fakeOpener{text: "Hej"}, router, nil)
	ctx := context.Background()

	require.NoError(t, o.open(ctx))

	handled, err := o.step(ctx)
	require.NoError(t, err)
	assert.False(t, handled, "baseline text is not new")

	d.show(Inbound{Text: "Hej", Marker: markerUser})
	handled, err = o.step(ctx)
	require.NoError(t, err)
	assert.False(t, handled, "unknown marker waits")

	d.show(Inbound{Text: "Hej", Marker: "  " + markerMessage + " "})
	handled, err = o.step(ctx)
	require.NoError(t, err)
	assert.True(t, handled, "same text is answered once it is classified")

	handled, err = o.step(ctx)
	require.NoError(t, err)
	assert.False(t, handled)
	assert.Len(t, router.histories, 1)
}

func TestRunGenerationFailure(t *testing.T) {
	d := &fakeDriver{
		current: Inbound{Text: "Witaj", Marker: markerMessage},
		replies: []Inbound{{Text: "Słucham?", Marker: markerMessage}},
	}
	router := &fakeRouter{replies: []string{generator.FailureSentinel}}
	rec := &memRecorder{}
	o := newTestOrchestrator(t, d, fakeOpener{text: "Hej"}, router, rec)

	err := o.Run(context.Background())
	require.ErrorIs(t, err, ErrGenerationFailed)
	assert.Equal(t, []string{"Hej"}, d.Sent(), "the sentinel is never sent")
	for _, l := range rec.lines {
		assert.NotEqual(t, generator.FailureSentinel, l.content)
	}
}

func TestRunOpeningFailure(t *testing.T) {
	d := &fakeDriver{current: Inbound{Text: "Witaj", Marker: markerMessage}}
	o := newTestOrchestrator(t, d, fakeOpener{text: generator.FailureSentinel}, &fakeRouter{}, nil)

	require.ErrorIs(t, o.Run(context.Background()), ErrGenerationFailed)
	assert.Empty(t, d.Sent())
	assert.Len(t, o.History(), 1)
}

func TestRunDriverFaultRequestsRestart(t *testing.T) {
	boom := errors.New("target closed")
	d := &fakeDriver{latestErr: boom}
	o := newTestOrchestrator(t, d, fakeOpener{text: "Hej"}, &fakeRouter{}, nil)

	err := o.Run(context.Background())
	require.ErrorIs(t, err, ErrRestartRequested)
	assert.ErrorIs(t, err, boom)
}

func TestRunSendFailureKeepsHistory(t *testing.T) {
	d := &fakeDriver{current: Inbound{Text: "Witaj"}, sendErr: errors.New("detached")}
	rec := &memRecorder{}
	o := newTestOrchestrator(t, d, fakeOpener{text: "Hej"}, &fakeRouter{}, rec)

	require.ErrorIs(t, o.Run(context.Background()), ErrRestartRequested)
	assert.Len(t, o.History(), 1, "unsent utterance is not recorded in history")
	assert.Empty(t, rec.lines, "unsent utterance is not written to the transcript")
	assert.Zero(t, o.Turns())
}

func TestRunCancelledWhilePolling(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	polls := 0
	d := &fakeDriver{current: Inbound{Text: "Witaj", Marker: markerMessage}}
	d.onLatest = func() {
		polls++
		if polls == 3 {
			cancel()
		}
	}
	o := newTestOrchestrator(t, d, fakeOpener{text: "Hej"}, &fakeRouter{}, nil)

	require.ErrorIs(t, o.Run(ctx), context.Canceled)
	assert.Equal(t, []string{"Hej"}, d.Sent())
}

func TestInboundContent(t *testing.T) {
	tests := []struct {
		name    string
		in      Inbound
		buttons bool
		want    string
	}{
		{"plain", Inbound{Text: "  Dzień dobry  "}, false, "Dzień dobry"},
		{"footer", Inbound{Text: "Treść\n==========\nTrace ID: 1"}, false, "Treść"},
		{"buttons", Inbound{Text: "Wybierz", Buttons: []string{"Tak", "Nie"}}, true, "Wybierz\nPrzycisk 1 - Tak\nPrzycisk 2 - Nie\n\nWybierz tekst z przycisków powyżej"},
		{"buttons no text", Inbound{Buttons: []string{"Tak"}}, true, "Przycisk 1 - Tak\n\nWybierz tekst z przycisków powyżej"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, inboundContent(tt.in, tt.buttons))
		})
	}
}
