package run_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/runflowgo/internal/event"
	"github.com/vk/runflowgo/internal/run"
	"github.com/vk/runflowgo/internal/testutil"
)

func newMachineAt(t *testing.T, s run.Status) (*run.Machine, *testutil.Recorder) {
	t.Helper()
	bus := event.NewBus()
	rec := &testutil.Recorder{}
	t.Cleanup(rec.Attach(bus))
	m := run.NewMachine("run-1", run.WithInitialStatus(s), run.WithBus(bus))
	return m, rec
}

func TestMachine_LegalTransitions(t *testing.T) {
	for _, lt := range legalTransitions {
		t.Run(string(lt.from)+" to "+string(lt.to), func(t *testing.T) {
			m, rec := newMachineAt(t, lt.from)

			require.NoError(t, m.TransitionTo(lt.to, "test"))
			require.Equal(t, lt.to, m.Status())

			history := m.History()
			require.Len(t, history, 1)
			require.Equal(t, lt.from, history[0].From)
			require.Equal(t, lt.to, history[0].To)
			require.False(t, history[0].At.IsZero())

			events := rec.OfKind(event.KindRunStatusChanged)
			require.Len(t, events, 1)
			sc := events[0].(event.RunStatusChanged)
			require.Equal(t, "run-1", sc.RunID)
			require.Equal(t, string(lt.from), sc.OldStatus)
			require.Equal(t, string(lt.to), sc.NewStatus)
			require.Equal(t, "test", sc.Reason)
		})
	}
}

func TestMachine_IllegalTransitions(t *testing.T) {
	for _, from := range allStatuses {
		for _, to := range allStatuses {
			if isLegal(from, to) {
				continue
			}
			t.Run(string(from)+" to "+string(to), func(t *testing.T) {
				m, rec := newMachineAt(t, from)

				err := m.TransitionTo(to, "test")
				require.Error(t, err)

				var terr *run.TransitionError
				require.ErrorAs(t, err, &terr)
				require.Equal(t, "run-1", terr.RunID)
				require.Equal(t, from, terr.From)
				require.Equal(t, to, terr.To)

				// The rejected transition leaves no trace.
				require.Equal(t, from, m.Status())
				require.Empty(t, m.History())
				require.Empty(t, rec.Events())
			})
		}
	}
}

func TestMachine_StartsPending(t *testing.T) {
	m := run.NewMachine("run-1", run.WithBus(event.NewBus()))
	require.Equal(t, run.StatusPending, m.Status())
	require.Equal(t, "run-1", m.RunID())
	require.True(t, m.CanTransitionTo(run.StatusAnalyzing))
	require.False(t, m.CanTransitionTo(run.StatusRunning))
}

func TestMachine_FullLifecycle(t *testing.T) {
	m, rec := newMachineAt(t, run.StatusPending)

	require.NoError(t, m.StartAnalyzing())
	require.NoError(t, m.StartRunning())
	require.NoError(t, m.Pause("operator request"))
	require.NoError(t, m.Resume())
	require.NoError(t, m.Complete(true))

	require.Equal(t, run.StatusSuccess, m.Status())
	require.Len(t, m.History(), 5)
	require.Len(t, rec.OfKind(event.KindRunStatusChanged), 5)

	// Terminal: nothing more is allowed.
	require.Error(t, m.StartRunning())
	require.Error(t, m.Cancel("too late"))
}

func TestMachine_Resume(t *testing.T) {
	t.Run("Only From Paused", func(t *testing.T) {
		m, _ := newMachineAt(t, run.StatusRunning)
		err := m.Resume()
		require.ErrorIs(t, err, run.ErrNotPaused)
		require.Contains(t, err.Error(), "running")
		require.Equal(t, run.StatusRunning, m.Status())
	})

	t.Run("From Paused", func(t *testing.T) {
		m, _ := newMachineAt(t, run.StatusPaused)
		require.NoError(t, m.Resume())
		require.Equal(t, run.StatusRunning, m.Status())
	})
}

func TestMachine_CompleteFailure(t *testing.T) {
	m, _ := newMachineAt(t, run.StatusRunning)
	require.NoError(t, m.Complete(false))
	require.Equal(t, run.StatusFailed, m.Status())
}

func TestMachine_GatedFlow(t *testing.T) {
	m, _ := newMachineAt(t, run.StatusAnalyzing)
	require.NoError(t, m.Gate("policy approval required"))
	require.Equal(t, run.StatusGated, m.Status())

	// A gated run can only resume running or be cancelled.
	require.Error(t, m.Pause("nope"))
	require.NoError(t, m.StartRunning())
}

func TestMachine_Callback(t *testing.T) {
	t.Run("Invoked On Success", func(t *testing.T) {
		bus := event.NewBus()
		var gotFrom, gotTo run.Status
		var gotReason string
		m := run.NewMachine("run-1", run.WithBus(bus), run.WithCallback(func(from, to run.Status, reason string) {
			gotFrom, gotTo, gotReason = from, to, reason
		}))

		require.NoError(t, m.StartAnalyzing())
		require.Equal(t, run.StatusPending, gotFrom)
		require.Equal(t, run.StatusAnalyzing, gotTo)
		require.Equal(t, "analysis started", gotReason)
	})

	t.Run("Panic Does Not Roll Back", func(t *testing.T) {
		bus := event.NewBus()
		rec := &testutil.Recorder{}
		t.Cleanup(rec.Attach(bus))
		logger, _ := testutil.NewLogger()
		m := run.NewMachine("run-1", run.WithBus(bus), run.WithLogger(logger),
			run.WithCallback(func(from, to run.Status, reason string) {
				panic("callback blew up")
			}))

		require.NotPanics(t, func() {
			require.NoError(t, m.StartAnalyzing())
		})
		require.Equal(t, run.StatusAnalyzing, m.Status())
		require.Len(t, m.History(), 1)
		// The bus event still goes out after the recovered panic.
		require.Len(t, rec.OfKind(event.KindRunStatusChanged), 1)
	})
}

func TestMachine_HistoryIsACopy(t *testing.T) {
	m, _ := newMachineAt(t, run.StatusPending)
	require.NoError(t, m.StartAnalyzing())

	history := m.History()
	history[0].To = run.StatusError
	require.Equal(t, run.StatusAnalyzing, m.History()[0].To)
}
