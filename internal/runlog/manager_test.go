package runlog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestManagerStartGetEnd(t *testing.T) {
	m := NewManager(time.Minute)
	r := m.Start("okay_nabu")
	require.NotEmpty(t, r.ID)
	require.Equal(t, StatusActive, r.Status)

	got, err := m.Get(r.ID)
	require.NoError(t, err)
	require.Equal(t, "okay_nabu", got.WakeWord)

	ended, err := m.End(r.ID)
	require.NoError(t, err)
	require.Equal(t, StatusEnded, ended.Status)
}

func TestManagerGetUnknown(t *testing.T) {
	m := NewManager(time.Minute)
	_, err := m.Get("missing")
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestManagerJanitorForceEndsStaleRuns(t *testing.T) {
	m := NewManager(30 * time.Millisecond)
	r := m.Start("jarvis")

	var stale *Run
	m.SetStaleHook(func(run *Run) { stale = run })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.StartJanitor(ctx, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		got, err := m.Get(r.ID)
		return err == nil && got.Status == StatusEnded
	}, time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool { return stale != nil }, time.Second, 10*time.Millisecond)
	require.Equal(t, r.ID, stale.ID)
}

func TestManagerPrunesEndedRunsAfterRetention(t *testing.T) {
	m := NewManager(time.Minute)
	m.SetEndedRetention(20 * time.Millisecond)
	r := m.Start("jarvis")
	_, err := m.End(r.ID)
	require.NoError(t, err)

	time.Sleep(40 * time.Millisecond)
	m.expireInactive()

	_, err = m.Get(r.ID)
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestManagerActiveCount(t *testing.T) {
	m := NewManager(time.Minute)
	a := m.Start("a")
	m.Start("b")
	require.Equal(t, 2, m.ActiveCount())
	_, err := m.End(a.ID)
	require.NoError(t, err)
	require.Equal(t, 1, m.ActiveCount())
}
