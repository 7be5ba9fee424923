package phasor

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type workerCmd int

const (
	cmdA workerCmd = iota
	cmdB
)

type workerReply struct {
	Kind string
	Msg  string
}

func answerCommands(in *InboxReceiver[workerCmd], out *OutboxSender[workerReply]) error {
	for {
		cmd, ok := in.TryRecv()
		if !ok {
			return nil
		}
		var r workerReply
		switch cmd {
		case cmdA:
			r = workerReply{Kind: "sincere", Msg: "thanks"}
		default:
			r = workerReply{Kind: "snarky", Msg: "sure"}
		}
		if err := out.Send(r); err != nil {
			if errors.Is(err, ErrClosed) {
				return nil
			}
			return err
		}
	}
}

func TestSubAppEventRoundTrip(t *testing.T) {
	parent := Default()
	child := Default()
	require.NoError(t, child.AddSystems(Update, answerCommands))

	sub := NewSubApp[workerCmd, workerReply](child, 4, 4)
	defer sub.Deinit()

	InsertResource(parent.World().Resources(), tickLog{})
	require.NoError(t, parent.AddSystems(Startup, func(tx *InboxSender[workerCmd]) error {
		if err := tx.Send(cmdA); err != nil {
			return err
		}
		return tx.Send(cmdB)
	}))
	require.NoError(t, parent.AddSystems(Update, func(rx *OutboxReceiver[workerReply], l *ResMut[tickLog]) {
		for {
			r, ok := rx.TryRecv()
			if !ok {
				return
			}
			l.Get().Entries = append(l.Get().Entries, r.Kind+":"+r.Msg)
		}
	}))

	require.NoError(t, sub.Start(parent))
	require.NoError(t, parent.runFrom(PreStartup))

	deadline := time.After(250 * time.Millisecond)
	for {
		require.NoError(t, parent.Step())
		l, _ := GetResource[tickLog](parent.World().Resources())
		if len(l.Entries) >= 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("replies never arrived: %v", l.Entries)
		default:
			time.Sleep(time.Millisecond)
		}
	}

	l, _ := GetResource[tickLog](parent.World().Resources())
	assert.Equal(t, []string{"sincere:thanks", "snarky:sure"}, l.Entries)
	sub.Stop()
	parent.Close()
}

// relayBuf holds values in flight between a sub-app's two channels.
type relayBuf struct {
	ToLeaf   []int
	ToParent []int
}

func relayPump(in *InboxReceiver[int], leafIn *InboxSender[int], leafOut *OutboxReceiver[int], out *OutboxSender[int], buf *ResMut[relayBuf]) {
	b := buf.Get()
	for {
		v, ok := in.TryRecv()
		if !ok {
			break
		}
		b.ToLeaf = append(b.ToLeaf, v)
	}
	for len(b.ToLeaf) > 0 && leafIn.TrySend(b.ToLeaf[0]) == nil {
		b.ToLeaf = b.ToLeaf[1:]
	}
	for {
		v, ok := leafOut.TryRecv()
		if !ok {
			break
		}
		b.ToParent = append(b.ToParent, v)
	}
	for len(b.ToParent) > 0 && out.TrySend(b.ToParent[0]) == nil {
		b.ToParent = b.ToParent[1:]
	}
}

func leafEcho(in *InboxReceiver[int], out *OutboxSender[int], buf *ResMut[relayBuf]) {
	b := buf.Get()
	for {
		v, ok := in.TryRecv()
		if !ok {
			break
		}
		b.ToParent = append(b.ToParent, v)
	}
	for len(b.ToParent) > 0 && out.TrySend(b.ToParent[0]) == nil {
		b.ToParent = b.ToParent[1:]
	}
}

func TestSubAppPipelineBackpressure(t *testing.T) {
	const count = 1000
	const done = -1

	leafApp := Default()
	InsertResource(leafApp.World().Resources(), relayBuf{})
	require.NoError(t, leafApp.AddSystems(Update, leafEcho))
	leaf := NewSubApp[int, int](leafApp, 8, 8)

	middleApp := Default()
	InsertResource(middleApp.World().Resources(), relayBuf{})
	require.NoError(t, middleApp.AddSystems(Update, relayPump))

	// The leaf's parent is the middle app; start it before the middle
	// worker begins stepping.
	require.NoError(t, leaf.Start(middleApp))
	defer leaf.Deinit()

	parent := Default()
	mid := NewSubApp[int, int](middleApp, 8, 8)
	require.NoError(t, mid.Start(parent))

	go func() {
		for i := 0; i < count; i++ {
			if err := mid.inbox.Send(i); err != nil {
				return
			}
		}
		_ = mid.inbox.Send(done)
	}()

	seen := make(map[int]bool)
	var gotDone bool
	timeout := time.After(30 * time.Second)
	for !gotDone {
		select {
		case <-timeout:
			t.Fatalf("pipeline stalled with %d/%d values", len(seen), count)
		default:
		}
		v, err := mid.outbox.Recv()
		require.NoError(t, err)
		if v == done {
			gotDone = true
			continue
		}
		require.False(t, seen[v], "value %d duplicated", v)
		seen[v] = true
	}
	assert.Len(t, seen, count, "every value delivered exactly once before the done marker")

	mid.Stop()
	leaf.Stop()
	parent.Close()
	middleApp.Close()
	leafApp.Close()
}

func TestSubAppStartTwice(t *testing.T) {
	parent := Default()
	child := Default()
	sub := NewSubApp[int, int](child, 1, 1)
	require.NoError(t, sub.Start(parent))
	assert.ErrorIs(t, sub.Start(parent), ErrAlreadyStarted)
	sub.Stop()
	sub.Stop() // idempotent
	sub.Deinit()
	sub.Deinit() // idempotent
	parent.Close()
}

func TestSubAppStopUnblocksChild(t *testing.T) {
	parent := Default()
	child := Default()
	entered := make(chan struct{}, 1)
	require.NoError(t, child.AddSystems(Update, func(in *InboxReceiver[int]) {
		select {
		case entered <- struct{}{}:
		default:
		}
		_, _ = in.Recv() // parks until the parent closes the inbox
	}))
	sub := NewSubApp[int, int](child, 1, 1)
	require.NoError(t, sub.Start(parent))
	<-entered

	stopped := make(chan struct{})
	go func() {
		sub.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not unblock the parked child system")
	}
	sub.Deinit()
	parent.Close()
}

func TestSubAppMissingResource(t *testing.T) {
	w := NewWorld()
	sys, err := NewSystem(func(in *InboxReceiver[int]) {})
	require.NoError(t, err)
	assert.ErrorIs(t, sys.invoke(newCommands(w)), ErrMissingSubAppResource)
}

func TestSubAppChildExitStopsWorker(t *testing.T) {
	parent := Default()
	child := Default()
	require.NoError(t, child.AddSystems(Update, func(c *Commands) {
		CommandsInsertResource(c, Exit{Code: 0})
	}))
	sub := NewSubApp[int, int](child, 1, 1)
	require.NoError(t, sub.Start(parent))

	select {
	case <-sub.done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not exit after the child inserted Exit")
	}
	assert.NoError(t, sub.Err())
	sub.Stop()
	parent.Close()
}
