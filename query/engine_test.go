package query

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeFileSource struct {
	revisions map[string]uint64
}

func (f *fakeFileSource) FileRevision(id string) (uint64, bool) {
	rev, ok := f.revisions[id]
	return rev, ok
}

func TestFetchCachesResult(t *testing.T) {
	e := NewEngine()
	var calls atomic.Int32

	key := NewKey("double", "21")
	compute := func(c *Context) (int, error) {
		calls.Add(1)
		return 42, nil
	}

	v1, err := Fetch(context.Background(), e, key, compute)
	require.NoError(t, err)
	require.Equal(t, 42, v1)

	v2, err := Fetch(context.Background(), e, key, compute)
	require.NoError(t, err)
	require.Equal(t, 42, v2)
	require.Equal(t, int32(1), calls.Load())
}

func TestEarlyCutoffSkipsDownstreamReexecution(t *testing.T) {
	e := NewEngine()
	src := &fakeFileSource{revisions: map[string]uint64{"f1": 1}}
	e.SetFileRevisionSource(src)

	var upstreamCalls, downstreamCalls atomic.Int32

	upstreamKey := NewKey("upstream", "f1")
	upstream := func(c *Context) (string, error) {
		upstreamCalls.Add(1)
		c.RecordFileAccess("f1", 1)
		return "stable-value", nil
	}

	downstreamKey := NewKey("downstream", "f1")
	downstream := func(c *Context) (int, error) {
		downstreamCalls.Add(1)
		v, err := FetchDep(c, upstreamKey, upstream)
		if err != nil {
			return 0, err
		}
		return len(v), nil
	}

	_, err := Fetch(context.Background(), e, downstreamKey, downstream)
	require.NoError(t, err)
	require.Equal(t, int32(1), upstreamCalls.Load())
	require.Equal(t, int32(1), downstreamCalls.Load())

	// Touch the file (new revision, same content) and bump: upstream
	// re-executes to the same value, so downstream must NOT re-execute
	// (early cutoff).
	src.revisions["f1"] = 2
	e.Bump()
	_, err = Fetch(context.Background(), e, downstreamKey, downstream)
	require.NoError(t, err)
	require.Equal(t, int32(2), upstreamCalls.Load(), "upstream re-executes after its file revision changes")
	require.Equal(t, int32(1), downstreamCalls.Load(), "downstream must not re-execute on early cutoff")
}

func TestInvalidationReexecutesOnChange(t *testing.T) {
	e := NewEngine()
	src := &fakeFileSource{revisions: map[string]uint64{"f1": 1}}
	e.SetFileRevisionSource(src)

	var downstreamCalls atomic.Int32

	upstreamKey := NewKey("upstream", "f1")
	value := "v1"
	upstream := func(c *Context) (string, error) {
		c.RecordFileAccess("f1", src.revisions["f1"])
		return value, nil
	}

	downstreamKey := NewKey("downstream", "f1")
	downstream := func(c *Context) (int, error) {
		downstreamCalls.Add(1)
		v, err := FetchDep(c, upstreamKey, upstream)
		if err != nil {
			return 0, err
		}
		return len(v), nil
	}

	_, err := Fetch(context.Background(), e, downstreamKey, downstream)
	require.NoError(t, err)
	require.Equal(t, int32(1), downstreamCalls.Load())

	// Change the file's content and bump revision: downstream MUST
	// re-execute exactly once.
	value = "v2-longer"
	src.revisions["f1"] = 2
	e.Bump()

	result, err := Fetch(context.Background(), e, downstreamKey, downstream)
	require.NoError(t, err)
	require.Equal(t, len("v2-longer"), result)
	require.Equal(t, int32(2), downstreamCalls.Load())
}

func TestFetchDetectsCycle(t *testing.T) {
	e := NewEngine()

	var a, b func(*Context) (int, error)
	keyA := NewKey("a", "")
	keyB := NewKey("b", "")

	a = func(c *Context) (int, error) {
		return FetchDep(c, keyB, b)
	}
	b = func(c *Context) (int, error) {
		return FetchDep(c, keyA, a)
	}

	_, err := Fetch(context.Background(), e, keyA, a)
	require.Error(t, err)
	require.True(t, IsCycle(err))
}

func TestFetchCancellation(t *testing.T) {
	e := NewEngine()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Fetch(ctx, e, NewKey("x", ""), func(c *Context) (int, error) {
		return 1, nil
	})
	require.ErrorIs(t, err, ErrCancelled)
}
