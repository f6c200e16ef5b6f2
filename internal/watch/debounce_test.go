package watch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, d *debouncer) change {
	t.Helper()
	select {
	case c := <-d.changes():
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("no change emitted")
		return change{}
	}
}

func TestDebouncer_MergesBurst(t *testing.T) {
	d := newDebouncer(30 * time.Millisecond)
	defer d.stop()

	d.add(change{path: "a.step", kind: changeCreated})
	d.add(change{path: "a.step", kind: changeWritten})
	d.add(change{path: "a.step", kind: changeWritten})
	assert.Equal(t, 1, d.len())

	c := receive(t, d)
	assert.Equal(t, change{path: "a.step", kind: changeCreated}, c)
	assert.Equal(t, 0, d.len())
}

func TestDebouncer_CreateThenRemoveIsDropped(t *testing.T) {
	d := newDebouncer(20 * time.Millisecond)
	defer d.stop()

	d.add(change{path: "tmp.step", kind: changeCreated})
	d.add(change{path: "tmp.step", kind: changeRemoved})
	assert.Equal(t, 0, d.len())

	d.add(change{path: "b.step", kind: changeWritten})
	assert.Equal(t, "b.step", receive(t, d).path)
}

func TestMerge(t *testing.T) {
	tests := []struct {
		old, next, want changeKind
	}{
		{changeCreated, changeWritten, changeCreated},
		{changeWritten, changeRemoved, changeRemoved},
		{changeRemoved, changeCreated, changeWritten},
		{changeRemoved, changeWritten, changeWritten},
		{changeWritten, changeWritten, changeWritten},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, merge(tt.old, tt.next), "merge(%d, %d)", tt.old, tt.next)
	}
}

func TestDebouncer_StopDropsPending(t *testing.T) {
	d := newDebouncer(time.Hour)
	d.add(change{path: "a.step", kind: changeWritten})
	require.Equal(t, 1, d.len())

	d.stop()
	d.stop()
	assert.Equal(t, 0, d.len())
	d.add(change{path: "b.step", kind: changeWritten})
	assert.Equal(t, 0, d.len(), "adds after stop are ignored")
}
