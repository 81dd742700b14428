package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recorder struct {
	codes []Code
}

func (r *recorder) Emit(_ context.Context, event Event) {
	r.codes = append(r.codes, event.Code)
}

func TestMultiFansOut(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	m := Multi{a, NewLogEmitter(), b, Nop{}}

	m.Emit(context.Background(), New(ObservingLoopSuccess, nil))
	m.Emit(context.Background(), New(ObservingLoopFailure, map[string]any{"error": "boom"}))

	assert.Equal(t, []Code{ObservingLoopSuccess, ObservingLoopFailure}, a.codes)
	assert.Equal(t, a.codes, b.codes)
}

func TestNewStampsTime(t *testing.T) {
	e := New(WriteSuccess, map[string]any{"tx_id": "abc"})
	assert.False(t, e.Time.IsZero())
	assert.Equal(t, "abc", e.Attributes["tx_id"])
}
