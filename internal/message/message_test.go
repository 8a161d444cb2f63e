package message

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusRoundTrip(t *testing.T) {
	started := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	in := &Message{
		Type: TypeStatusResponse,
		Status: &Status{
			PID:       42,
			StartedAt: started,
			State:     "showing",
			Session:   &Session{ID: "abc", Lines: 2, Deadline: started.Add(time.Second)},
			Settings:  []string{"max_lines = 5"},
		},
	}
	raw, err := in.Encode()
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "\n")

	out, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode([]byte("{nope"))
	assert.Error(t, err)

	_, err = Decode([]byte(`{"text":"no type"}`))
	assert.Error(t, err)
}

func TestErrorf(t *testing.T) {
	m := Errorf("bad %s", "thing")
	assert.Equal(t, TypeError, m.Type)
	assert.Equal(t, "bad thing", m.Error)
}
