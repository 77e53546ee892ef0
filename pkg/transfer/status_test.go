package transfer

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusTransitions(t *testing.T) {
	all := []Status{Unspecified, Scheduled, InProgress, Completed, Failed}

	allowed := map[Status][]Status{
		Unspecified: {Scheduled, InProgress, Completed, Failed},
		Scheduled:   {InProgress, Completed, Failed},
		InProgress:  {Completed, Failed},
		Completed:   nil,
		Failed:      nil,
	}

	for _, from := range all {
		for _, to := range all {
			want := false
			for _, a := range allowed[from] {
				if a == to {
					want = true
				}
			}
			if got := from.CanTransitionTo(to); got != want {
				t.Errorf("%s -> %s: got %v, want %v", from, to, got, want)
			}
		}
	}

	assert.False(t, Status(99).CanTransitionTo(Completed))
	assert.False(t, Unspecified.CanTransitionTo(Status(-1)))
}

func TestStatusText(t *testing.T) {
	for _, s := range []Status{Unspecified, Scheduled, InProgress, Completed, Failed} {
		b, err := s.MarshalText()
		require.NoError(t, err)

		var back Status
		require.NoError(t, back.UnmarshalText(b))
		assert.Equal(t, s, back)
	}

	assert.Equal(t, "status(9)", Status(9).String())
	_, err := Status(9).MarshalText()
	assert.Error(t, err)

	_, err = ParseStatus("queued")
	assert.Error(t, err)

	s, err := ParseStatus("IN_PROGRESS")
	require.NoError(t, err)
	assert.Equal(t, InProgress, s)
}

func TestDirectionJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		D Direction `json:"d"`
	}{Upload})
	require.NoError(t, err)
	assert.JSONEq(t, `{"d":"upload"}`, string(b))

	var v struct {
		D Direction `json:"d"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"d":"download"}`), &v))
	assert.Equal(t, Download, v.D)

	assert.Error(t, json.Unmarshal([]byte(`{"d":"sideways"}`), &v))
	assert.False(t, Direction(7).Valid())
}
