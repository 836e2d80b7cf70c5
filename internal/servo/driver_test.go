package servo

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/servotrack/internal/config"
	"github.com/ayusman/servotrack/internal/log"
)

func newTestDriver(t *testing.T) (*Driver, *MockTransport) {
	t.Helper()
	cfg := config.Default().Servo
	cfg.Pan.Channel = 0
	cfg.Tilt.Channel = 1
	mt := NewMockTransport()
	return NewDriver(mt, cfg.Pan, cfg.Tilt, log.Discard()), mt
}

func TestNewDriver_StartsCentered(t *testing.T) {
	d, mt := newTestDriver(t)

	assert.Equal(t, 1500, d.Position(Pan))
	assert.Equal(t, 1500, d.Position(Tilt))

	want := []Write{{Channel: 0, US: 1500}, {Channel: 1, US: 1500}}
	if diff := cmp.Diff(want, mt.Writes()); diff != "" {
		t.Errorf("writes mismatch (-want +got):\n%s", diff)
	}
}

func TestDriver_SetPositionClamps(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want int
	}{
		{"inside", 1700, 1700},
		{"rounds", 1700.6, 1701},
		{"below min", 100, 600},
		{"above max", 9000, 2400},
		{"negative", -5000, 600},
		{"positive infinity", math.Inf(1), 2400},
		{"negative infinity", math.Inf(-1), 600},
		{"exact min", 600, 600},
		{"exact max", 2400, 2400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, mt := newTestDriver(t)

			require.NoError(t, d.SetPosition(Pan, tt.in))
			assert.Equal(t, tt.want, d.Position(Pan))

			last, ok := mt.Last(0)
			require.True(t, ok)
			assert.Equal(t, tt.want, last)
		})
	}
}

func TestDriver_NaNIgnored(t *testing.T) {
	d, mt := newTestDriver(t)
	mt.Reset()

	require.NoError(t, d.SetPosition(Tilt, math.NaN()))
	assert.Equal(t, 1500, d.Position(Tilt))
	assert.Empty(t, mt.Writes())
}

func TestDriver_UnknownAxis(t *testing.T) {
	d, _ := newTestDriver(t)
	assert.Error(t, d.SetPosition(Axis(7), 1500))
	assert.Equal(t, "axis(7)", Axis(7).String())
}

func TestDriver_TransportErrorKeepsClampedPosition(t *testing.T) {
	d, mt := newTestDriver(t)
	mt.SetError(errors.New("usb unplugged"))

	err := d.SetPosition(Pan, 5000)
	assert.Error(t, err)
	assert.Equal(t, 2400, d.Position(Pan))
}

func TestDriver_StopIdempotent(t *testing.T) {
	d, mt := newTestDriver(t)
	mt.Reset()

	require.NoError(t, d.Stop())
	require.NoError(t, d.Stop())

	want := []Write{{Channel: 0, US: 0}, {Channel: 1, US: 0}}
	if diff := cmp.Diff(want, mt.Writes()); diff != "" {
		t.Errorf("stop writes mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 1, mt.Closes())
	assert.True(t, d.Stopped())

	// commands after stop are dropped
	require.NoError(t, d.SetPosition(Pan, 1800))
	assert.Len(t, mt.Writes(), 2)
}

func TestDriver_Center(t *testing.T) {
	d, _ := newTestDriver(t)
	d.SetPosition(Pan, 900)
	d.SetPosition(Tilt, 2100)

	require.NoError(t, d.Center())
	assert.Equal(t, 1500, d.Position(Pan))
	assert.Equal(t, 1500, d.Position(Tilt))
}
