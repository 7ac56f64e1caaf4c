package sensor

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAngle(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		angle float64
		ok    bool
	}{
		{"three fields", "10.5,0.1,0.2", 10.5, true},
		{"extra fields ignored", "-3.25,1,2,3,4", -3.25, true},
		{"carriage return", "7.5,0,0\r", 7.5, true},
		{"padded angle", " 6 ,0,0", 6, true},
		{"exponent", "1e1,0,0", 10, true},
		{"empty", "", 0, false},
		{"whitespace", "   ", 0, false},
		{"not a number", "abc", 0, false},
		{"two fields", "1,2", 0, false},
		{"bad first field", "abc,1,2", 0, false},
		{"comma decimal", "1,5", 0, false},
		{"empty first field", ",1,2", 0, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			angle, err := ParseAngle(test.line)
			if !test.ok {
				require.ErrorIs(t, err, ErrMalformed)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.angle, angle)
		})
	}
}

func TestParseAngleNaN(t *testing.T) {
	angle, err := ParseAngle("NaN,0,0")
	require.NoError(t, err)
	assert.True(t, math.IsNaN(angle))
}

func TestParseSample(t *testing.T) {
	now := time.Now()
	sample, err := ParseSample("12,0,0", now)
	require.NoError(t, err)
	assert.Equal(t, 12.0, sample.Degrees)
	assert.Equal(t, now, sample.ReceivedAt)

	_, err = ParseSample("1,2", now)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestStatusText(t *testing.T) {
	assert.Equal(t, "Listening on 10.0.0.2:12345...", Listening("10.0.0.2", 12345).String())
	assert.Equal(t, "Client Connected!", Connected("1.2.3.4:5").String())
	assert.Equal(t, "Client Disconnected. Awaiting new connection...", Disconnected().String())
	assert.Equal(t, "connected", StateConnected.String())
}
