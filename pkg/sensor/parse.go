package sensor

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const MIN_FIELDS = 3

var ErrMalformed = errors.New("malformed sample")

// AngleSample is one tilt reading from the sensor.
type AngleSample struct {
	Degrees    float64
	ReceivedAt time.Time
}

// ParseAngle extracts the angle from a record of the form
// "<angle>,<field>,<field>[,...]". Fields after the first are ignored. The
// angle always uses '.' as the decimal separator.
func ParseAngle(line string) (float64, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return 0, fmt.Errorf("%w: empty line", ErrMalformed)
	}

	fields := strings.Split(line, ",")
	if len(fields) < MIN_FIELDS {
		return 0, fmt.Errorf(
			"%w: %d fields, need at least %d",
			ErrMalformed,
			len(fields),
			MIN_FIELDS,
		)
	}

	angle, err := strconv.ParseFloat(strings.TrimSpace(fields[0]), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	return angle, nil
}

func ParseSample(line string, receivedAt time.Time) (AngleSample, error) {
	angle, err := ParseAngle(line)
	if err != nil {
		return AngleSample{}, err
	}

	return AngleSample{
		Degrees:    angle,
		ReceivedAt: receivedAt,
	}, nil
}
