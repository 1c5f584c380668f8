package robot

import (
	"encoding/json"
	"math"
	"os"

	"github.com/pkg/errors"
)

// Servo resolution: ticks per full revolution, and the tick at zero angle.
const (
	TicksPerRev = 4096
	CenterTick  = 2048
)

// MotorCalibration holds calibration data for a single motor.
type MotorCalibration struct {
	ID           int `json:"id"`
	DriveMode    int `json:"drive_mode"`
	HomingOffset int `json:"homing_offset"`
	RangeMin     int `json:"range_min"`
	RangeMax     int `json:"range_max"`
}

// Calibration holds calibration data for all motors, keyed by motor name.
type Calibration map[MotorName]MotorCalibration

// LoadCalibration loads calibration data from a JSON file.
func LoadCalibration(path string) (Calibration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read calibration file")
	}

	var cal Calibration
	if err := json.Unmarshal(data, &cal); err != nil {
		return nil, errors.Wrap(err, "parse calibration JSON")
	}
	return cal, nil
}

// Radians converts a raw servo position to a joint angle.
// DriveMode 1 flips the direction of rotation.
func (c MotorCalibration) Radians(raw int) float64 {
	rad := float64(raw-CenterTick-c.HomingOffset) * 2 * math.Pi / TicksPerRev
	if c.DriveMode == 1 {
		return -rad
	}
	return rad
}

// Raw converts a joint angle to a raw servo position, clamped to the
// recorded range when one is set.
func (c MotorCalibration) Raw(rad float64) int {
	if c.DriveMode == 1 {
		rad = -rad
	}
	raw := int(math.Round(rad*TicksPerRev/(2*math.Pi))) + CenterTick + c.HomingOffset
	if c.RangeMax > c.RangeMin {
		raw = min(max(raw, c.RangeMin), c.RangeMax)
	}
	return raw
}

// MotorIDs returns the servo IDs for all motors in the calibration.
func (c Calibration) MotorIDs() []int {
	ids := make([]int, 0, len(c))
	// AllMotors keeps the ordering stable
	for _, name := range AllMotors() {
		if mc, ok := c[name]; ok {
			ids = append(ids, mc.ID)
		}
	}
	return ids
}

// ByID returns motor name and calibration for a given servo ID.
func (c Calibration) ByID(id int) (MotorName, MotorCalibration, bool) {
	for name, mc := range c {
		if mc.ID == id {
			return name, mc, true
		}
	}
	return "", MotorCalibration{}, false
}
