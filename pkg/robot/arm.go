package robot

import (
	"context"

	"github.com/hipsterbrown/feetech-servo/feetech"
	"github.com/pkg/errors"
)

// BaudRate of the servo bus.
const BaudRate = 1_000_000

// Arm represents a robot arm with multiple servos.
type Arm struct {
	bus         *feetech.Bus
	group       *feetech.ServoGroup
	calibration Calibration
}

// NewArm creates and initializes an arm connection.
func NewArm(port string, cal Calibration) (*Arm, error) {
	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: BaudRate,
		Protocol: feetech.ProtocolSTS,
	})
	if err != nil {
		return nil, errors.Wrap(err, "open bus")
	}

	// Create servo group from calibration IDs
	group := feetech.NewServoGroupByIDs(bus, cal.MotorIDs()...)

	return &Arm{
		bus:         bus,
		group:       group,
		calibration: cal,
	}, nil
}

// Close closes the arm's bus connection.
func (a *Arm) Close() error {
	return a.bus.Close()
}

// Enable enables torque on all servos.
func (a *Arm) Enable(ctx context.Context) error {
	return a.group.EnableAll(ctx)
}

// Disable disables torque on all servos.
func (a *Arm) Disable(ctx context.Context) error {
	return a.group.DisableAll(ctx)
}

// ReadJoints reads the current joint angles, in radians, from all motors.
func (a *Arm) ReadJoints(ctx context.Context) (map[MotorName]float64, error) {
	rawPositions, err := a.group.Positions(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "read positions")
	}

	joints := make(map[MotorName]float64, len(rawPositions))
	for id, raw := range rawPositions {
		name, cal, ok := a.calibration.ByID(id)
		if !ok {
			continue
		}
		joints[name] = cal.Radians(raw)
	}
	return joints, nil
}

// WriteJoints writes target joint angles, in radians, to all motors.
func (a *Arm) WriteJoints(ctx context.Context, joints map[MotorName]float64) error {
	rawPositions := make(feetech.PositionMap, len(joints))
	for name, rad := range joints {
		cal, ok := a.calibration[name]
		if !ok {
			continue
		}
		rawPositions[cal.ID] = cal.Raw(rad)
	}

	if err := a.group.SetPositions(ctx, rawPositions); err != nil {
		return errors.Wrap(err, "write positions")
	}
	return nil
}
