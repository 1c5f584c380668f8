package gripper

// Left finger position limits (qpos[7]); the right finger mirrors with the
// opposite sign.
const (
	MasterPositionOpen  = 0.02417
	MasterPositionClose = 0.01244
	PuppetPositionOpen  = 0.05800
	PuppetPositionClose = 0.01844
)

// Gripper joint limits (qpos[6]).
const (
	MasterJointOpen  = 0.3083
	MasterJointClose = -0.6842
	PuppetJointOpen  = 1.4910
	PuppetJointClose = -0.6213
)

// DefaultPairs returns the ALOHA calibration pairs.
func DefaultPairs() map[Key]Pair {
	return map[Key]Pair{
		{Master, Position}: {Open: MasterPositionOpen, Close: MasterPositionClose},
		{Puppet, Position}: {Open: PuppetPositionOpen, Close: PuppetPositionClose},
		{Master, Joint}:    {Open: MasterJointOpen, Close: MasterJointClose},
		{Puppet, Joint}:    {Open: PuppetJointOpen, Close: PuppetJointClose},
	}
}

var defaultCalibration = MustCalibration(DefaultPairs())

// Default returns the process-wide ALOHA calibration.
func Default() *Calibration {
	return defaultCalibration
}

func NormalizePosition(a Actor, raw float64) float64 {
	return defaultCalibration.NormalizePosition(a, raw)
}

func UnnormalizePosition(a Actor, n float64) float64 {
	return defaultCalibration.UnnormalizePosition(a, n)
}

func NormalizeJoint(a Actor, raw float64) float64 {
	return defaultCalibration.NormalizeJoint(a, raw)
}

func UnnormalizeJoint(a Actor, n float64) float64 {
	return defaultCalibration.UnnormalizeJoint(a, n)
}

func MasterToPuppetPosition(x float64) float64 {
	return defaultCalibration.MasterToPuppetPosition(x)
}

func MasterToPuppetJoint(x float64) float64 {
	return defaultCalibration.MasterToPuppetJoint(x)
}

func NormalizeVelocity(a Actor, v float64) float64 {
	return defaultCalibration.NormalizeVelocity(a, v)
}

func PositionToJoint(a Actor, x float64) float64 {
	return defaultCalibration.PositionToJoint(a, x)
}

func JointToPosition(a Actor, j float64) float64 {
	return defaultCalibration.JointToPosition(a, j)
}

func JointMidpoint(a Actor) float64 {
	return defaultCalibration.JointMidpoint(a)
}
