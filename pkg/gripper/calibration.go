// Package gripper converts ALOHA gripper readings between positions, joint
// angles and a shared normalized scale where close is 0 and open is 1.
package gripper

import (
	"encoding/json"
	"math"

	"github.com/pkg/errors"
)

// Actor identifies which side of the teleoperation pair a reading comes from.
type Actor string

const (
	Master Actor = "master"
	Puppet Actor = "puppet"
)

// Quantity identifies what a calibration pair measures.
type Quantity string

const (
	Position Quantity = "position"
	Joint    Quantity = "joint"
)

var (
	ErrUnknownActor   = errors.New("unknown gripper actor")
	ErrMissingPair    = errors.New("missing calibration pair")
	ErrDegeneratePair = errors.New("calibration pair open equals close")
)

// Actors returns all actors in a stable order.
func Actors() []Actor {
	return []Actor{Master, Puppet}
}

// Valid reports whether a is a known actor.
func (a Actor) Valid() bool {
	return a == Master || a == Puppet
}

// ParseActor parses "master" or "puppet".
func ParseActor(s string) (Actor, error) {
	a := Actor(s)
	if !a.Valid() {
		return "", errors.Wrapf(ErrUnknownActor, "%q", s)
	}
	return a, nil
}

// Key addresses one pair in a Calibration.
type Key struct {
	Actor    Actor
	Quantity Quantity
}

// Pair holds the raw readings at the fully open and fully closed gripper.
type Pair struct {
	Open  float64 `json:"open"`
	Close float64 `json:"close"`
}

// Span returns Open - Close. It is negative when the scale is inverted.
func (p Pair) Span() float64 {
	return p.Open - p.Close
}

// Validate rejects pairs that cannot be normalized against.
func (p Pair) Validate() error {
	if math.IsNaN(p.Open) || math.IsInf(p.Open, 0) || math.IsNaN(p.Close) || math.IsInf(p.Close, 0) {
		return errors.Errorf("calibration pair has non-finite value (open=%v close=%v)", p.Open, p.Close)
	}
	if p.Open == p.Close {
		return errors.Wrapf(ErrDegeneratePair, "open=close=%v", p.Open)
	}
	return nil
}

func (p Pair) normalize(x float64) float64 {
	return (x - p.Close) / p.Span()
}

// unnormalize is n*Span()+Close written as a lerp so that n=0 and n=1 land
// exactly on Close and Open.
func (p Pair) unnormalize(n float64) float64 {
	return (1-n)*p.Close + n*p.Open
}

// Calibration is an immutable table of gripper calibration pairs.
// All methods are safe for concurrent use.
type Calibration struct {
	pairs map[Key]Pair
}

// NewCalibration builds a table from pairs. Every actor needs both a
// position and a joint pair, and no pair may be degenerate.
func NewCalibration(pairs map[Key]Pair) (*Calibration, error) {
	c := &Calibration{pairs: make(map[Key]Pair, 4)}
	for _, a := range Actors() {
		for _, q := range []Quantity{Position, Joint} {
			k := Key{Actor: a, Quantity: q}
			p, ok := pairs[k]
			if !ok {
				return nil, errors.Wrapf(ErrMissingPair, "%s %s", a, q)
			}
			if err := p.Validate(); err != nil {
				return nil, errors.Wrapf(err, "%s %s", a, q)
			}
			c.pairs[k] = p
		}
	}
	return c, nil
}

// MustCalibration is like NewCalibration but panics on error.
func MustCalibration(pairs map[Key]Pair) *Calibration {
	c, err := NewCalibration(pairs)
	if err != nil {
		panic(err)
	}
	return c
}

// Pair returns the calibration pair for actor and quantity.
func (c *Calibration) Pair(a Actor, q Quantity) Pair {
	p, ok := c.pairs[Key{Actor: a, Quantity: q}]
	if !ok {
		panic(errors.Wrapf(ErrUnknownActor, "%q", a))
	}
	return p
}

// NormalizePosition maps a raw finger position onto the normalized scale.
func (c *Calibration) NormalizePosition(a Actor, raw float64) float64 {
	return c.Pair(a, Position).normalize(raw)
}

// UnnormalizePosition is the inverse of NormalizePosition.
func (c *Calibration) UnnormalizePosition(a Actor, n float64) float64 {
	return c.Pair(a, Position).unnormalize(n)
}

// NormalizeJoint maps a raw gripper joint angle onto the normalized scale.
func (c *Calibration) NormalizeJoint(a Actor, raw float64) float64 {
	return c.Pair(a, Joint).normalize(raw)
}

// UnnormalizeJoint is the inverse of NormalizeJoint.
func (c *Calibration) UnnormalizeJoint(a Actor, n float64) float64 {
	return c.Pair(a, Joint).unnormalize(n)
}

// MasterToPuppetPosition retargets a master finger position onto the puppet.
func (c *Calibration) MasterToPuppetPosition(x float64) float64 {
	return c.UnnormalizePosition(Puppet, c.NormalizePosition(Master, x))
}

// MasterToPuppetJoint retargets a master gripper joint angle onto the puppet.
func (c *Calibration) MasterToPuppetJoint(x float64) float64 {
	return c.UnnormalizeJoint(Puppet, c.NormalizeJoint(Master, x))
}

// NormalizeVelocity scales a finger velocity by the position span.
// Velocities have no reference point, so no offset is subtracted.
func (c *Calibration) NormalizeVelocity(a Actor, v float64) float64 {
	return v / c.Pair(a, Position).Span()
}

// PositionToJoint converts a finger position to the gripper joint angle.
func (c *Calibration) PositionToJoint(a Actor, x float64) float64 {
	return c.UnnormalizeJoint(a, c.NormalizePosition(a, x))
}

// JointToPosition converts a gripper joint angle to the finger position.
func (c *Calibration) JointToPosition(a Actor, j float64) float64 {
	return c.UnnormalizePosition(a, c.NormalizeJoint(a, j))
}

// JointMidpoint returns the joint angle halfway between open and close.
func (c *Calibration) JointMidpoint(a Actor) float64 {
	p := c.Pair(a, Joint)
	return (p.Open + p.Close) / 2
}

// Overrides is the on-disk form of a Calibration. Missing entries fall back
// to the defaults.
type Overrides struct {
	Master *ActorPairs `json:"master,omitempty"`
	Puppet *ActorPairs `json:"puppet,omitempty"`
}

// ActorPairs holds the position and joint pairs for one actor.
type ActorPairs struct {
	Position *Pair `json:"position,omitempty"`
	Joint    *Pair `json:"joint,omitempty"`
}

// IsEmpty reports whether o overrides nothing.
func (o *Overrides) IsEmpty() bool {
	return o == nil || (o.Master == nil && o.Puppet == nil)
}

// Apply returns a new Calibration with o applied on top of base.
func (o *Overrides) Apply(base *Calibration) (*Calibration, error) {
	pairs := make(map[Key]Pair, len(base.pairs))
	for k, p := range base.pairs {
		pairs[k] = p
	}
	if o != nil {
		for a, ap := range map[Actor]*ActorPairs{Master: o.Master, Puppet: o.Puppet} {
			if ap == nil {
				continue
			}
			if ap.Position != nil {
				pairs[Key{Actor: a, Quantity: Position}] = *ap.Position
			}
			if ap.Joint != nil {
				pairs[Key{Actor: a, Quantity: Joint}] = *ap.Joint
			}
		}
	}
	return NewCalibration(pairs)
}

// MarshalJSON encodes the full table in Overrides form.
func (c *Calibration) MarshalJSON() ([]byte, error) {
	actor := func(a Actor) *ActorPairs {
		pos, joint := c.Pair(a, Position), c.Pair(a, Joint)
		return &ActorPairs{Position: &pos, Joint: &joint}
	}
	return json.Marshal(Overrides{Master: actor(Master), Puppet: actor(Puppet)})
}
