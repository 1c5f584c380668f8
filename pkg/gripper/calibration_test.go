package gripper

import (
	"encoding/json"
	"errors"
	"math"
	"sync"
	"testing"
)

const tolerance = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) <= tolerance*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

func TestDefaultPairs_OpenAboveClose(t *testing.T) {
	for _, a := range Actors() {
		for _, q := range []Quantity{Position, Joint} {
			p := Default().Pair(a, q)
			if p.Open <= p.Close {
				t.Errorf("%s %s: open %v <= close %v", a, q, p.Open, p.Close)
			}
		}
	}
}

func TestNormalizePosition_Boundaries(t *testing.T) {
	for _, a := range Actors() {
		p := Default().Pair(a, Position)
		if got := NormalizePosition(a, p.Close); got != 0 {
			t.Errorf("NormalizePosition(%s, close) = %v, want 0", a, got)
		}
		if got := NormalizePosition(a, p.Open); got != 1 {
			t.Errorf("NormalizePosition(%s, open) = %v, want 1", a, got)
		}
	}
}

func TestNormalizePosition_Puppet(t *testing.T) {
	tests := []struct {
		raw      float64
		expected float64
	}{
		{0.01844, 0.0},
		{0.05800, 1.0},
		{(0.05800 + 0.01844) / 2, 0.5},
		{0.01844 - (0.05800 - 0.01844), -1.0}, // extrapolates below close
		{0.05800 + (0.05800 - 0.01844), 2.0},  // and above open
	}

	for _, tt := range tests {
		got := NormalizePosition(Puppet, tt.raw)
		if !almostEqual(got, tt.expected) {
			t.Errorf("NormalizePosition(puppet, %v) = %v, want %v", tt.raw, got, tt.expected)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	inputs := []float64{-1.5, -0.6842, 0, 0.01244, 0.02, 0.05800, 0.3083, 1.491, 3}

	for _, a := range Actors() {
		for _, x := range inputs {
			if got := UnnormalizePosition(a, NormalizePosition(a, x)); !almostEqual(got, x) {
				t.Errorf("position round-trip %s: %v -> %v", a, x, got)
			}
			if got := UnnormalizeJoint(a, NormalizeJoint(a, x)); !almostEqual(got, x) {
				t.Errorf("joint round-trip %s: %v -> %v", a, x, got)
			}
			if got := JointToPosition(a, PositionToJoint(a, x)); !almostEqual(got, x) {
				t.Errorf("position->joint->position %s: %v -> %v", a, x, got)
			}
		}
	}
}

func TestJointMidpoint(t *testing.T) {
	for _, a := range Actors() {
		p := Default().Pair(a, Joint)
		mid := JointMidpoint(a)
		if mid != (p.Open+p.Close)/2 {
			t.Errorf("JointMidpoint(%s) = %v, want %v", a, mid, (p.Open+p.Close)/2)
		}
		if got := NormalizeJoint(a, mid); !almostEqual(got, 0.5) {
			t.Errorf("NormalizeJoint(%s, mid) = %v, want 0.5", a, got)
		}
	}

	if got := JointMidpoint(Master); !almostEqual(got, -0.18795) {
		t.Errorf("JointMidpoint(master) = %v, want -0.18795", got)
	}
}

func TestMasterToPuppet_Endpoints(t *testing.T) {
	if got := MasterToPuppetPosition(MasterPositionOpen); got != PuppetPositionOpen {
		t.Errorf("MasterToPuppetPosition(open) = %v, want %v", got, PuppetPositionOpen)
	}
	if got := MasterToPuppetPosition(MasterPositionClose); got != PuppetPositionClose {
		t.Errorf("MasterToPuppetPosition(close) = %v, want %v", got, PuppetPositionClose)
	}
	if got := MasterToPuppetJoint(MasterJointOpen); got != PuppetJointOpen {
		t.Errorf("MasterToPuppetJoint(open) = %v, want %v", got, PuppetJointOpen)
	}
	if got := MasterToPuppetJoint(MasterJointClose); got != PuppetJointClose {
		t.Errorf("MasterToPuppetJoint(close) = %v, want %v", got, PuppetJointClose)
	}
	if got := MasterToPuppetJoint(JointMidpoint(Master)); !almostEqual(got, JointMidpoint(Puppet)) {
		t.Errorf("MasterToPuppetJoint(mid) = %v, want %v", got, JointMidpoint(Puppet))
	}
}

func TestPositionToJoint_Endpoints(t *testing.T) {
	for _, a := range Actors() {
		pos, joint := Default().Pair(a, Position), Default().Pair(a, Joint)
		if got := PositionToJoint(a, pos.Open); got != joint.Open {
			t.Errorf("PositionToJoint(%s, open) = %v, want %v", a, got, joint.Open)
		}
		if got := PositionToJoint(a, pos.Close); got != joint.Close {
			t.Errorf("PositionToJoint(%s, close) = %v, want %v", a, got, joint.Close)
		}
	}
}

func TestNormalizeVelocity_Linear(t *testing.T) {
	for _, a := range Actors() {
		if got := NormalizeVelocity(a, 0); got != 0 {
			t.Errorf("NormalizeVelocity(%s, 0) = %v, want 0", a, got)
		}
		for _, v := range []float64{-0.3, 0.001, 0.05, 12} {
			if got, want := NormalizeVelocity(a, 2*v), 2*NormalizeVelocity(a, v); !almostEqual(got, want) {
				t.Errorf("NormalizeVelocity(%s, 2*%v) = %v, want %v", a, v, got, want)
			}
		}
	}

	span := PuppetPositionOpen - PuppetPositionClose
	if got := NormalizeVelocity(Puppet, span); !almostEqual(got, 1) {
		t.Errorf("NormalizeVelocity(puppet, span) = %v, want 1", got)
	}
}

func TestNewCalibration_Degenerate(t *testing.T) {
	pairs := DefaultPairs()
	pairs[Key{Puppet, Joint}] = Pair{Open: 0.5, Close: 0.5}

	_, err := NewCalibration(pairs)
	if !errors.Is(err, ErrDegeneratePair) {
		t.Fatalf("NewCalibration() error = %v, want ErrDegeneratePair", err)
	}
}

func TestNewCalibration_Missing(t *testing.T) {
	pairs := DefaultPairs()
	delete(pairs, Key{Master, Position})

	_, err := NewCalibration(pairs)
	if !errors.Is(err, ErrMissingPair) {
		t.Fatalf("NewCalibration() error = %v, want ErrMissingPair", err)
	}
}

func TestNewCalibration_NonFinite(t *testing.T) {
	pairs := DefaultPairs()
	pairs[Key{Master, Joint}] = Pair{Open: math.NaN(), Close: 0}

	if _, err := NewCalibration(pairs); err == nil {
		t.Fatal("NewCalibration() with NaN should fail")
	}
}

func TestMustCalibration_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustCalibration should panic on degenerate pair")
		}
	}()
	pairs := DefaultPairs()
	pairs[Key{Master, Position}] = Pair{Open: 1, Close: 1}
	MustCalibration(pairs)
}

func TestInvertedPair(t *testing.T) {
	pairs := DefaultPairs()
	pairs[Key{Master, Position}] = Pair{Open: 0.01, Close: 0.03}
	c := MustCalibration(pairs)

	if got := c.NormalizePosition(Master, 0.03); got != 0 {
		t.Errorf("NormalizePosition(close) = %v, want 0", got)
	}
	if got := c.NormalizePosition(Master, 0.01); got != 1 {
		t.Errorf("NormalizePosition(open) = %v, want 1", got)
	}
	if got := c.NormalizeVelocity(Master, 0.02); !almostEqual(got, -1) {
		t.Errorf("NormalizeVelocity() = %v, want -1", got)
	}
}

func TestParseActor(t *testing.T) {
	if a, err := ParseActor("puppet"); err != nil || a != Puppet {
		t.Errorf("ParseActor(puppet) = %v, %v", a, err)
	}
	if _, err := ParseActor("leader"); !errors.Is(err, ErrUnknownActor) {
		t.Errorf("ParseActor(leader) error = %v, want ErrUnknownActor", err)
	}
}

func TestOverrides_Apply(t *testing.T) {
	o := &Overrides{
		Puppet: &ActorPairs{Joint: &Pair{Open: 1.2, Close: -0.4}},
	}
	c, err := o.Apply(Default())
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if got := c.Pair(Puppet, Joint); got != (Pair{Open: 1.2, Close: -0.4}) {
		t.Errorf("puppet joint = %+v", got)
	}
	if got := c.Pair(Master, Joint); got != Default().Pair(Master, Joint) {
		t.Errorf("master joint changed: %+v", got)
	}
	if got := Default().Pair(Puppet, Joint); got.Open != PuppetJointOpen {
		t.Errorf("default table mutated: %+v", got)
	}

	bad := &Overrides{Master: &ActorPairs{Position: &Pair{Open: 2, Close: 2}}}
	if _, err := bad.Apply(Default()); !errors.Is(err, ErrDegeneratePair) {
		t.Errorf("Apply(degenerate) error = %v, want ErrDegeneratePair", err)
	}
}

func TestCalibration_JSONRoundTrip(t *testing.T) {
	data, err := json.Marshal(Default())
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var o Overrides
	if err := json.Unmarshal(data, &o); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	c, err := o.Apply(MustCalibration(map[Key]Pair{
		{Master, Position}: {Open: 1, Close: 0},
		{Puppet, Position}: {Open: 1, Close: 0},
		{Master, Joint}:    {Open: 1, Close: 0},
		{Puppet, Joint}:    {Open: 1, Close: 0},
	}))
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	for k, want := range DefaultPairs() {
		if got := c.Pair(k.Actor, k.Quantity); got != want {
			t.Errorf("%v = %+v, want %+v", k, got, want)
		}
	}
}

func TestConcurrentUse(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			x := float64(i) / 100
			if got := UnnormalizeJoint(Puppet, NormalizeJoint(Puppet, x)); !almostEqual(got, x) {
				t.Errorf("concurrent round-trip: %v -> %v", x, got)
			}
		}(i)
	}
	wg.Wait()
}
