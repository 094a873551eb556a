package gascurve

import (
	"math"
	"testing"
)

func TestResistanceFromRaw(t *testing.T) {
	// 18 kOhm load, raw 500 on a 10-bit converter:
	// 18 * (1023-500)/500 = 18.828 kOhm
	rs, err := ResistanceFromRaw(500, 18)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(rs-18.828) > 1e-9 {
		t.Errorf("expected 18.828 kOhm, got %v", rs)
	}
}

func TestResistanceFromRawFullScale(t *testing.T) {
	rs, err := ResistanceFromRaw(FullScale, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rs != 0 {
		t.Errorf("expected 0 kOhm at full scale, got %v", rs)
	}
}

func TestResistanceFromRawOverRange(t *testing.T) {
	// Codes above full scale saturate rather than going negative.
	rs, err := ResistanceFromRaw(FullScale+100, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rs != 0 {
		t.Errorf("expected saturation to 0 kOhm, got %v", rs)
	}
}

func TestResistanceFromRawZeroIsFault(t *testing.T) {
	if _, err := ResistanceFromRaw(0, 10); err != ErrSensorFault {
		t.Errorf("expected ErrSensorFault for raw 0, got %v", err)
	}
	if _, err := ResistanceFromRaw(-5, 10); err != ErrSensorFault {
		t.Errorf("expected ErrSensorFault for negative raw, got %v", err)
	}
}

func TestPercentageFromRatioAnchor(t *testing.T) {
	// At ratio 10^Y0 the exponent collapses to X0, so ppm = 10^X0.
	c := Curve{X0: 2.3, Y0: 0.21, Slope: -0.47}
	got := PercentageFromRatio(math.Pow(10, c.Y0), c)
	want := math.Pow(10, c.X0)
	if math.Abs(got-want)/want > 1e-9 {
		t.Errorf("expected %v ppm at anchor ratio, got %v", want, got)
	}
}

func TestPercentageFromRatioMonotonicDecreasing(t *testing.T) {
	// Negative slope: concentration must fall as the ratio rises.
	c := Curve{X0: 2.3, Y0: 0.72, Slope: -0.34}
	prev := math.Inf(1)
	for ratio := 0.05; ratio < 10; ratio += 0.05 {
		got := PercentageFromRatio(ratio, c)
		if got >= prev {
			t.Fatalf("not monotonically decreasing at ratio %v: %v >= %v", ratio, got, prev)
		}
		prev = got
	}
}

func TestPercentageFromRatioDomainErrors(t *testing.T) {
	c := Curve{X0: 2.3, Y0: 0.21, Slope: -0.47}
	if got := PercentageFromRatio(0, c); got != 0 {
		t.Errorf("expected 0 for ratio 0, got %v", got)
	}
	if got := PercentageFromRatio(-1, c); got != 0 {
		t.Errorf("expected 0 for negative ratio, got %v", got)
	}
	if got := PercentageFromRatio(1, Curve{X0: 1, Y0: 1, Slope: 0}); got != 0 {
		t.Errorf("expected 0 for zero slope, got %v", got)
	}
}

func TestCurveForUnsupportedPair(t *testing.T) {
	if _, ok := CurveFor(SensorMQ2, GasOzone); ok {
		t.Error("MQ2 does not sense ozone, expected ok=false")
	}
	if _, ok := CurveFor(SensorMQ131, GasOzone); !ok {
		t.Error("MQ131 senses ozone, expected ok=true")
	}
}

func TestConcentrationUnsupportedPairIsZero(t *testing.T) {
	if got := Concentration(500, 18, 10, SensorMQ2, GasOzone); got != 0 {
		t.Errorf("unsupported pair must contribute 0, got %v", got)
	}
}

func TestConcentrationFaultIsZero(t *testing.T) {
	if got := Concentration(0, 18, 10, SensorMQ2, GasLPG); got != 0 {
		t.Errorf("sensor fault must contribute 0, got %v", got)
	}
	if got := Concentration(500, 18, 0, SensorMQ2, GasLPG); got != 0 {
		t.Errorf("unset baseline must contribute 0, got %v", got)
	}
}

func TestGasesStableOrder(t *testing.T) {
	got := Gases(SensorMQ2)
	want := []Gas{GasLPG, GasCO, GasSmoke}
	if len(got) != len(want) {
		t.Fatalf("expected %d gases, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}
