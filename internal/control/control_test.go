package control

import (
	"math"
	"testing"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCenteredRange(t *testing.T) {
	r := CenteredRange(-10000, 10000)
	if r.Min != -10000 || r.Max != 10000 {
		t.Fatalf("CenteredRange = %v", r)
	}
	r = CenteredRange(0, 255)
	if !approx(r.Min, -127.5) || !approx(r.Max, 127.5) {
		t.Fatalf("CenteredRange(0,255) = %v", r)
	}
}

func TestRangeClamp(t *testing.T) {
	r := Range{Min: -1, Max: 2}
	tests := []struct{ in, want float64 }{
		{-5, -1}, {-1, -1}, {0.5, 0.5}, {2, 2}, {1e9, 2},
	}
	for _, tt := range tests {
		if got := r.Clamp(tt.in); got != tt.want {
			t.Errorf("Clamp(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if !r.Contains(0) || r.Contains(3) {
		t.Error("Contains wrong")
	}
}

func TestPIDProportional(t *testing.T) {
	p := NewPID(Gains{Kp: -0.5}, Range{-100, 100}, Range{-50, 50})
	if got := p.Next(10, 1); !approx(got, -5) {
		t.Fatalf("Next = %v, want -5", got)
	}
}

func TestPIDTerms(t *testing.T) {
	p := NewPID(Gains{Kp: 1, Ki: 0.5, Kd: 2}, Range{-100, 100}, Range{-100, 100})

	// integral 4, derivative 4
	if got := p.Next(4, 1); !approx(got, 4+2+8) {
		t.Fatalf("first Next = %v, want 14", got)
	}
	// integral 6, derivative -2
	if got := p.Next(2, 1); !approx(got, 2+3-4) {
		t.Fatalf("second Next = %v, want 1", got)
	}
	// dt scales integral and derivative
	// integral 6 + 2*2 = 10, derivative 0
	if got := p.Next(2, 2); !approx(got, 2+5) {
		t.Fatalf("third Next = %v, want 7", got)
	}
}

func TestPIDOutputUnclamped(t *testing.T) {
	p := NewPID(Gains{Kp: 10}, Range{-100, 100}, Range{-5, 5})
	if got := p.Next(50, 1); !approx(got, 500) {
		t.Fatalf("Next = %v, want 500 unclamped", got)
	}
}

func TestPIDErrorSaturates(t *testing.T) {
	p := NewPID(Gains{Kp: 1}, Range{-10, 10}, Range{-100, 100})
	if got := p.Next(1e6, 1); !approx(got, 10) {
		t.Fatalf("Next = %v, want 10", got)
	}
}

func TestPIDAntiWindup(t *testing.T) {
	plain := NewPID(Gains{Ki: 1}, Range{-100, 100}, Range{-20, 20})
	bounded := NewPID(Gains{Ki: 1}, Range{-100, 100}, Range{-20, 20}, WithAntiWindup())
	for i := 0; i < 10; i++ {
		plain.Next(10, 1)
		bounded.Next(10, 1)
	}
	if !approx(plain.Integral(), 100) {
		t.Errorf("plain integral = %v, want 100", plain.Integral())
	}
	if !approx(bounded.Integral(), 20) {
		t.Errorf("bounded integral = %v, want 20", bounded.Integral())
	}
}

func TestPIDReset(t *testing.T) {
	p := NewPID(Gains{Kp: 1, Ki: 1, Kd: 1}, Range{-10, 10}, Range{-10, 10})
	p.Next(5, 1)
	p.Reset()
	if got := p.Next(1, 1); !approx(got, 1+1+1) {
		t.Fatalf("Next after Reset = %v, want 3", got)
	}
}

func TestMovingAverage(t *testing.T) {
	m := NewMovingAverage(3)
	if m.Value() != 0 {
		t.Fatal("empty average should be 0")
	}
	m.Add(3)
	if !approx(m.Value(), 3) {
		t.Fatalf("Value = %v", m.Value())
	}
	m.Add(6)
	m.Add(9)
	if !approx(m.Value(), 6) {
		t.Fatalf("Value = %v, want 6", m.Value())
	}
	m.Add(12)
	if !approx(m.Value(), 9) || m.Len() != 3 {
		t.Fatalf("Value = %v Len = %d, want 9 and 3", m.Value(), m.Len())
	}
	m.Reset()
	if m.Len() != 0 || m.Value() != 0 {
		t.Fatal("Reset did not clear")
	}
}

func TestVariance(t *testing.T) {
	v := NewVariance(5)
	if v.Value() != 0 {
		t.Fatal("empty variance should be 0")
	}
	v.Add(10)
	if v.Value() != 0 {
		t.Fatal("single sample variance should be 0")
	}
	for _, x := range []float64{12, 14, 16, 18} {
		v.Add(x)
	}
	// samples 10..18 step 2: mean 14, squares 16+4+0+4+16=40, /4
	if !approx(v.Value(), 10) {
		t.Fatalf("Value = %v, want 10", v.Value())
	}
	v.Add(20)
	// window now 12..20: same spread
	if !approx(v.Value(), 10) || v.Len() != 5 {
		t.Fatalf("Value = %v Len = %d", v.Value(), v.Len())
	}
	for i := 0; i < 5; i++ {
		v.Add(7)
	}
	if v.Value() != 0 {
		t.Fatalf("constant window variance = %v", v.Value())
	}
}
