package mathutil

import (
	"math"
	"testing"
)

func TestRound(t *testing.T) {
	tests := []struct {
		name     string
		input    float64
		expected float64
	}{
		{"Round up at midpoint", 1.235, 1.24},
		{"Round down below midpoint", 1.234, 1.23},
		{"No rounding needed", 1.23, 1.23},
		{"Large number", 12345.678, 12345.68},
		{"Negative number round up", -1.235, -1.24},
		{"Negative number round down", -1.234, -1.23},
		{"Zero", 0.0, 0.0},
		{"Very small positive", 0.001, 0.00},
		{"Very small negative", -0.001, 0.00},
		{"Exactly one cent", 0.01, 0.01},
		{"Nearly two cents", 0.019, 0.02},
		{"Stored below midpoint", 1.005, 1.00},
		{"Stored below midpoint 2.675", 2.675, 2.67},
		{"Exact binary midpoint", 0.125, 0.13},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Round(tt.input)
			if math.Abs(result-tt.expected) > 0.001 {
				t.Errorf("Round(%v) = %v, expected %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestFixedString(t *testing.T) {
	tests := map[float64]string{
		10540:          "10540.00",
		9405:           "9405.00",
		0.1 + 0.2:      "0.30",
		-12.345:        "-12.35",
		11109.16000001: "11109.16",
		1.005:          "1.00",
		2.675:          "2.67",
		0.125:          "0.13",
		-0.125:         "-0.13",
	}

	for input, expected := range tests {
		if got := FixedString(input); got != expected {
			t.Errorf("FixedString(%v) = %q, expected %q", input, got, expected)
		}
	}
}

func TestDisplayString(t *testing.T) {
	tests := map[float64]string{
		1.005:     "1.01",
		2.675:     "2.68",
		13007.78:  "13007.78",
		-2500.456: "-2500.46",
	}

	for input, expected := range tests {
		if got := DisplayString(input); got != expected {
			t.Errorf("DisplayString(%v) = %q, expected %q", input, got, expected)
		}
	}
}

func TestExact(t *testing.T) {
	if got := Exact(1.005).String(); got != "1.00499999999999989341858963598497211933135986328125" {
		t.Errorf("Exact(1.005) = %s", got)
	}
	if got := Exact(0.125).String(); got != "0.125" {
		t.Errorf("Exact(0.125) = %s", got)
	}
	if got := Exact(-4096).String(); got != "-4096" {
		t.Errorf("Exact(-4096) = %s", got)
	}
	if !Exact(math.NaN()).IsZero() {
		t.Error("expected NaN to map to zero")
	}
}

func TestIsFinite(t *testing.T) {
	if !IsFinite(1.5) {
		t.Error("expected 1.5 to be finite")
	}
	if IsFinite(math.NaN()) {
		t.Error("expected NaN to be non-finite")
	}
	if IsFinite(math.Inf(-1)) {
		t.Error("expected -Inf to be non-finite")
	}
}

func TestIsZero(t *testing.T) {
	tests := []struct {
		name     string
		input    float64
		expected bool
	}{
		{"Exactly zero", 0.0, true},
		{"Very small positive", 0.001, true},
		{"Very small negative", -0.001, true},
		{"Just above tolerance", 0.02, false},
		{"Exactly tolerance", 0.01, true},
		{"Large negative", -100.0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := IsZero(tt.input); result != tt.expected {
				t.Errorf("IsZero(%v) = %v, expected %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestWithinTolerance(t *testing.T) {
	if !WithinTolerance(100.0, 100.005, 0.01) {
		t.Error("expected values within tolerance")
	}
	if WithinTolerance(100.0, 100.5, 0.01) {
		t.Error("expected values outside tolerance")
	}
}

func TestPercentToDecimal(t *testing.T) {
	tests := map[float64]float64{
		15:  0.15,
		100: 1,
		0:   0,
		-5:  -0.05,
	}
	for input, expected := range tests {
		if got := PercentToDecimal(input); math.Abs(got-expected) > 1e-12 {
			t.Errorf("PercentToDecimal(%v) = %v, expected %v", input, got, expected)
		}
	}
}

func TestCalculatePercentage(t *testing.T) {
	if got := CalculatePercentage(540, 10000); math.Abs(got-5.4) > 1e-9 {
		t.Errorf("CalculatePercentage(540, 10000) = %v, expected 5.4", got)
	}
	if got := CalculatePercentage(5, 0); got != 0 {
		t.Errorf("CalculatePercentage with zero total = %v, expected 0", got)
	}
}
