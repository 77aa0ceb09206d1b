package utils

import (
	"math"
	"testing"
)

func TestNormalizeL2(t *testing.T) {
	x := []float32{3, 4}
	NormalizeL2(x)
	if math.Abs(L2Norm(x)-1) > 1e-6 {
		t.Errorf("norm=%f, want 1", L2Norm(x))
	}
	zero := []float32{0, 0}
	NormalizeL2(zero)
	if zero[0] != 0 || zero[1] != 0 {
		t.Errorf("zero vector changed: %v", zero)
	}
}

func TestSquaredL2(t *testing.T) {
	if got := SquaredL2([]float32{1, 2}, []float32{4, 6}); got != 25 {
		t.Errorf("SquaredL2=%f, want 25", got)
	}
}

func TestSoftmax(t *testing.T) {
	t.Run("sums to one", func(t *testing.T) {
		p := Softmax([]float32{1, 2, 3})
		var sum float64
		for _, v := range p {
			sum += float64(v)
		}
		if math.Abs(sum-1) > 1e-6 {
			t.Errorf("sum=%f", sum)
		}
		if !(p[2] > p[1] && p[1] > p[0]) {
			t.Errorf("order not preserved: %v", p)
		}
	})
	t.Run("large logits stay finite", func(t *testing.T) {
		p := Softmax([]float32{1000, 1000})
		if p[0] != 0.5 || p[1] != 0.5 {
			t.Errorf("got %v, want [0.5 0.5]", p)
		}
	})
	t.Run("empty", func(t *testing.T) {
		if Softmax(nil) != nil {
			t.Error("expected nil")
		}
	})
}

func TestArgmax(t *testing.T) {
	tests := []struct {
		in   []float32
		want int
	}{
		{nil, -1},
		{[]float32{1}, 0},
		{[]float32{0.1, 0.7, 0.2}, 1},
		{[]float32{0.5, 0.5}, 0},
	}
	for _, tt := range tests {
		if got := Argmax(tt.in); got != tt.want {
			t.Errorf("Argmax(%v)=%d, want %d", tt.in, got, tt.want)
		}
	}
}
