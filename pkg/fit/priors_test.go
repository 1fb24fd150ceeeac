package fit

import (
	"math"
	"testing"
)

func TestGaussianLogPDF(t *testing.T) {
	g, err := NewGaussian(0.5, 0.1)
	if err != nil {
		t.Fatalf("NewGaussian: %v", err)
	}
	atMean := g.LogPDF(0.5)
	want := -math.Log(0.1 * math.Sqrt(2*math.Pi))
	if math.Abs(atMean-want) > 1e-12 {
		t.Fatalf("LogPDF at mean: got %v, want %v", atMean, want)
	}
	if g.LogPDF(0.6) >= atMean {
		t.Fatalf("density must fall away from the mean")
	}
	if g.Mean() != 0.5 {
		t.Fatalf("unexpected mean %v", g.Mean())
	}
	if _, err := NewGaussian(0, -1); err == nil {
		t.Fatalf("expected rejection of non-positive sigma")
	}
}

func TestUniformLogPDF(t *testing.T) {
	u, err := NewUniform(0.2, 0.7)
	if err != nil {
		t.Fatalf("NewUniform: %v", err)
	}
	inside := u.LogPDF(0.5)
	if math.Abs(inside-(-math.Log(0.5))) > 1e-12 {
		t.Fatalf("LogPDF inside support: got %v", inside)
	}
	if !math.IsInf(u.LogPDF(0.1), -1) || !math.IsInf(u.LogPDF(0.8), -1) {
		t.Fatalf("expected -Inf outside support")
	}
	if math.Abs(u.Mean()-0.45) > 1e-12 {
		t.Fatalf("unexpected mean %v", u.Mean())
	}
	if _, err := NewUniform(1, 1); err == nil {
		t.Fatalf("expected rejection of empty support")
	}
}

func TestLogTransformationRoundTrip(t *testing.T) {
	tr := LogTransformation{}
	x := 0.0123
	if got := tr.ToModel(tr.ToSearch(x)); math.Abs(got-x) > 1e-15 {
		t.Fatalf("round trip drifted: %v", got)
	}
	id := IdentityTransformation{}
	if id.ToSearch(3.5) != 3.5 || id.ToModel(3.5) != 3.5 {
		t.Fatalf("identity must pass values through")
	}
}
