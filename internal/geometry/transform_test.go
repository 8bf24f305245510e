package geometry

import (
	"fmt"
	"math"
	"strings"
	"testing"
)

func TestBuildTranslationTransform(t *testing.T) {
	result := BuildTranslationTransform(10.5, 20.75, 5.25)
	expected := "1 0 0 0 1 0 0 0 1 10.50 20.75 5.25"

	if result != expected {
		t.Errorf("BuildTranslationTransform() = %v, want %v", result, expected)
	}
}

func TestBuildRotationTransform_45DegreeZ(t *testing.T) {
	result := BuildRotationTransform(0, 0, 45, 0, 0, 0)
	parts := strings.Fields(result)

	if len(parts) != 12 {
		t.Fatalf("Expected 12 values, got %d", len(parts))
	}

	expectedCos45 := math.Cos(45 * math.Pi / 180)
	expectedSin45 := math.Sin(45 * math.Pi / 180)

	checks := []struct {
		idx  int
		want float64
	}{
		{0, expectedCos45},
		{1, expectedSin45},
		{3, -expectedSin45},
		{4, expectedCos45},
	}
	for _, c := range checks {
		var got float64
		if _, err := fmt.Sscanf(parts[c.idx], "%f", &got); err != nil {
			t.Fatalf("parse %q: %v", parts[c.idx], err)
		}
		if math.Abs(got-c.want) > 0.0001 {
			t.Errorf("m[%d] = %v, want ≈%v", c.idx, got, c.want)
		}
	}
}

func TestRotationMatrix_Apply(t *testing.T) {
	tests := []struct {
		name       string
		rx, ry, rz float64
		in, want   Vec3
	}{
		{"identity", 0, 0, 0, Vec3{1, 2, 3}, Vec3{1, 2, 3}},
		{"90 about z", 0, 0, math.Pi / 2, Vec3{1, 0, 0}, Vec3{0, 1, 0}},
		{"90 about x", math.Pi / 2, 0, 0, Vec3{0, 1, 0}, Vec3{0, 0, 1}},
		{"180 about y", 0, math.Pi, 0, Vec3{1, 0, 0}, Vec3{-1, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RotationMatrix(tt.rx, tt.ry, tt.rz).Apply(tt.in)
			if !got.ApproxEqual(tt.want, 1e-9) {
				t.Errorf("Apply() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMeshBaked(t *testing.T) {
	m := Box(2, 2, 2)
	m.Transform.Rotation = Vec3{0, 0, math.Pi / 2}
	m.Transform.Position = Vec3{10, 0, 0}

	baked := m.Baked()
	bbox, err := CalculateBoundingBox(baked)
	if err != nil {
		t.Fatal(err)
	}

	if !bbox.Center().ApproxEqual(Vec3{10, 0, 0}, 1e-9) {
		t.Errorf("center = %v, want (10,0,0)", bbox.Center())
	}
	if baked.Transform != IdentityTransform() {
		t.Errorf("baked transform not reset: %+v", baked.Transform)
	}
	if m.Transform.Position.X != 10 {
		t.Error("Baked mutated its receiver")
	}
}
