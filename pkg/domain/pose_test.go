package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBlendJoints_RestrictedToMask(t *testing.T) {
	dst := []JointPose{IdentityPose(), IdentityPose()}
	src := []JointPose{IdentityPose(), IdentityPose()}
	src[0].Translation = Vec3{2, 0, 0}
	src[1].Translation = Vec3{0, 4, 0}

	BlendJoints(dst, src, 0.5, []int{1})

	assert.Equal(t, Vec3{}, dst[0].Translation)
	assert.InDeltaSlice(t, []float32{0, 2, 0}, dst[1].Translation[:], 1e-6)
}

func TestAdditiveBlendJoints(t *testing.T) {
	dst := []JointPose{IdentityPose()}
	dst[0].Translation = Vec3{1, 1, 1}
	delta := []JointPose{IdentityPose()}
	delta[0].Translation = Vec3{0, 2, 0}
	delta[0].Rotation = QuatFromAxisAngle(Vec3{0, 0, 1}, 90)
	delta[0].Scale = Vec3{2, 2, 2}

	AdditiveBlendJoints(dst, delta, 0.5, nil)

	assert.InDeltaSlice(t, []float32{1, 2, 1}, dst[0].Translation[:], 1e-6)
	assert.InDeltaSlice(t, []float32{1.5, 1.5, 1.5}, dst[0].Scale[:], 1e-6)
	want := QuatFromAxisAngle(Vec3{0, 0, 1}, 45)
	assert.InDeltaSlice(t, want[:], dst[0].Rotation[:], 1e-5)
}

func TestSkeleton_ResolveMask(t *testing.T) {
	s := &Skeleton{Joints: []Joint{
		{"root", -1},
		{"spine", 0},
		{"arm_l", 1},
		{"hand_l", 2},
		{"arm_r", 1},
		{"leg", 0},
	}}

	tests := []struct {
		expr    string
		want    []int
		unknown []string
	}{
		{"spine", []int{1}, nil},
		{"*spine", []int{1, 2, 3, 4}, nil},
		{"*spine -*arm_l", []int{1, 4}, nil},
		{"*root -leg tail", []int{0, 1, 2, 3, 4}, []string{"tail"}},
		{"leg leg", []int{5}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, unknown := s.ResolveMask(tt.expr)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.unknown, unknown)
		})
	}
}

func TestSkeleton_ModelSpace(t *testing.T) {
	s := &Skeleton{Joints: []Joint{{"root", -1}, {"child", 0}}}
	local := s.RestPose()
	local[0].Translation = Vec3{1, 0, 0}
	local[0].Rotation = QuatFromAxisAngle(Vec3{0, 0, 1}, 90)
	local[1].Translation = Vec3{1, 0, 0}

	out := make([]JointPose, 2)
	s.ModelSpace(local, out)

	assert.InDeltaSlice(t, []float32{1, 1, 0}, out[1].Translation[:], 1e-5)
}

func TestAngleDelta(t *testing.T) {
	assert.InDelta(t, 20, AngleDelta(350, 10), 1e-4)
	assert.InDelta(t, -20, AngleDelta(10, 350), 1e-4)
	assert.InDelta(t, 180, AngleDelta(0, 180), 1e-4)
}
