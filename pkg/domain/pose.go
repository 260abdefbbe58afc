package domain

// JointPose is the local transform of one joint relative to its parent.
type JointPose struct {
	Translation Vec3 `json:"translation"`
	Rotation    Quat `json:"rotation"`
	Scale       Vec3 `json:"scale"`
}

// IdentityPose returns a pose with no translation, no rotation and unit scale.
func IdentityPose() JointPose {
	return JointPose{
		Rotation: IdentityQuat(),
		Scale:    Vec3{1, 1, 1},
	}
}

// Lerp blends p toward o by t: linear for translation and scale, slerp for rotation.
func (p JointPose) Lerp(o JointPose, t float32) JointPose {
	return JointPose{
		Translation: p.Translation.Lerp(o.Translation, t),
		Rotation:    p.Rotation.Slerp(o.Rotation, t),
		Scale:       p.Scale.Lerp(o.Scale, t),
	}
}

// Compose returns child expressed in the space of p (p * child).
func (p JointPose) Compose(child JointPose) JointPose {
	return JointPose{
		Translation: p.Translation.Add(p.Rotation.Rotate(p.Scale.Mul(child.Translation))),
		Rotation:    p.Rotation.Mul(child.Rotation).Normalize(),
		Scale:       p.Scale.Mul(child.Scale),
	}
}

// BlendJoints blends src into dst by fraction for the listed joints.
// A nil joint list means every joint.
func BlendJoints(dst, src []JointPose, fraction float32, joints []int) {
	if fraction <= 0 {
		return
	}
	if joints == nil {
		n := min(len(dst), len(src))
		for i := 0; i < n; i++ {
			dst[i] = dst[i].Lerp(src[i], fraction)
		}
		return
	}
	for _, j := range joints {
		if j < 0 || j >= len(dst) || j >= len(src) {
			continue
		}
		dst[j] = dst[j].Lerp(src[j], fraction)
	}
}

// AdditiveBlendJoints layers src on top of dst, scaled by fraction, for the listed joints.
// src is treated as a delta from the identity pose.
func AdditiveBlendJoints(dst, src []JointPose, fraction float32, joints []int) {
	if fraction <= 0 {
		return
	}
	apply := func(j int) {
		d := &dst[j]
		s := src[j]
		d.Translation = d.Translation.Add(s.Translation.Scale(fraction))
		d.Rotation = IdentityQuat().Slerp(s.Rotation, fraction).Mul(d.Rotation).Normalize()
		d.Scale = d.Scale.Mul(Vec3{1, 1, 1}.Lerp(s.Scale, fraction))
	}
	if joints == nil {
		n := min(len(dst), len(src))
		for i := 0; i < n; i++ {
			apply(i)
		}
		return
	}
	for _, j := range joints {
		if j < 0 || j >= len(dst) || j >= len(src) {
			continue
		}
		apply(j)
	}
}
