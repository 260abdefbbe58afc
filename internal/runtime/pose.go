package runtime

import "github.com/aretw0/animgraph/pkg/domain"

// Pose returns the local joint poses computed by the last update. The slice
// is owned by the animator and overwritten on the next update. It is empty
// when the controller has no skeleton.
func (a *Animator) Pose() []domain.JointPose {
	return a.pose
}

// ModelPose returns the current pose in model space, with the controller's
// root offset added to joint 0. The slice is owned by the animator.
func (a *Animator) ModelPose() []domain.JointPose {
	if len(a.pose) == 0 {
		return nil
	}
	copy(a.rooted, a.pose)
	a.rooted[0].Translation = a.rooted[0].Translation.Add(a.ctrl.RootOffset)
	a.ctrl.Skeleton.ModelSpace(a.rooted, a.model)
	return a.model
}

// computePose blends the base layer over the bind pose, then composites
// every other layer on top through its mask.
func (a *Animator) computePose() {
	if len(a.pose) == 0 {
		return
	}
	copy(a.pose, a.rest)

	for li, l := range a.ctrl.Layers() {
		dst := a.pose
		if li > 0 {
			dst = a.scratch
			copy(dst, a.rest)
		}

		sum := a.blendStack(l, &a.stacks[li], dst)
		if li == 0 || sum <= 0 {
			continue
		}

		w := sum * l.Weight
		switch l.Blending {
		case domain.BlendAdditive:
			domain.AdditiveBlendJoints(a.pose, a.scratch, w, l.MaskJoints)
		default:
			domain.BlendJoints(a.pose, a.scratch, min(w, 1), l.MaskJoints)
		}
	}
}

// blendStack accumulates the blenders of one layer into dst, most recent
// first, until their weights reach one. It returns the accumulated weight.
func (a *Animator) blendStack(l *domain.Layer, st *stack, dst []domain.JointPose) float32 {
	var sum float32
	for i := range st {
		b := &st[i]
		if b.empty() || b.weight <= 0 {
			continue
		}
		a.sampleState(l, b, a.sample)
		sum += b.weight
		domain.BlendJoints(dst, a.sample, b.weight/sum, l.MaskJoints)
		if sum >= 1 {
			break
		}
	}
	return sum
}

// sampleState writes the pose of b's state at its current time into out,
// mixing the clips of a blend tree by their leaf weights.
func (a *Animator) sampleState(l *domain.Layer, b *blender, out []domain.JointPose) {
	copy(out, a.rest)
	if a.clips == nil {
		return
	}

	t := wrap01(b.normalizedTime(a.clock))
	var acc float32
	for _, lw := range l.StateLeaves(b.state, a.params, nil) {
		if acc == 0 {
			if err := a.clips.SampleClip(lw.Clip, t, out); err != nil {
				a.sampleFailed(lw.Clip, err)
				copy(out, a.rest)
				continue
			}
			acc = lw.Weight
			continue
		}

		copy(a.leaf, a.rest)
		if err := a.clips.SampleClip(lw.Clip, t, a.leaf); err != nil {
			a.sampleFailed(lw.Clip, err)
			continue
		}
		acc += lw.Weight
		domain.BlendJoints(out, a.leaf, lw.Weight/acc, nil)
	}
}

func (a *Animator) sampleFailed(clip domain.ClipHandle, err error) {
	a.logger.Debug("sample failed", "controller", a.ctrl.Name, "clip", clip.GUID, "error", err)
}
