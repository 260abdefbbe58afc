package domain

import (
	"slices"
	"strings"
)

// Joint is one bone of a skeleton. Parent is -1 for roots.
// Parents always precede their children in Skeleton.Joints.
type Joint struct {
	Name   string `json:"name" yaml:"name"`
	Parent int    `json:"parent" yaml:"parent"`
}

// Skeleton is the joint hierarchy animated by a controller.
type Skeleton struct {
	GUID     string      `json:"guid"`
	Joints   []Joint     `json:"joints"`
	BindPose []JointPose `json:"bind_pose"`
}

// NumJoints returns the number of joints.
func (s *Skeleton) NumJoints() int {
	if s == nil {
		return 0
	}
	return len(s.Joints)
}

// JointIndex returns the index of the named joint, or -1.
func (s *Skeleton) JointIndex(name string) int {
	if s == nil {
		return -1
	}
	for i, j := range s.Joints {
		if j.Name == name {
			return i
		}
	}
	return -1
}

// AllJoints returns every joint index in order.
func (s *Skeleton) AllJoints() []int {
	out := make([]int, s.NumJoints())
	for i := range out {
		out[i] = i
	}
	return out
}

// IsDescendant reports whether joint is below ancestor in the hierarchy.
func (s *Skeleton) IsDescendant(joint, ancestor int) bool {
	for p := s.Joints[joint].Parent; p >= 0; p = s.Joints[p].Parent {
		if p == ancestor {
			return true
		}
	}
	return false
}

// ResolveMask turns a mask expression into a sorted list of joint indices.
//
// Each whitespace separated term is a joint name, optionally prefixed by '-'
// (remove instead of add) and then '*' (include all descendants). Terms apply
// left to right. Unknown names are skipped and returned.
func (s *Skeleton) ResolveMask(expr string) (joints []int, unknown []string) {
	set := make(map[int]bool)

	for _, term := range strings.Fields(expr) {
		subtract := false
		children := false
		if strings.HasPrefix(term, "-") {
			subtract = true
			term = term[1:]
		}
		if strings.HasPrefix(term, "*") {
			children = true
			term = term[1:]
		}

		idx := s.JointIndex(term)
		if idx < 0 {
			unknown = append(unknown, term)
			continue
		}

		targets := []int{idx}
		if children {
			for i := idx + 1; i < len(s.Joints); i++ {
				if s.IsDescendant(i, idx) {
					targets = append(targets, i)
				}
			}
		}
		for _, t := range targets {
			if subtract {
				delete(set, t)
			} else {
				set[t] = true
			}
		}
	}

	joints = make([]int, 0, len(set))
	for j := range set {
		joints = append(joints, j)
	}
	slices.Sort(joints)
	return joints, unknown
}

// RestPose returns a copy of the bind pose, or identity poses when none is set.
func (s *Skeleton) RestPose() []JointPose {
	out := make([]JointPose, s.NumJoints())
	for i := range out {
		if i < len(s.BindPose) {
			out[i] = s.BindPose[i]
		} else {
			out[i] = IdentityPose()
		}
	}
	return out
}

// ModelSpace converts local joint poses into model space. out must have the
// same length as local.
func (s *Skeleton) ModelSpace(local, out []JointPose) {
	for i := range local {
		p := s.Joints[i].Parent
		if p < 0 {
			out[i] = local[i]
			continue
		}
		out[i] = out[p].Compose(local[i])
	}
}
