package ports

import "github.com/aretw0/animgraph/pkg/domain"

// ClipSource resolves and samples animation clips. Implementations must be
// safe for concurrent reads, since animators sharing a controller sample in parallel.
type ClipSource interface {
	// LoadClip resolves a guid. Unknown guids return domain.ErrClipNotFound.
	LoadClip(guid string) (domain.ClipHandle, error)

	// ClipLength returns the clip duration in seconds, or 0 for invalid handles.
	ClipLength(clip domain.ClipHandle) float32

	// SampleClip writes the local joint poses at normalized time t into out.
	SampleClip(clip domain.ClipHandle, t float32, out []domain.JointPose) error
}

// SkeletonSource provides skeletons by guid.
type SkeletonSource interface {
	// LoadSkeleton returns domain.ErrSkeletonNotFound for unknown guids.
	LoadSkeleton(guid string) (*domain.Skeleton, error)
}

// AssetSource combines clip and skeleton access.
type AssetSource interface {
	ClipSource
	SkeletonSource
}
