package memory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/animgraph/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Keyframe is the pose of one joint at Time seconds into a clip. Missing
// components default to the identity.
type Keyframe struct {
	Time        float32   `mapstructure:"time"`
	Translation []float32 `mapstructure:"translation"`
	Rotation    []float32 `mapstructure:"rotation"`
	Scale       []float32 `mapstructure:"scale"`
}

// Track animates one joint, by name, with keyframes sorted by time.
type Track struct {
	Joint string     `mapstructure:"joint"`
	Keys  []Keyframe `mapstructure:"keys"`
}

// ClipDef describes a keyframed clip over the joints of a skeleton.
type ClipDef struct {
	GUID     string  `mapstructure:"guid"`
	Skeleton string  `mapstructure:"skeleton"`
	Length   float32 `mapstructure:"length"`
	Tracks   []Track `mapstructure:"tracks"`
}

// SkeletonDef describes a skeleton in an asset file.
type SkeletonDef struct {
	GUID   string         `mapstructure:"guid"`
	Joints []domain.Joint `mapstructure:"joints"`
}

type libraryFile struct {
	Skeletons []SkeletonDef `mapstructure:"skeletons"`
	Clips     []ClipDef     `mapstructure:"clips"`
}

type key struct {
	time float32
	pose domain.JointPose
}

type track struct {
	joint int
	keys  []key
}

type clip struct {
	guid   string
	length float32
	tracks []track
}

// Library is an in-memory ports.AssetSource of skeletons and keyframed
// clips. Safe for concurrent use.
type Library struct {
	mu        sync.RWMutex
	skeletons map[string]*domain.Skeleton
	clips     []*clip
	byGUID    map[string]int
}

// NewLibrary creates an empty library.
func NewLibrary() *Library {
	return &Library{
		skeletons: make(map[string]*domain.Skeleton),
		byGUID:    make(map[string]int),
	}
}

// LoadLibraryYAML builds a library from a YAML document with top-level
// "skeletons" and "clips" lists.
func LoadLibraryYAML(data []byte) (*Library, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse asset yaml: %w", err)
	}

	var file libraryFile
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &file,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("failed to decode assets: %w", err)
	}

	lib := NewLibrary()
	for _, s := range file.Skeletons {
		lib.AddSkeleton(&domain.Skeleton{GUID: s.GUID, Joints: s.Joints})
	}
	for _, c := range file.Clips {
		if _, err := lib.AddClip(c); err != nil {
			return nil, err
		}
	}
	return lib, nil
}

// AddSkeleton registers or replaces a skeleton.
func (l *Library) AddSkeleton(s *domain.Skeleton) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.skeletons[s.GUID] = s
}

// AddClip registers a clip, resolving track joints against its skeleton.
// Re-adding a guid replaces the clip in place, keeping its handle.
func (l *Library) AddClip(def ClipDef) (domain.ClipHandle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if def.GUID == "" {
		return domain.ClipHandle{}, fmt.Errorf("clip missing guid")
	}
	c := &clip{guid: def.GUID, length: def.Length}

	if len(def.Tracks) > 0 {
		skel, ok := l.skeletons[def.Skeleton]
		if !ok {
			return domain.ClipHandle{}, fmt.Errorf("clip %s: %w: %q", def.GUID, domain.ErrSkeletonNotFound, def.Skeleton)
		}
		for _, tr := range def.Tracks {
			j := skel.JointIndex(tr.Joint)
			if j < 0 {
				return domain.ClipHandle{}, fmt.Errorf("clip %s: unknown joint %q", def.GUID, tr.Joint)
			}
			t, err := buildTrack(j, tr.Keys)
			if err != nil {
				return domain.ClipHandle{}, fmt.Errorf("clip %s joint %s: %w", def.GUID, tr.Joint, err)
			}
			c.tracks = append(c.tracks, t)
		}
	}

	if i, ok := l.byGUID[def.GUID]; ok {
		l.clips[i] = c
		return domain.NewClipHandle(def.GUID, i), nil
	}
	l.clips = append(l.clips, c)
	l.byGUID[def.GUID] = len(l.clips) - 1
	return domain.NewClipHandle(def.GUID, len(l.clips)-1), nil
}

func buildTrack(joint int, keys []Keyframe) (track, error) {
	t := track{joint: joint}
	for _, k := range keys {
		pose := domain.IdentityPose()
		if k.Translation != nil {
			if len(k.Translation) != 3 {
				return t, fmt.Errorf("translation needs 3 components, got %d", len(k.Translation))
			}
			pose.Translation = domain.Vec3(k.Translation)
		}
		if k.Rotation != nil {
			if len(k.Rotation) != 4 {
				return t, fmt.Errorf("rotation needs 4 components, got %d", len(k.Rotation))
			}
			pose.Rotation = domain.Quat(k.Rotation).Normalize()
		}
		if k.Scale != nil {
			if len(k.Scale) != 3 {
				return t, fmt.Errorf("scale needs 3 components, got %d", len(k.Scale))
			}
			pose.Scale = domain.Vec3(k.Scale)
		}
		t.keys = append(t.keys, key{time: k.Time, pose: pose})
	}
	sort.SliceStable(t.keys, func(a, b int) bool { return t.keys[a].time < t.keys[b].time })
	return t, nil
}

func (l *Library) get(h domain.ClipHandle) *clip {
	i := h.Index()
	if i < 0 || i >= len(l.clips) || l.clips[i].guid != h.GUID {
		return nil
	}
	return l.clips[i]
}

// LoadClip resolves a clip guid.
func (l *Library) LoadClip(guid string) (domain.ClipHandle, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	i, ok := l.byGUID[guid]
	if !ok {
		return domain.ClipHandle{}, fmt.Errorf("%w: %s", domain.ErrClipNotFound, guid)
	}
	return domain.NewClipHandle(guid, i), nil
}

// LoadSkeleton returns a registered skeleton.
func (l *Library) LoadSkeleton(guid string) (*domain.Skeleton, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	s, ok := l.skeletons[guid]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSkeletonNotFound, guid)
	}
	return s, nil
}

// ClipLength returns the clip length in seconds.
func (l *Library) ClipLength(h domain.ClipHandle) float32 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if c := l.get(h); c != nil {
		return c.length
	}
	return 0
}

// SampleClip writes the animated joints at normalized time t into out.
// Joints without a track are left unchanged.
func (l *Library) SampleClip(h domain.ClipHandle, t float32, out []domain.JointPose) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	c := l.get(h)
	if c == nil {
		return fmt.Errorf("%w: %s", domain.ErrClipNotFound, h.GUID)
	}
	at := t * c.length
	for _, tr := range c.tracks {
		if tr.joint < len(out) && len(tr.keys) > 0 {
			out[tr.joint] = tr.sample(at)
		}
	}
	return nil
}

// Clips returns every clip guid in registration order.
func (l *Library) Clips() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]string, len(l.clips))
	for i, c := range l.clips {
		out[i] = c.guid
	}
	return out
}

// sample interpolates between the keys bracketing at, holding the end
// keys outside their range.
func (t track) sample(at float32) domain.JointPose {
	i := sort.Search(len(t.keys), func(i int) bool { return t.keys[i].time > at })
	switch {
	case i == 0:
		return t.keys[0].pose
	case i == len(t.keys):
		return t.keys[i-1].pose
	}
	a, b := t.keys[i-1], t.keys[i]
	span := b.time - a.time
	if span <= 0 {
		return b.pose
	}
	return a.pose.Lerp(b.pose, (at-a.time)/span)
}
