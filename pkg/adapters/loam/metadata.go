package loam

// ControllerMetadata is the frontmatter of a controller document.
type ControllerMetadata struct {
	// ID overrides the name derived from the file path.
	ID          string   `json:"id" mapstructure:"id"`
	Description string   `json:"description,omitempty" mapstructure:"description"`
	Tags        []string `json:"tags,omitempty" mapstructure:"tags"`
	// Skeleton documents the skeleton guid the controller targets.
	Skeleton string `json:"skeleton,omitempty" mapstructure:"skeleton"`
}
