package domain

import "errors"

// ErrStateExists is returned when a state name is already registered in a layer.
var ErrStateExists = errors.New("state already exists")

// ErrStateNotFound is returned when a state name cannot be found in a layer.
var ErrStateNotFound = errors.New("state not found")

// ErrDuplicateTransition is returned when a transition between the same two states already exists.
var ErrDuplicateTransition = errors.New("transition already exists")

// ErrStaleRef is returned when a handle points at a slot that was freed or reused.
var ErrStaleRef = errors.New("stale reference")

// ErrInvalidRef is returned for references that were never valid (zero handles, wrong kind).
var ErrInvalidRef = errors.New("invalid reference")

// ErrTooManyChildren is returned when a blend tree is already at MaxBlendTreeChildren.
var ErrTooManyChildren = errors.New("blend tree is full")

// ErrChildIndex is returned when a blend tree child index is out of range.
var ErrChildIndex = errors.New("child index out of range")

// ErrParameterExists is returned when a parameter name is already registered.
var ErrParameterExists = errors.New("parameter already exists")

// ErrParameterNotFound is returned when a parameter name cannot be found.
var ErrParameterNotFound = errors.New("parameter not found")

// ErrLayerExists is returned when a layer name is already registered.
var ErrLayerExists = errors.New("layer already exists")

// ErrLayerNotFound is returned when a layer name or index cannot be found.
var ErrLayerNotFound = errors.New("layer not found")

// ErrTooManyLayers is returned when a controller already holds MaxLayers layers.
var ErrTooManyLayers = errors.New("too many layers")

// ErrClipNotFound is returned by clip sources for unknown guids.
var ErrClipNotFound = errors.New("clip not found")

// ErrSkeletonNotFound is returned by skeleton sources for unknown guids.
var ErrSkeletonNotFound = errors.New("skeleton not found")

// ErrDefinitionNotFound is returned by definition loaders for unknown controller names.
var ErrDefinitionNotFound = errors.New("definition not found")

// ErrBaseLayer is returned when an operation would remove or rename the base layer.
var ErrBaseLayer = errors.New("base layer cannot be removed")

// ErrSessionNotFound is returned when a session or its snapshot does not exist.
var ErrSessionNotFound = errors.New("session not found")
