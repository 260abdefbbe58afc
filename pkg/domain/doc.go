/*
Package domain contains the core model of the animation graph.

It defines controllers, their layers and state machines, the blend trees
states play, and the math used to blend joint poses. The package is pure:
clip data, definitions and I/O are reached only through the interfaces in
pkg/ports.

# Key Entities

  - Controller: parameters, layers and a refcounted clip cache.
  - Layer: a state machine with its own arenas of blend trees, nodes and leaves.
  - BlendTree: weighs its children from up to three parameters (see BlendType).
  - NodeRef: a tagged, generation-checked reference to a node or a leaf.
  - Transition: a guarded crossfade between two states, keyed by state names.
*/
package domain
