/*
Package animgraph is a layered animation controller: a stack of state
machines whose states play clips or blend trees, crossfaded over time and
combined into a single skeleton pose every frame.

It separates the authored graph (Controller, shared and read-only at runtime)
from the per-instance evaluation state (Animator: parameter values, the
crossfade stack of every layer and a clock). Clips and skeletons come from
an AssetSource port, so the engine can be embedded behind any asset
pipeline: a YAML library, a game engine, or a test fixture.

# Key Features

  - Layers: override or additive, with joint masks and weights.
  - Blend trees: 1D, angular, 2D directional and barycentric, 3D barycentric, nested.
  - Transitions: parameter conditions, exit times, fixed or normalized crossfades, atomic blends.
  - Time events and lifecycle hooks for gameplay and observability.
  - A text format with a canonical writer, a validator and a Go builder (pkg/dsl).

# Usage

A project directory holds "*.anim" controller definitions and an optional
"assets.yaml" library.

	package main

	import (
		"fmt"
		"log"

		"github.com/aretw0/animgraph"
	)

	func main() {
		eng, err := animgraph.New("./characters")
		if err != nil {
			log.Fatal(err)
		}

		a, release, err := eng.NewAnimator("hero")
		if err != nil {
			log.Fatal(err)
		}
		defer release()

		_ = a.SetParameter("speed", 0.8)
		for range 60 {
			a.Update(1.0 / 60)
		}
		fmt.Println(a.CurrentState(0), a.Pose()[0].Translation)
	}
*/
package animgraph
