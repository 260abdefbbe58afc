/*
Package dsl builds animation controllers from Go code.

A Builder records the same constructs as the text format (parameters,
layers, states, blend trees and transitions) through a fluent API, renders
them as source text and compiles that text with the regular parser. Code
built controllers therefore go through exactly the same checks as files on
disk.

	b := dsl.New("hero").Skeleton("hero").Param("speed", 0)

	base := b.Base()
	base.State("Idle").Clip("idle").Default()
	base.State("Move").Tree("locomotion", domain.Blend1D).
		Params("speed").
		Clip("walk", 0).
		Clip("run", 1)
	base.Transition("Idle", "Move").When("speed", domain.CompareGT, 0.1)
	base.Transition("Move", "Idle").When("speed", domain.CompareLE, 0.1)

	ctrl, err := b.Build(assets)
*/
package dsl
