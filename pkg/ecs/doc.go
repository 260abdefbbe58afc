// Package ecs runs animators inside a Donburi world.
//
// Each entity with the [Animator] component owns one animator. [System]
// advances them every frame, and lifecycle events are published as typed
// Donburi events carrying the entity they came from:
//
//	world := donburi.NewWorld()
//	entity, err := ecs.Spawn(world, func(hooks domain.LifecycleHooks) (*runtime.Animator, error) {
//		return engine.NewAnimator("hero", runtime.WithLifecycleHooks(hooks))
//	})
//	ecs.TimeEventType.Subscribe(world, onFootstep)
//
//	sys := ecs.NewSystem()
//	sys.Update(world, dt) // ticks and then processes queued events
//
// [Donburi]: https://github.com/yohamta/donburi
package ecs
