/*
Package runner plays scripted scenarios against an animator and reports a
frame-by-frame trace.

A scenario is a YAML document naming a controller and a list of steps. Each
step may set parameters, reset the animator, force a transition, advance the
clock and check expectations, in that order:

	controller: hero
	dt: 0.1
	steps:
	  - name: start running
	    set: {speed: 1}
	    tick: 3
	    expect:
	      states: {Base Layer: Move}
	  - transit: {layer: upper, state: Wave, duration: 0.2}
	    tick: 2
	    expect:
	      events: [footstep]

The trace goes to a Handler: TextHandler for terminals, JSONHandler for
JSON-Lines consumers.

	r := runner.NewRunner(runner.WithHandler(runner.NewTextHandler(os.Stdin, os.Stdout)))
	res, err := r.Run(ctx, ctrl, assets, scenario)
*/
package runner
