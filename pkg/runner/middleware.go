package runner

import (
	"context"
	"fmt"
	"strings"
)

// StepInterceptor runs before each scenario step. Returning false stops the
// run before the step executes.
type StepInterceptor func(ctx context.Context, index int, step Step) (bool, error)

// MultiInterceptor chains multiple interceptors. The first refusal wins.
func MultiInterceptor(interceptors ...StepInterceptor) StepInterceptor {
	return func(ctx context.Context, index int, step Step) (bool, error) {
		for _, interceptor := range interceptors {
			ok, err := interceptor(ctx, index, step)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	}
}

// ConfirmationMiddleware asks through handler before every step. An empty
// answer or "y" continues; "n" or "q" stops the run.
func ConfirmationMiddleware(handler Handler) StepInterceptor {
	return func(ctx context.Context, index int, step Step) (bool, error) {
		if err := handler.SystemOutput(ctx, fmt.Sprintf("Next step %s. Continue? [Y/n]", step.Label(index))); err != nil {
			return false, err
		}
		input, err := handler.Input(ctx)
		if err != nil {
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(input)) {
		case "n", "no", "q", "quit":
			return false, nil
		}
		return true, nil
	}
}

// BreakpointMiddleware applies inner only to the named steps.
func BreakpointMiddleware(inner StepInterceptor, names ...string) StepInterceptor {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return func(ctx context.Context, index int, step Step) (bool, error) {
		if !set[step.Name] {
			return true, nil
		}
		return inner(ctx, index, step)
	}
}

// AutoApproveMiddleware allows every step.
func AutoApproveMiddleware() StepInterceptor {
	return func(context.Context, int, Step) (bool, error) {
		return true, nil
	}
}
