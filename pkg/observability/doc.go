/*
Package observability turns animator lifecycle hooks into Prometheus metrics
and a fan-out event stream.

Both plug into an animator through domain.LifecycleHooks:

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
	stream := observability.NewStream(64)
	hooks := metrics.Hooks().Merge(stream.Hooks())
*/
package observability
