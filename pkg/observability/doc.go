/*
Package observability turns editor hooks into Prometheus metrics and
structured log lines.

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
	ed := sceneweaver.New(sceneweaver.WithHooks(metrics.Hooks(logger)))
*/
package observability
