// Package metrics exposes token refresh failures as Prometheus metrics.
//
// ExceptionCounter implements tokenmanager.FailureObserver. Each exhausted
// token refresh increments exception_counter{exception_type="token_refresh_exception"}.
//
//	reg := prometheus.NewRegistry()
//	counter, err := metrics.NewExceptionCounter(reg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	tm, err := tokenmanager.NewManager(cfg, tokenmanager.WithFailureObserver(counter))
package metrics
