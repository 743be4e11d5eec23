// Package retry executes operations under a backoff policy.
//
// Where package backoff describes a policy analytically, this package turns
// the same BackoffConfig into concrete waits: every wait is drawn uniformly
// from the jitter range of the retry it precedes.
//
// # Features
//
//   - Waits follow the exponential, linear or fixed schedule of the policy
//   - Equal and full jitter are drawn from a seedable source
//   - Context-aware cancellation between attempts
//   - Customizable retry condition and retry callback
//   - Prometheus counters and histograms per operation
//
// # Usage
//
// Execute an operation with retry:
//
//	cfg := retry.DefaultPolicy()
//	err := retry.Do(ctx, cfg, func() error {
//	    return reloadFile(path)
//	}, nil)
package retry
