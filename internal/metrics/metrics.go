package metrics

import (
	"sync/atomic"
)

// Metrics tracks operational metrics.
type Metrics struct {
	LoginsSucceeded    uint64 `json:"logins_succeeded"`
	LoginsFailed       uint64 `json:"logins_failed"`
	Logouts            uint64 `json:"logouts"`
	RepositoryFetches  uint64 `json:"repository_fetches"`
	PullRequestFetches uint64 `json:"pull_request_fetches"`
	FetchFailures      uint64 `json:"fetch_failures"`
}

var global = &Metrics{}

// LoginSucceeded increments the count of accepted logins.
func LoginSucceeded() { atomic.AddUint64(&global.LoginsSucceeded, 1) }

// LoginFailed increments the count of rejected logins.
func LoginFailed() { atomic.AddUint64(&global.LoginsFailed, 1) }

// LoggedOut increments the count of logouts.
func LoggedOut() { atomic.AddUint64(&global.Logouts, 1) }

// RepositoryFetched increments the count of repository fetches started.
func RepositoryFetched() { atomic.AddUint64(&global.RepositoryFetches, 1) }

// PullRequestsFetched increments the count of pull request fetches started.
func PullRequestsFetched() { atomic.AddUint64(&global.PullRequestFetches, 1) }

// FetchFailed increments the count of fetches that ended in an error.
func FetchFailed() { atomic.AddUint64(&global.FetchFailures, 1) }

// Get returns a snapshot of the current metrics.
func Get() Metrics {
	return Metrics{
		LoginsSucceeded:    atomic.LoadUint64(&global.LoginsSucceeded),
		LoginsFailed:       atomic.LoadUint64(&global.LoginsFailed),
		Logouts:            atomic.LoadUint64(&global.Logouts),
		RepositoryFetches:  atomic.LoadUint64(&global.RepositoryFetches),
		PullRequestFetches: atomic.LoadUint64(&global.PullRequestFetches),
		FetchFailures:      atomic.LoadUint64(&global.FetchFailures),
	}
}

// Reset resets all metrics to zero (useful for testing).
func Reset() {
	atomic.StoreUint64(&global.LoginsSucceeded, 0)
	atomic.StoreUint64(&global.LoginsFailed, 0)
	atomic.StoreUint64(&global.Logouts, 0)
	atomic.StoreUint64(&global.RepositoryFetches, 0)
	atomic.StoreUint64(&global.PullRequestFetches, 0)
	atomic.StoreUint64(&global.FetchFailures, 0)
}
