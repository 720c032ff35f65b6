package credVault

import (
	"sync/atomic"
	"time"
)

// MetricID defines a public type used by credVault APIs.
//
// MetricID instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricID uint16

const (
	// MetricRegisterSuccess is an exported constant or variable used by the credential engine.
	MetricRegisterSuccess MetricID = iota
	// MetricRegisterConflict is an exported constant or variable used by the credential engine.
	MetricRegisterConflict
	// MetricRegisterRateLimited is an exported constant or variable used by the credential engine.
	MetricRegisterRateLimited
	// MetricLoginSuccess is an exported constant or variable used by the credential engine.
	MetricLoginSuccess
	// MetricLoginFailure is an exported constant or variable used by the credential engine.
	MetricLoginFailure
	// MetricLoginRateLimited is an exported constant or variable used by the credential engine.
	MetricLoginRateLimited
	// MetricAuthenticateSuccess is an exported constant or variable used by the credential engine.
	MetricAuthenticateSuccess
	// MetricAuthenticateFailure is an exported constant or variable used by the credential engine.
	MetricAuthenticateFailure
	// MetricAccessExpired is an exported constant or variable used by the credential engine.
	MetricAccessExpired
	// MetricTokenScrub is an exported constant or variable used by the credential engine.
	MetricTokenScrub
	// MetricRefreshSuccess is an exported constant or variable used by the credential engine.
	MetricRefreshSuccess
	// MetricRefreshFailure is an exported constant or variable used by the credential engine.
	MetricRefreshFailure
	// MetricRefreshExpired is an exported constant or variable used by the credential engine.
	MetricRefreshExpired
	// MetricRefreshRateLimited is an exported constant or variable used by the credential engine.
	MetricRefreshRateLimited
	// MetricSessionCreated is an exported constant or variable used by the credential engine.
	MetricSessionCreated
	// MetricSessionInvalidated is an exported constant or variable used by the credential engine.
	MetricSessionInvalidated
	// MetricLogout is an exported constant or variable used by the credential engine.
	MetricLogout
	// MetricLogoutAll is an exported constant or variable used by the credential engine.
	MetricLogoutAll
	// MetricVerifySuccess is an exported constant or variable used by the credential engine.
	MetricVerifySuccess
	// MetricVerifyFailure is an exported constant or variable used by the credential engine.
	MetricVerifyFailure
	// MetricResetRequest is an exported constant or variable used by the credential engine.
	MetricResetRequest
	// MetricResetSuccess is an exported constant or variable used by the credential engine.
	MetricResetSuccess
	// MetricResetFailure is an exported constant or variable used by the credential engine.
	MetricResetFailure
	// MetricPasswordChangeSuccess is an exported constant or variable used by the credential engine.
	MetricPasswordChangeSuccess
	// MetricPasswordChangeFailure is an exported constant or variable used by the credential engine.
	MetricPasswordChangeFailure
	// MetricAuthenticateLatency is an exported constant or variable used by the credential engine.
	MetricAuthenticateLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics defines a public type used by credVault APIs.
//
// Metrics instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot defines a public type used by credVault APIs.
//
// MetricsSnapshot instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics describes the newmetrics operation and its observable behavior.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled describes the enabled operation and its observable behavior.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled describes the latencyenabled operation and its observable behavior.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc describes the inc operation and its observable behavior.
//
// Inc is safe for concurrent use; counters are cache-line padded to avoid
// false sharing on hot paths.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe describes the observe operation and its observable behavior.
//
// Observe records a latency sample. Only [MetricAuthenticateLatency] has a
// histogram; other ids are ignored.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricAuthenticateLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value describes the value operation and its observable behavior.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot describes the snapshot operation and its observable behavior.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricAuthenticateLatency].buckets[i])
		}
		s.Histograms[MetricAuthenticateLatency] = buckets
	}

	return s
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
