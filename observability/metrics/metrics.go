package metrics

import "time"

// Collector captures lightweight instrumentation for ORM statements and HTTP requests.
type Collector interface {
	RecordQuery(table, operation string, duration time.Duration, err error)
	RecordRequest(route string, status int, duration time.Duration)
}

// NoopCollector discards all metrics.
type NoopCollector struct{}

// RecordQuery implements Collector.
func (NoopCollector) RecordQuery(string, string, time.Duration, error) {}

// RecordRequest implements Collector.
func (NoopCollector) RecordRequest(string, int, time.Duration) {}

// MultiCollector fan-outs events to multiple collectors.
type MultiCollector []Collector

// RecordQuery implements Collector.
func (mc MultiCollector) RecordQuery(table, operation string, duration time.Duration, err error) {
	for _, c := range mc {
		if c == nil {
			continue
		}
		c.RecordQuery(table, operation, duration, err)
	}
}

// RecordRequest implements Collector.
func (mc MultiCollector) RecordRequest(route string, status int, duration time.Duration) {
	for _, c := range mc {
		if c == nil {
			continue
		}
		c.RecordRequest(route, status, duration)
	}
}

// WithCollector returns a collector that fans out to all provided collectors.
func WithCollector(primary Collector, others ...Collector) Collector {
	collectors := make([]Collector, 0, 1+len(others))
	if primary != nil {
		collectors = append(collectors, primary)
	}
	for _, c := range others {
		if c != nil {
			collectors = append(collectors, c)
		}
	}
	switch len(collectors) {
	case 0:
		return NoopCollector{}
	case 1:
		return collectors[0]
	default:
		return MultiCollector(collectors)
	}
}
