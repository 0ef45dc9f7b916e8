// Package metric provides Prometheus metrics for PepTrackr.
//
//   - prometheus.go: the registry, store/HTTP/RESP metrics and the /metrics handler
//   - collector.go: a scrape-time collector for the stored entry count
//
// Registry implements service.Observer so the store reports each operation
// without depending on Prometheus.
package metric
