// Package prometheus exposes engine metrics in Prometheus text
// exposition format.
package prometheus
