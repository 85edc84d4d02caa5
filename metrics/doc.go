// Package metrics exposes solver statistics as prometheus collectors.
//
// A Recorder is registered once per registry and shared by every solve of a
// process. All methods are safe on a nil *Recorder, so solvers take an
// optional recorder without checking it.
package metrics
