// Package source produces the ordered event feeds the dashboard consumes.
// Every variant (file replay, repository, network, live process, loopback)
// delivers the same Event values over one channel per connection, with a
// Flush event marking each renderable snapshot boundary.
package source

import "time"

// Kind tags the measurement type an event carries.
type Kind string

// Event kinds emitted by instrumented processes.
const (
	KindCPULoad          Kind = "CPULoad"
	KindYoungGC          Kind = "YoungGC"
	KindOldGC            Kind = "OldGC"
	KindHeapSummary      Kind = "HeapSummary"
	KindPhysicalMemory   Kind = "PhysicalMemory"
	KindGCConfig         Kind = "GCConfig"
	KindPauseBegin       Kind = "PauseBegin"
	KindPauseEnd         Kind = "PauseEnd"
	KindAllocationSample Kind = "AllocationSample"
	KindExecutionSample  Kind = "ExecutionSample"
	KindThreadStats      Kind = "ThreadStats"
	KindClassStats       Kind = "ClassStats"
	KindCompilation      Kind = "Compilation"
	KindHeapConfig       Kind = "HeapConfig"
	// KindFlush marks a consistent snapshot boundary safe to render.
	KindFlush Kind = "Flush"
)

// Frame is one stack frame of a sampled event. Recorded frames carry an
// encoded type/method/descriptor triple; loopback frames carry a plain
// Function name instead.
type Frame struct {
	Type       string `json:"type,omitempty"`
	Method     string `json:"method,omitempty"`
	Descriptor string `json:"descriptor,omitempty"`
	Function   string `json:"function,omitempty"`
}

// Event is one typed measurement with named values and an end timestamp.
// Timestamps are non-decreasing within a connection.
type Event struct {
	Kind   Kind               `json:"kind"`
	Time   time.Time          `json:"time"`
	Values map[string]float64 `json:"values,omitempty"`
	Labels map[string]string  `json:"labels,omitempty"`
	Stack  []Frame            `json:"stack,omitempty"`
}

// Value returns the named numeric field, or zero when absent.
func (e Event) Value(name string) float64 {
	return e.Values[name]
}

// Label returns the named string field, or "" when absent.
func (e Event) Label(name string) string {
	return e.Labels[name]
}
