package hub

import "time"

// Metrics receives hub instrumentation. Implementations must be safe for
// concurrent use.
type Metrics interface {
	ConnectionOpened()
	ConnectionClosed()
	SessionAuthorized()
	// MessageHandled records one inbound message; errCode is empty on success.
	MessageHandled(opcode string, errCode string)
	PendingRegistered(kind Kind)
	PendingResolved(kind Kind, outcome Outcome, age time.Duration)
	ClusterCount(stat string, clusterID int64, count int64)
}

type nopMetrics struct{}

func (nopMetrics) ConnectionOpened()                            {}
func (nopMetrics) ConnectionClosed()                            {}
func (nopMetrics) SessionAuthorized()                           {}
func (nopMetrics) MessageHandled(string, string)                {}
func (nopMetrics) PendingRegistered(Kind)                       {}
func (nopMetrics) PendingResolved(Kind, Outcome, time.Duration) {}
func (nopMetrics) ClusterCount(string, int64, int64)            {}

// NopMetrics returns a Metrics that discards everything.
func NopMetrics() Metrics { return nopMetrics{} }
