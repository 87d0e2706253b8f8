package handler

import (
	"sync"
	"sync/atomic"
)

// Metrics provides numbers about the usage of the handler. Since these may
// be accessed from multiple goroutines, it is necessary to read and modify
// them atomically using the functions exposed in the sync/atomic package,
// such as atomic.LoadUint64. In addition the maps must not be modified to
// prevent data races.
type Metrics struct {
	// RequestsTotal counts the number of incoming requests per method.
	RequestsTotal map[string]*uint64
	// ErrorsTotal counts the number of returned errors by code and status.
	ErrorsTotal *ErrorsTotalMap
	// BytesSent counts the resource bytes written to clients.
	BytesSent *uint64
	// TransfersStarted counts admitted transfers that began streaming.
	TransfersStarted *uint64
	// TransfersCompleted counts transfers that delivered their full interval.
	TransfersCompleted *uint64
	// TransfersAborted counts transfers ended by disconnect, timeout or
	// read failure.
	TransfersAborted *uint64
	// TransfersRejected counts requests refused by admission control.
	TransfersRejected *uint64
}

// incRequestsTotal increases the counter for this request method atomically
// by one. The method must be one of GET, HEAD.
func (m Metrics) incRequestsTotal(method string) {
	if ptr, ok := m.RequestsTotal[method]; ok {
		atomic.AddUint64(ptr, 1)
	}
}

// incErrorsTotal increases the counter for this error atomically by one.
func (m Metrics) incErrorsTotal(err Error) {
	ptr := m.ErrorsTotal.retrievePointerFor(err)
	atomic.AddUint64(ptr, 1)
}

// incBytesSent increases the number of sent bytes atomically by the
// specified number.
func (m Metrics) incBytesSent(delta uint64) {
	atomic.AddUint64(m.BytesSent, delta)
}

func (m Metrics) incTransfersStarted() {
	atomic.AddUint64(m.TransfersStarted, 1)
}

func (m Metrics) incTransfersCompleted() {
	atomic.AddUint64(m.TransfersCompleted, 1)
}

func (m Metrics) incTransfersAborted() {
	atomic.AddUint64(m.TransfersAborted, 1)
}

func (m Metrics) incTransfersRejected() {
	atomic.AddUint64(m.TransfersRejected, 1)
}

func newMetrics() Metrics {
	return Metrics{
		RequestsTotal: map[string]*uint64{
			"GET":  new(uint64),
			"HEAD": new(uint64),
		},
		ErrorsTotal:        newErrorsTotalMap(),
		BytesSent:          new(uint64),
		TransfersStarted:   new(uint64),
		TransfersCompleted: new(uint64),
		TransfersAborted:   new(uint64),
		TransfersRejected:  new(uint64),
	}
}

// ErrorsTotalMap stores the counters for the different response errors.
type ErrorsTotalMap struct {
	lock sync.RWMutex
	m    map[errorDimensions]*uint64
}

type errorDimensions struct {
	Code   string
	Status int
}

func newErrorsTotalMap() *ErrorsTotalMap {
	return &ErrorsTotalMap{
		m: make(map[errorDimensions]*uint64, 10),
	}
}

// retrievePointerFor returns (after creating it if necessary) the pointer to
// the counter for the error.
func (e *ErrorsTotalMap) retrievePointerFor(err Error) *uint64 {
	dims := errorDimensions{
		Code:   err.ErrorCode,
		Status: err.HTTPResponse.StatusCode,
	}

	e.lock.RLock()
	ptr, ok := e.m[dims]
	e.lock.RUnlock()
	if ok {
		return ptr
	}

	// For pointer creation, a write lock is required.
	e.lock.Lock()
	if ptr, ok = e.m[dims]; !ok {
		ptr = new(uint64)
		e.m[dims] = ptr
	}
	e.lock.Unlock()
	return ptr
}

// Load retrieves the map of the counter pointers atomically.
func (e *ErrorsTotalMap) Load() map[errorDimensions]*uint64 {
	e.lock.RLock()
	m := make(map[errorDimensions]*uint64, len(e.m))
	for dims, ptr := range e.m {
		m[dims] = ptr
	}
	e.lock.RUnlock()
	return m
}
