package opsmetrics

// Recorder is the engine-facing surface of the ops metrics pipeline. A nil
// Recorder is valid and records nothing, so callers never have to guard.
type Recorder struct {
	metrics *engineMetrics
}

func (r *Recorder) IncGeneration(outcome string) {
	if r == nil || r.metrics == nil {
		return
	}
	r.metrics.generations.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (r *Recorder) IncTransition(to string) {
	if r == nil || r.metrics == nil {
		return
	}
	r.metrics.transitions.WithLabelValues(normalizeLabel(to)).Inc()
}

func (r *Recorder) IncSent(channel string) {
	if r == nil || r.metrics == nil {
		return
	}
	r.metrics.sent.WithLabelValues(normalizeLabel(channel)).Inc()
}

func (r *Recorder) IncEngineError(operation string) {
	if r == nil || r.metrics == nil {
		return
	}
	r.metrics.engineError.WithLabelValues(normalizeLabel(operation)).Inc()
}
