package world

// Metrics is a thread-safe read-only view of the world loop. It is updated
// from the world loop goroutine and read from HTTP handlers and tests.
type Metrics struct {
	Tick          uint64  `json:"tick"`
	LoadedChunks  int     `json:"loaded_chunks"`
	Focus         [2]int  `json:"focus"`
	Unsaved       bool    `json:"unsaved"`
	Saves         int     `json:"saves"`
	LastSaveBytes int     `json:"last_save_bytes"`
	Observers     int     `json:"observers"`
	InboxDepth    int     `json:"inbox_depth"`
	StepMS        float64 `json:"step_ms"`
}

func (w *World) Metrics() Metrics {
	if w == nil {
		return Metrics{}
	}
	m, _ := w.metrics.Load().(Metrics)
	return m
}

func (w *World) storeMetrics(stepMS float64) {
	w.metrics.Store(Metrics{
		Tick:          w.tick.Load(),
		LoadedChunks:  w.chunks.Len(),
		Focus:         [2]int{w.chunks.Focus.X, w.chunks.Focus.Y},
		Unsaved:       w.chunks.Unsaved(),
		Saves:         w.saves,
		LastSaveBytes: w.lastSave,
		Observers:     len(w.observers),
		InboxDepth:    len(w.inbox),
		StepMS:        stepMS,
	})
}
