package world

// WorldMetrics is a cheap copyable snapshot for /metrics and the admin
// state endpoint. Refreshed once per loop iteration, read from any
// goroutine under metricsMu.
type WorldMetrics struct {
	Tick            uint64  `json:"tick"`
	SimTime         float64 `json:"sim_time"`
	Playing         bool    `json:"playing"`
	Speed           float64 `json:"speed"`
	BoxesOnConveyor int     `json:"boxes_on_conveyor"`
	BoxesHeld       int     `json:"boxes_held"`
	BoxesSpawned    uint64  `json:"boxes_spawned"`
	BoxesPalletized uint64  `json:"boxes_palletized"`
	BoxesOverflowed uint64  `json:"boxes_overflowed"`
	PalletsCycled   uint64  `json:"pallets_cycled"`
	Clients         int     `json:"clients"`
	StepMS          float64 `json:"step_ms"`
}

func (w *World) updateMetrics(stepMS float64) {
	var onBelt, held int
	for _, b := range w.boxes {
		switch b.State {
		case BoxOnConveyor:
			onBelt++
		case BoxBeingPicked:
			held++
		}
	}
	m := WorldMetrics{
		Tick:            w.tick.Load(),
		SimTime:         w.simTime,
		Playing:         w.playing,
		Speed:           w.speed,
		BoxesOnConveyor: onBelt,
		BoxesHeld:       held,
		BoxesSpawned:    w.stats.BoxesSpawned,
		BoxesPalletized: w.stats.BoxesPalletized,
		BoxesOverflowed: w.stats.BoxesOverflowed,
		PalletsCycled:   w.stats.PalletsCycled,
		Clients:         len(w.clients),
		StepMS:          stepMS,
	}
	w.metricsMu.Lock()
	w.metrics = m
	w.metricsMu.Unlock()
}

// Metrics returns the latest snapshot. Safe from any goroutine.
func (w *World) Metrics() WorldMetrics {
	w.metricsMu.Lock()
	defer w.metricsMu.Unlock()
	return w.metrics
}
