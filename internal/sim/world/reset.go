package world

// Reset rebuilds the cell to its initial state: empty active pallets,
// arms at home, forklifts parked, conveyor re-seeded, counters cleared.
// Box ids restart from 1 so a reset world is digest-identical to a fresh
// one. World goroutine only.
func (w *World) Reset() {
	w.boxes = w.boxes[:0]
	w.nextBoxID = 0

	for _, p := range w.pallets {
		p.Count = 0
		p.State = PalletActive
	}
	for _, a := range w.arms {
		a.reset(w)
	}
	w.evac.reset()
	w.deliver.reset()

	select {
	case <-w.handoff:
	default:
	}

	w.simTime = 0
	w.stats = Stats{}
	w.seedBoxes()
}
