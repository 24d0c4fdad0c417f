package world

// stepConveyor advances every free box along +X, retires boxes that slid
// past the end of the belt, and tops the belt back up from the spawn
// point. Claimed boxes do not move: once an arm reserves a box the belt
// hands it over, which is what keeps reservation and advancement from
// racing within a tick.
func (w *World) stepConveyor(eff float64) {
	c := w.cfg.Conveyor

	for _, b := range w.boxes {
		if b.State == BoxOnConveyor && b.Arm < 0 {
			b.Pos.X += c.SpeedMPS * eff
		}
	}

	// Retire overflow. Unpicked boxes falling off the end is normal
	// back-pressure, not an error.
	kept := w.boxes[:0]
	for _, b := range w.boxes {
		if b.State == BoxOnConveyor && b.Arm < 0 && b.Pos.X > c.XEnd {
			b.State = BoxRemoved
			w.stats.BoxesOverflowed++
			continue
		}
		kept = append(kept, b)
	}
	w.boxes = kept

	// Top up. The clearance check keeps spawns at least one stride apart,
	// so boxes cannot overlap or pass through each other; it also limits
	// the loop to one spawn per tick in practice.
	for w.freeBoxCount() < c.MinFree && w.spawnClear() {
		w.spawnBoxAt(c.XStart)
	}
}

func (w *World) freeBoxCount() int {
	n := 0
	for _, b := range w.boxes {
		if b.State == BoxOnConveyor && b.Arm < 0 {
			n++
		}
	}
	return n
}

// spawnClear reports whether the spawn window at the head of the belt is
// empty: no box within one stride (box width plus gap) of the spawn point.
func (w *World) spawnClear() bool {
	stride := w.cfg.Box.W + w.cfg.Conveyor.Gap
	for _, b := range w.boxes {
		if b.State != BoxOnConveyor {
			continue
		}
		if b.Pos.X < w.cfg.Conveyor.XStart+stride {
			return false
		}
	}
	return true
}
