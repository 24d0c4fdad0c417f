package world

// palletSlot is the world-space center of the box slot that holds the
// count-th box on p: boxes fill a layer column-major (cols fastest), then
// stack the next layer. count must be in [0, capacity).
func (w *World) palletSlot(p *Pallet, count int) Vec3 {
	g := w.cfg.Grid
	box := w.cfg.Box

	layer := count / (g.Rows * g.Cols)
	inLayer := count % (g.Rows * g.Cols)
	row := inLayer / g.Cols
	col := inLayer % g.Cols

	return Vec3{
		X: p.Center.X + (float64(col)-float64(g.Cols-1)/2)*box.W,
		Y: w.cfg.PalletTopY + float64(layer)*box.H + box.H/2,
		Z: p.Center.Z + (float64(row)-float64(g.Rows-1)/2)*box.D,
	}
}

// depositBox counts one more box onto pallet idx. Hitting capacity flips
// the station to removing, which makes it eligible for evacuation and
// idles the arm that feeds it.
func (w *World) depositBox(idx int) {
	p := w.pallets[idx]
	p.Count++
	w.stats.BoxesPalletized++
	if p.Count >= w.cfg.Grid.Capacity() {
		p.State = PalletRemoving
	}
}
