package world

import "palletworks.dev/internal/protocol"

// buildFrame snapshots the world into the wire frame. Called from the
// world goroutine only; everything is copied, nothing aliases sim state.
func (w *World) buildFrame() protocol.FrameMsg {
	f := protocol.FrameMsg{
		Type:    protocol.TypeFrame,
		Tick:    w.tick.Load(),
		SimTime: w.simTime,
		Speed:   w.speed,
		Playing: w.playing,
	}

	f.Boxes = make([]protocol.BoxView, 0, len(w.boxes))
	for _, b := range w.boxes {
		f.Boxes = append(f.Boxes, protocol.BoxView{
			ID:    b.ID,
			Pos:   b.Pos.ToArray(),
			State: b.State.String(),
		})
	}

	f.Arms = make([]protocol.ArmView, 0, len(w.arms))
	for _, a := range w.arms {
		av := protocol.ArmView{
			Idx:   a.Idx,
			Tip:   a.Tip.ToArray(),
			Phase: a.Phase.String(),
		}
		av.Joints = [6]float64(a.Joints)
		if a.HeldBox != nil {
			av.HeldBox = a.HeldBox.ID
		}
		f.Arms = append(f.Arms, av)
	}

	f.Pallets = make([]protocol.PalletView, 0, len(w.pallets))
	for i, p := range w.pallets {
		f.Pallets = append(f.Pallets, protocol.PalletView{
			Idx:      i,
			Center:   p.Center.ToArray(),
			Count:    p.Count,
			Capacity: w.cfg.Grid.Capacity(),
			State:    p.State.String(),
		})
	}

	f.Forklifts = []protocol.ForkliftView{
		forkliftView(w.evac),
		forkliftView(w.deliver),
	}
	return f
}

func forkliftView(f *Forklift) protocol.ForkliftView {
	return protocol.ForkliftView{
		Role:     f.Role.String(),
		Pos:      f.Pos.ToArray(),
		Yaw:      f.Yaw,
		Phase:    f.Phase.String(),
		Carrying: f.Carrying,
	}
}
