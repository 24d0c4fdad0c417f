package world

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"math"
)

// Digest returns a hex sha256 over the full simulation state. Two worlds
// fed the same tick sequence must produce identical digests; anything
// nondeterministic leaking into the step shows up here first.
func (w *World) Digest() string {
	h := sha256.New()
	var tmp [8]byte

	digestWriteF64(h, &tmp, w.simTime)

	digestWriteU64(h, &tmp, uint64(len(w.boxes)))
	for _, b := range w.boxes {
		digestWriteU64(h, &tmp, b.ID)
		digestWriteU64(h, &tmp, uint64(b.State))
		digestWriteF64(h, &tmp, b.Pos.X)
		digestWriteF64(h, &tmp, b.Pos.Y)
		digestWriteF64(h, &tmp, b.Pos.Z)
		digestWriteU64(h, &tmp, uint64(int64(b.Arm)))
	}

	for _, a := range w.arms {
		digestWriteU64(h, &tmp, uint64(a.Phase))
		digestWriteF64(h, &tmp, a.T)
		for _, j := range a.Joints {
			digestWriteF64(h, &tmp, j)
		}
		digestWriteF64(h, &tmp, a.Tip.X)
		digestWriteF64(h, &tmp, a.Tip.Y)
		digestWriteF64(h, &tmp, a.Tip.Z)
		digestWriteU64(h, &tmp, boxRef(a.TargetBox))
		digestWriteU64(h, &tmp, boxRef(a.HeldBox))
	}

	for _, p := range w.pallets {
		digestWriteU64(h, &tmp, uint64(p.Count))
		digestWriteU64(h, &tmp, uint64(p.State))
	}

	for _, f := range []*Forklift{w.evac, w.deliver} {
		digestWriteU64(h, &tmp, uint64(f.Role))
		digestWriteU64(h, &tmp, uint64(f.Phase))
		digestWriteF64(h, &tmp, f.T)
		digestWriteF64(h, &tmp, f.Pos.X)
		digestWriteF64(h, &tmp, f.Pos.Y)
		digestWriteF64(h, &tmp, f.Pos.Z)
		digestWriteF64(h, &tmp, f.Yaw)
		digestWriteU64(h, &tmp, uint64(int64(f.Target)))
		if f.Carrying {
			digestWriteU64(h, &tmp, 1)
		} else {
			digestWriteU64(h, &tmp, 0)
		}
	}

	digestWriteU64(h, &tmp, w.stats.BoxesSpawned)
	digestWriteU64(h, &tmp, w.stats.BoxesPalletized)
	digestWriteU64(h, &tmp, w.stats.BoxesOverflowed)
	digestWriteU64(h, &tmp, w.stats.PalletsCycled)

	return hex.EncodeToString(h.Sum(nil))
}

func boxRef(b *Box) uint64 {
	if b == nil {
		return 0
	}
	return b.ID
}

func digestWriteU64(h hash.Hash, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	h.Write(tmp[:])
}

func digestWriteF64(h hash.Hash, tmp *[8]byte, v float64) {
	digestWriteU64(h, tmp, math.Float64bits(v))
}
