package seed

// keySchedule owns the persistent key state for a batch of keys and the
// subkey pair derived from it. The state advances one round at a time;
// rewinding to an earlier round reloads the original key bytes and
// replays from round 0.
type keySchedule struct {
	raw      []byte
	k        columns
	ks0, ks1 []uint32
	round    int // round the subkey pair is valid for, -1 before the first advance
}

func newKeySchedule(raw []byte) *keySchedule {
	s := &keySchedule{raw: raw}
	s.rewind()
	return s
}

func (s *keySchedule) rewind() {
	s.k = loadColumns(s.raw)
	if s.ks0 == nil {
		// Subkey buffers survive rewinds; decryption rewinds on every
		// round, so reallocation here would churn.
		s.ks0 = make([]uint32, s.k.len())
		s.ks1 = make([]uint32, s.k.len())
	}
	s.round = -1
}

// advanceTo makes the subkey pair valid for the requested key round.
// A no-op when already there; rewinds first when the target precedes
// the current round.
func (s *keySchedule) advanceTo(target, workers int) {
	if s.round == target {
		return
	}
	if target < s.round {
		s.rewind()
	}
	for r := s.round + 1; r <= target; r++ {
		s.step(r, workers)
	}
}

// step rotates the key state into round r and derives the round-r
// subkeys. Odd rounds rotate the 64-bit (k1,k2) pair right by 8 bits,
// even rounds after the first rotate (k3,k4) left by 8 bits; round 0
// derives straight from the loaded key.
func (s *keySchedule) step(r, workers int) {
	k1, k2, k3, k4 := s.k.c1, s.k.c2, s.k.c3, s.k.c4
	ks0, ks1 := s.ks0, s.ks1
	parallelFor(s.k.len(), workers, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			switch {
			case r&1 == 1:
				t := k1[i]
				k1[i] = k1[i]>>8 | k2[i]<<24
				k2[i] = k2[i]>>8 | t<<24
			case r >= 2:
				t := k3[i]
				k3[i] = k3[i]<<8 | k4[i]>>24
				k4[i] = k4[i]<<8 | t>>24
			}
			ks0[i] = gf(k1[i] + k3[i] - kc[r])
			ks1[i] = gf(k2[i] - k4[i] + kc[r])
		}
	})
	s.round = r
}
