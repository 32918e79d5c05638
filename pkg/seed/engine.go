package seed

import (
	"encoding/binary"
	"errors"
	"fmt"

	"seedtrace/internal/fn"
	"seedtrace/pkg/log"
)

var (
	// ErrShape reports inputs whose lengths do not form whole 16-byte
	// blocks, or a key batch that is neither one key nor one per block.
	ErrShape = errors.New("seed: bad input shape")
	// ErrRound reports a requested round outside [1, 16].
	ErrRound = errors.New("seed: round out of range")
	// ErrStep reports an unknown step identifier.
	ErrStep = errors.New("seed: unknown step")
	// ErrDirection reports an Execute whose direction differs from the
	// one the engine was first driven with. Direction is fixed for the
	// lifetime of an engine; use a fresh engine for the other direction.
	ErrDirection = errors.New("seed: direction switch on a live engine")
)

// Capture holds the intermediates collected at a requested cut point.
// Exactly one of U64, U32 or Blocks is populated, matching the element
// width of the step: U64 for RoundKey/Right/AddRoundKey/F, U32 for the
// G outputs, Blocks (16 bytes per block) for Output.
type Capture struct {
	Round  int // 1-based round the capture was taken at
	Step   Step
	U64    []uint64
	U32    []uint32
	Blocks []byte
}

// Rows returns the number of captured elements.
func (c *Capture) Rows() int {
	switch {
	case c.U64 != nil:
		return len(c.U64)
	case c.U32 != nil:
		return len(c.U32)
	default:
		return len(c.Blocks) / BlockSize
	}
}

func newCapture(round int, step Step, nv, nk int) *Capture {
	c := &Capture{Round: round, Step: step}
	switch step {
	case StepRoundKey:
		c.U64 = make([]uint64, nk)
	case StepRight, StepAddRoundKey, StepF:
		c.U64 = make([]uint64, nv)
	case StepGDa, StepGC, StepGDb:
		c.U32 = make([]uint32, nv)
	case StepOutput:
		c.Blocks = make([]byte, nv*BlockSize)
	}
	return c
}

// Engine drives a batch of SEED block states forward round by round and
// exposes the intermediate value of a requested (round, step) cut point.
// Block and key state persist between calls, so a request farther along
// than the previous one resumes from the rounds already applied; a
// request at or behind the persisted position starts the batch over.
//
// The first Execute fixes the engine's direction. An Engine is not safe
// for concurrent use; callers serialize Execute per instance. The
// per-block and per-key inner loops fan out over the worker count given
// to Execute.
type Engine struct {
	decrypt bool
	frozen  bool

	blocks     columns
	sched      *keySchedule
	loaded     bool
	blockRound int // highest round fully applied to the block state, -1 for none
}

// NewEngine returns an engine with no persisted state. The direction is
// fixed by the first call to Execute.
func NewEngine() *Engine {
	return &Engine{blockRound: -1}
}

// Reset drops all persisted block, key and subkey state. The engine's
// direction, once fixed, survives a reset. Safe to call at any time,
// including repeatedly.
func (e *Engine) Reset() {
	e.blocks = columns{}
	e.sched = nil
	e.loaded = false
	e.blockRound = -1
}

// Execute advances the batch to the cut point (round, step) and returns
// the captured intermediate. vals is a concatenation of 16-byte blocks;
// keys holds either a single 16-byte key broadcast across the batch or
// one key per block. round is 1-based. workers bounds the fan-out of the
// data-parallel inner loops and is clamped to at least 1.
//
// On any error the engine is left in the same state as after Reset.
func (e *Engine) Execute(vals, keys []byte, round int, step Step, decrypt bool, workers int) (*Capture, error) {
	if round < 1 || round > maxRounds {
		e.Reset()
		return nil, fmt.Errorf("%w: %d not in [1, %d]", ErrRound, round, maxRounds)
	}
	if !step.Valid() {
		e.Reset()
		return nil, fmt.Errorf("%w: id %d", ErrStep, int(step))
	}
	if len(vals) == 0 || len(vals)%BlockSize != 0 || len(keys)%BlockSize != 0 {
		e.Reset()
		return nil, fmt.Errorf("%w: vals %d bytes, keys %d bytes", ErrShape, len(vals), len(keys))
	}
	nv := len(vals) / BlockSize
	nk := len(keys) / BlockSize
	if nk != 1 && nk != nv {
		e.Reset()
		return nil, fmt.Errorf("%w: %d keys for %d blocks", ErrShape, nk, nv)
	}
	if e.frozen && decrypt != e.decrypt {
		e.Reset()
		log.Error().Bool("engine_decrypt", e.decrypt).Bool("requested_decrypt", decrypt).
			Msg("seed: direction switch refused, engine reset")
		return nil, ErrDirection
	}
	e.decrypt = decrypt
	e.frozen = true

	target := round - 1 // 0-based internally
	if e.blockRound >= target {
		e.Reset()
	}
	if e.loaded && (e.blocks.len() != nv || e.sched.k.len() != nk) {
		// A different batch shape invalidates the persisted prefix.
		e.Reset()
	}
	if !e.loaded {
		e.blocks = loadColumns(vals)
		e.sched = newKeySchedule(keys)
		e.loaded = true
	}

	df := fn.T(decrypt, maxRounds-1, 0)
	if workers < 1 {
		workers = 1
	}
	out := newCapture(round, step, nv, nk)

	for r := e.blockRound + 1; r <= target; r++ {
		kr := df - r
		if kr < 0 {
			kr = -kr
		}
		e.sched.advanceTo(kr, workers)

		last := r == target
		if last && step == StepRoundKey {
			ks0, ks1 := e.sched.ks0, e.sched.ks1
			for i := range ks0 {
				out.U64[i] = uint64(ks0[i])<<32 | uint64(ks1[i])
			}
			return out, nil
		}
		_, _, a3, a4 := e.alias(r)
		if last && step == StepRight {
			parallelFor(nv, workers, func(lo, hi int) {
				for i := lo; i < hi; i++ {
					out.U64[i] = uint64(a3[i])<<32 | uint64(a4[i])
				}
			})
			return out, nil
		}

		want := stepNone
		if last {
			want = step
		}
		e.applyRound(r, want, out, workers)
		if last && step.shortCircuits() {
			// The block state still reflects round r-1; blockRound
			// stays put so a later request replays this round.
			return out, nil
		}
		e.blockRound = r
	}

	if step == StepOutput {
		a1, a2, a3, a4 := e.alias(target)
		parallelFor(nv, workers, func(lo, hi int) {
			for i := lo; i < hi; i++ {
				b := out.Blocks[i*BlockSize : (i+1)*BlockSize]
				binary.BigEndian.PutUint32(b[0:4], a1[i])
				binary.BigEndian.PutUint32(b[4:8], a2[i])
				binary.BigEndian.PutUint32(b[8:12], a3[i])
				binary.BigEndian.PutUint32(b[12:16], a4[i])
			}
		})
	}
	return out, nil
}

// alias selects the column pair the round reads as its right half and
// the pair it updates. Even rounds update (v1,v2) from (v3,v4), odd
// rounds the reverse, implementing the Feistel swap without copying.
func (e *Engine) alias(r int) (a1, a2, a3, a4 []uint32) {
	if r&1 == 0 {
		return e.blocks.c1, e.blocks.c2, e.blocks.c3, e.blocks.c4
	}
	return e.blocks.c3, e.blocks.c4, e.blocks.c1, e.blocks.c2
}

// applyRound applies Feistel round r to every block. When want names an
// in-round step the per-block value is recorded into out; for the steps
// before F the in-place update is skipped, while F and Output record
// and still complete the round.
func (e *Engine) applyRound(r int, want Step, out *Capture, workers int) {
	a1, a2, a3, a4 := e.alias(r)
	ks0, ks1 := e.sched.ks0, e.sched.ks1
	manyKeys := e.sched.k.len() > 1

	parallelFor(e.blocks.len(), workers, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			ki := fn.T(manyKeys, i, 0)
			x0 := a3[i] ^ ks0[ki]
			x2 := (a4[i] ^ ks1[ki]) ^ x0
			if want == StepAddRoundKey {
				out.U64[i] = uint64(x0)<<32 | uint64(x2)
				continue
			}
			x3 := gf(x2)
			if want == StepGDa {
				out.U32[i] = x3
				continue
			}
			x5 := gf(x3 + x0)
			if want == StepGC {
				out.U32[i] = x5
				continue
			}
			x7 := gf(x5 + x3)
			if want == StepGDb {
				out.U32[i] = x7
				continue
			}
			x8 := x5 + x7
			if want == StepF {
				out.U64[i] = uint64(x8)<<32 | uint64(x7)
			}
			a1[i] ^= x8
			a2[i] ^= x7
		}
	})
}
