package seed

import (
	"fmt"
	"strconv"
	"strings"
)

// Step names an observable intermediate inside a Feistel round. The
// numeric values are part of the external contract and stable.
type Step int

const (
	// StepRoundKey is the per-key subkey pair ks0||ks1 for the round.
	StepRoundKey Step = iota
	// StepRight is the per-block right half entering the round.
	StepRight
	// StepAddRoundKey packs the two subkey-mixing words x0||x2.
	StepAddRoundKey
	// StepGDa is the output of the first G invocation.
	StepGDa
	// StepGC is the output of the second G invocation.
	StepGC
	// StepGDb is the output of the third G invocation.
	StepGDb
	// StepF packs the F-function halves x8||x7. Unlike the earlier
	// steps, capturing F still completes the round in place.
	StepF
	// StepOutput is the serialized block state after the round,
	// the full ciphertext when requested at the final round.
	StepOutput

	stepCount

	// stepNone marks a round executed with no capture.
	stepNone Step = -1
)

var stepNames = [stepCount]string{
	"roundkey", "right", "addroundkey", "gda", "gc", "gdb", "f", "output",
}

func (s Step) String() string {
	if !s.Valid() {
		return fmt.Sprintf("step(%d)", int(s))
	}
	return stepNames[s]
}

// Valid reports whether s is one of the contract's step identifiers.
func (s Step) Valid() bool { return s >= 0 && s < stepCount }

// shortCircuits reports whether capturing s skips the in-place round
// update, leaving the block state at the previous round.
func (s Step) shortCircuits() bool { return s >= StepAddRoundKey && s <= StepGDb }

// ParseStep resolves a step given either its name or its numeric ID.
func ParseStep(v string) (Step, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	for i, name := range stepNames {
		if v == name {
			return Step(i), nil
		}
	}
	if n, err := strconv.Atoi(v); err == nil && Step(n).Valid() {
		return Step(n), nil
	}
	return 0, fmt.Errorf("%w: %q", ErrStep, v)
}
