package seed

import (
	"bytes"
	"encoding/hex"
	"errors"
	"testing"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("bad hex in test: %v", err)
	}
	return b
}

// RFC 4269 Appendix B vectors. The B.2 and B.3 ciphertexts carry the
// errata-corrected values, which match the KISA reference output.
var vectors = []struct {
	key, plaintext, ciphertext string
}{
	{
		"00000000000000000000000000000000",
		"000102030405060708090a0b0c0d0e0f",
		"5ebac6e0054e166819aff1cc6d346cdb",
	},
	{
		"000102030405060708090a0b0c0d0e0f",
		"00000000000000000000000000000000",
		"c11f22f20140505084483597e4370f43",
	},
	{
		"4706418133dc85e375a3ef0e2c98b3e6",
		"83a2f8a288641fb9a4e9a5cc2f131c7d",
		"90e216079e2aa1745d08e3942416a7e8",
	},
	{
		"28dbc3bc49ffd87dcfa509b11d422be7",
		"b41e6be2eba84a148e2eed84593c5ec7",
		"9b9b7bfcd1813cb95d0b3618f40f5122",
	},
}

func TestKnownVectors(t *testing.T) {
	for i, v := range vectors {
		key := mustHex(t, v.key)
		pt := mustHex(t, v.plaintext)
		want := mustHex(t, v.ciphertext)

		ct, err := Encrypt(pt, key, 1)
		if err != nil {
			t.Fatalf("vector %d: Encrypt failed: %v", i+1, err)
		}
		if !bytes.Equal(ct, want) {
			t.Errorf("vector %d: encrypt got %x, want %x", i+1, ct, want)
		}

		back, err := Decrypt(want, key, 1)
		if err != nil {
			t.Fatalf("vector %d: Decrypt failed: %v", i+1, err)
		}
		if !bytes.Equal(back, pt) {
			t.Errorf("vector %d: decrypt got %x, want %x", i+1, back, pt)
		}
	}
}

// A batch call must produce the same blocks, in order, as independent
// single-block calls.
func TestBatchMatchesScalar(t *testing.T) {
	var vals, keys, want []byte
	for _, v := range vectors {
		vals = append(vals, mustHex(t, v.plaintext)...)
		keys = append(keys, mustHex(t, v.key)...)
		want = append(want, mustHex(t, v.ciphertext)...)
	}

	got, err := Encrypt(vals, keys, 2)
	if err != nil {
		t.Fatalf("batch Encrypt failed: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("batch encrypt got %x, want %x", got, want)
	}
}

// A single key must broadcast across the batch, matching per-block runs
// with that key.
func TestBroadcastKey(t *testing.T) {
	key := mustHex(t, vectors[2].key)

	var vals []byte
	for _, v := range vectors {
		vals = append(vals, mustHex(t, v.plaintext)...)
	}

	batched, err := Encrypt(vals, key, 1)
	if err != nil {
		t.Fatalf("broadcast Encrypt failed: %v", err)
	}
	for i := 0; i < len(vals); i += BlockSize {
		single, err := Encrypt(vals[i:i+BlockSize], key, 1)
		if err != nil {
			t.Fatalf("scalar Encrypt failed: %v", err)
		}
		if !bytes.Equal(batched[i:i+BlockSize], single) {
			t.Errorf("block %d: broadcast got %x, scalar got %x", i/BlockSize, batched[i:i+BlockSize], single)
		}
	}
}

// Intermediate values for round 1 of the first test vector, fixed as
// regressions from the reference algorithm.
func TestRoundOneIntermediates(t *testing.T) {
	key := mustHex(t, vectors[0].key)
	pt := mustHex(t, vectors[0].plaintext)

	u64Cases := []struct {
		step Step
		want uint64
	}{
		{StepRoundKey, 0x7c8f8c7ec737a22c},
		{StepRight, 0x08090a0b0c0d0e0f},
		{StepAddRoundKey, 0x74868675bfbc2a56},
		{StepF, 0x8080be54c0ef8c18},
	}
	u32Cases := []struct {
		step Step
		want uint32
	}{
		{StepGDa, 0x3f7f11ef},
		{StepGC, 0xbf91323c},
		{StepGDb, 0xc0ef8c18},
	}

	engine := NewEngine()
	for _, c := range u64Cases {
		out, err := engine.Execute(pt, key, 1, c.step, false, 1)
		if err != nil {
			t.Fatalf("step %s: %v", c.step, err)
		}
		if len(out.U64) != 1 || out.U64[0] != c.want {
			t.Errorf("step %s: got %#016x, want %#016x", c.step, out.U64[0], c.want)
		}
	}
	for _, c := range u32Cases {
		out, err := engine.Execute(pt, key, 1, c.step, false, 1)
		if err != nil {
			t.Fatalf("step %s: %v", c.step, err)
		}
		if len(out.U32) != 1 || out.U32[0] != c.want {
			t.Errorf("step %s: got %#08x, want %#08x", c.step, out.U32[0], c.want)
		}
	}
}

// Decryption consumes the subkeys in reverse order: its first round
// must present the key-schedule's round-15 pair.
func TestDecryptRoundKeyOrder(t *testing.T) {
	key := mustHex(t, vectors[0].key)
	ct := mustHex(t, vectors[0].ciphertext)

	engine := NewEngine()
	out, err := engine.Execute(ct, key, 1, StepRoundKey, true, 1)
	if err != nil {
		t.Fatalf("decrypt RoundKey: %v", err)
	}
	if out.U64[0] != 0x7189115098b255b0 {
		t.Errorf("decrypt round-1 subkeys: got %#016x, want %#016x", out.U64[0], uint64(0x7189115098b255b0))
	}

	out, err = engine.Execute(ct, key, 1, StepAddRoundKey, true, 1)
	if err != nil {
		t.Fatalf("decrypt AddRoundKey: %v", err)
	}
	if out.U64[0] != 0x6826e09c9da0d9f7 {
		t.Errorf("decrypt round-1 AddRoundKey: got %#016x, want %#016x", out.U64[0], uint64(0x6826e09c9da0d9f7))
	}
}

// The Output step works at any round; round 8 exercises serialization
// from the odd-round alias order.
func TestMidRoundOutput(t *testing.T) {
	key := mustHex(t, vectors[0].key)
	pt := mustHex(t, vectors[0].plaintext)
	want := mustHex(t, "b86d31bfa5988c06b04e251f97d7442c")

	out, err := NewEngine().Execute(pt, key, 8, StepOutput, false, 1)
	if err != nil {
		t.Fatalf("round-8 output: %v", err)
	}
	if !bytes.Equal(out.Blocks, want) {
		t.Errorf("round-8 output: got %x, want %x", out.Blocks, want)
	}
}

// A request must see the same values whether the engine ran earlier
// rounds in previous calls or starts cold.
func TestPersistedPrefix(t *testing.T) {
	key := mustHex(t, vectors[2].key)
	pt := mustHex(t, vectors[2].plaintext)
	const want = uint64(0x9f15d71c731c9852)

	cold, err := NewEngine().Execute(pt, key, 5, StepF, false, 1)
	if err != nil {
		t.Fatalf("cold run: %v", err)
	}
	if cold.U64[0] != want {
		t.Fatalf("cold round-5 F: got %#016x, want %#016x", cold.U64[0], want)
	}

	warm := NewEngine()
	if _, err := warm.Execute(pt, key, 2, StepOutput, false, 1); err != nil {
		t.Fatalf("warm-up round 2: %v", err)
	}
	if _, err := warm.Execute(pt, key, 4, StepOutput, false, 1); err != nil {
		t.Fatalf("warm-up round 4: %v", err)
	}
	out, err := warm.Execute(pt, key, 5, StepF, false, 1)
	if err != nil {
		t.Fatalf("warm run: %v", err)
	}
	if out.U64[0] != want {
		t.Errorf("warm round-5 F: got %#016x, want %#016x", out.U64[0], want)
	}
}

// Rewinding to an earlier (or equal) round must behave like a fresh
// engine.
func TestRewind(t *testing.T) {
	key := mustHex(t, vectors[0].key)
	pt := mustHex(t, vectors[0].plaintext)

	engine := NewEngine()
	if _, err := engine.Execute(pt, key, 8, StepOutput, false, 1); err != nil {
		t.Fatalf("round 8: %v", err)
	}
	out, err := engine.Execute(pt, key, 2, StepGC, false, 1)
	if err != nil {
		t.Fatalf("rewind to round 2: %v", err)
	}
	if out.U32[0] != 0x3e3afee1 {
		t.Errorf("round-2 GC after rewind: got %#08x, want 0x3e3afee1", out.U32[0])
	}

	// Repeating the exact request must also reset and re-run.
	again, err := engine.Execute(pt, key, 2, StepGC, false, 1)
	if err != nil {
		t.Fatalf("repeat round 2: %v", err)
	}
	if again.U32[0] != out.U32[0] {
		t.Errorf("repeat differs: %#08x vs %#08x", again.U32[0], out.U32[0])
	}
}

// An early-step capture must not advance the persisted position; the
// later full-round request re-runs the round and still lands on the
// right ciphertext.
func TestEarlyStepDoesNotAdvance(t *testing.T) {
	key := mustHex(t, vectors[0].key)
	pt := mustHex(t, vectors[0].plaintext)
	want := mustHex(t, vectors[0].ciphertext)

	engine := NewEngine()
	if _, err := engine.Execute(pt, key, 7, StepGDa, false, 1); err != nil {
		t.Fatalf("round-7 GDa: %v", err)
	}
	out, err := engine.Execute(pt, key, 16, StepOutput, false, 1)
	if err != nil {
		t.Fatalf("round 16: %v", err)
	}
	if !bytes.Equal(out.Blocks, want) {
		t.Errorf("ciphertext after early-step capture: got %x, want %x", out.Blocks, want)
	}
}

func TestWorkerCountEquivalence(t *testing.T) {
	const n = 67 // odd count so chunks are uneven
	vals := make([]byte, n*BlockSize)
	keys := make([]byte, n*BlockSize)
	for i := range vals {
		vals[i] = byte(i * 7)
		keys[i] = byte(i * 13)
	}

	one, err := Encrypt(vals, keys, 1)
	if err != nil {
		t.Fatalf("workers=1: %v", err)
	}
	many, err := Encrypt(vals, keys, 8)
	if err != nil {
		t.Fatalf("workers=8: %v", err)
	}
	if !bytes.Equal(one, many) {
		t.Error("worker fan-out changed the ciphertext")
	}
}

func TestDirectionSwitchRefused(t *testing.T) {
	key := mustHex(t, vectors[0].key)
	pt := mustHex(t, vectors[0].plaintext)

	engine := NewEngine()
	if _, err := engine.Execute(pt, key, 4, StepOutput, false, 1); err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if _, err := engine.Execute(pt, key, 4, StepOutput, true, 1); err == nil {
		t.Fatal("direction switch succeeded, want error")
	} else if !errors.Is(err, ErrDirection) {
		t.Errorf("got %v, want ErrDirection", err)
	}

	// The refused engine must behave like a fresh one of its direction.
	out, err := engine.Execute(pt, key, 16, StepOutput, false, 1)
	if err != nil {
		t.Fatalf("encrypt after refused switch: %v", err)
	}
	if !bytes.Equal(out.Blocks, mustHex(t, vectors[0].ciphertext)) {
		t.Error("engine state corrupted by refused direction switch")
	}
}

func TestInputValidation(t *testing.T) {
	key := mustHex(t, vectors[0].key)
	pt := mustHex(t, vectors[0].plaintext)
	engine := NewEngine()

	cases := []struct {
		name       string
		vals, keys []byte
		round      int
		step       Step
		want       error
	}{
		{"short vals", pt[:15], key, 16, StepOutput, ErrShape},
		{"empty vals", nil, key, 16, StepOutput, ErrShape},
		{"ragged keys", pt, key[:12], 16, StepOutput, ErrShape},
		{"key count", append(append([]byte{}, pt...), pt...), append(append(append([]byte{}, key...), key...), key...), 16, StepOutput, ErrShape},
		{"round low", pt, key, 0, StepOutput, ErrRound},
		{"round high", pt, key, 17, StepOutput, ErrRound},
		{"bad step", pt, key, 16, Step(42), ErrStep},
	}
	for _, c := range cases {
		if _, err := engine.Execute(c.vals, c.keys, c.round, c.step, false, 1); !errors.Is(err, c.want) {
			t.Errorf("%s: got %v, want %v", c.name, err, c.want)
		}
	}

	// After the failures the engine still runs cleanly.
	if _, err := engine.Execute(pt, key, 16, StepOutput, false, 1); err != nil {
		t.Fatalf("engine unusable after input errors: %v", err)
	}
}

func TestCaptureShapes(t *testing.T) {
	key := mustHex(t, vectors[0].key)
	var vals []byte
	for _, v := range vectors {
		vals = append(vals, mustHex(t, v.plaintext)...)
	}

	engine := NewEngine()
	out, err := engine.Execute(vals, key, 3, StepRoundKey, false, 1)
	if err != nil {
		t.Fatalf("RoundKey: %v", err)
	}
	if out.Rows() != 1 {
		t.Errorf("broadcast RoundKey rows = %d, want 1", out.Rows())
	}

	out, err = engine.Execute(vals, key, 3, StepGDb, false, 1)
	if err != nil {
		t.Fatalf("GDb: %v", err)
	}
	if out.Rows() != len(vals)/BlockSize {
		t.Errorf("GDb rows = %d, want %d", out.Rows(), len(vals)/BlockSize)
	}

	out, err = engine.Execute(vals, key, 16, StepOutput, false, 1)
	if err != nil {
		t.Fatalf("Output: %v", err)
	}
	if len(out.Blocks) != len(vals) {
		t.Errorf("Output bytes = %d, want %d", len(out.Blocks), len(vals))
	}
}

func TestParseStep(t *testing.T) {
	for id := Step(0); id < stepCount; id++ {
		byName, err := ParseStep(id.String())
		if err != nil || byName != id {
			t.Errorf("ParseStep(%q) = %v, %v", id.String(), byName, err)
		}
	}
	if s, err := ParseStep("4"); err != nil || s != StepGC {
		t.Errorf("ParseStep(\"4\") = %v, %v, want StepGC", s, err)
	}
	if _, err := ParseStep("mangle"); err == nil {
		t.Error("ParseStep accepted an unknown name")
	}
}
