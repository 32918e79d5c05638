package seed

// Encrypt runs every block through all 16 rounds and returns the
// ciphertext batch. keys holds one key per block or a single broadcast
// key. Shorthand for the canonical full-cipher request on a fresh
// engine: Execute(round=16, step=output).
func Encrypt(vals, keys []byte, workers int) ([]byte, error) {
	out, err := NewEngine().Execute(vals, keys, maxRounds, StepOutput, false, workers)
	if err != nil {
		return nil, err
	}
	return out.Blocks, nil
}

// Decrypt is the inverse of Encrypt.
func Decrypt(vals, keys []byte, workers int) ([]byte, error) {
	out, err := NewEngine().Execute(vals, keys, maxRounds, StepOutput, true, workers)
	if err != nil {
		return nil, err
	}
	return out.Blocks, nil
}
