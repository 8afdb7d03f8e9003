package fastq

import "math/rand"

// Sampler decides which reads to keep. Each decision draws one
// integer uniformly from [0, 100) and keeps the read if the draw is
// below the configured percentage. The decision sequence depends only
// on the seed and the number of calls to Keep.
//
// A Sampler owns its random source; it is not threadsafe.
type Sampler struct {
	percent int
	rnd     *rand.Rand
}

// NewSampler returns a Sampler that keeps reads with probability
// percent/100, seeded with seed.
func NewSampler(percent int, seed int64) *Sampler {
	return &Sampler{percent: percent, rnd: rand.New(rand.NewSource(seed))}
}

// Keep advances the random sequence by one draw and reports whether
// the current read (or read pair) should be kept. Callers processing
// pairs must call Keep once per pair, not once per mate.
func (s *Sampler) Keep() bool {
	return s.rnd.Intn(100) < s.percent
}
