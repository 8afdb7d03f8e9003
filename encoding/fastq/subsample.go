package fastq

import (
	"fmt"
	"io"

	farm "github.com/dgryski/go-farm"
	"github.com/pkg/errors"
)

// SubsampleOpts configures Subsample and SubsamplePairs.
type SubsampleOpts struct {
	// Percent is the probability, in [1, 100], that a read (or read
	// pair) is kept.
	Percent int
	// Seed seeds the Sampler. Runs with the same seed over the same
	// input keep the same reads.
	Seed int64
	// Scanner configures input framing.
	Scanner ScannerOpts
}

// DefaultSubsampleOpts are the default options. Callers normally set
// Seed.
var DefaultSubsampleOpts = SubsampleOpts{Percent: 10}

// Validate checks that the options are usable.
func (o SubsampleOpts) Validate() error {
	if o.Percent < 1 || o.Percent > 100 {
		return errors.Errorf("subsampling percentage must be between 1 and 100, got %d", o.Percent)
	}
	if o.Scanner.MaxLineLen < 0 {
		return errors.Errorf("max line length must be nonnegative, got %d", o.Scanner.MaxLineLen)
	}
	return nil
}

// Stats summarizes a subsampling run. In paired mode, Total and Kept
// count read pairs.
type Stats struct {
	Total, Kept int64
	// Fingerprint is an order-sensitive hash of every line written; in
	// paired mode it combines the fingerprints of both outputs. Two runs
	// produce the same output iff (with high probability) their
	// fingerprints match.
	Fingerprint uint64
}

// Percent returns the percentage of reads kept. It is 0 when no reads
// were seen.
func (s Stats) Percent() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Kept) / float64(s.Total) * 100
}

func (s Stats) String() string {
	return fmt.Sprintf("%d of %d kept (%.2f%%), fingerprint %016x", s.Kept, s.Total, s.Percent(), s.Fingerprint)
}

// record sets the kept count and fingerprint from the writers of a
// run: one writer in single mode, the R1 and R2 writers in paired mode.
func (s *Stats) record(ws ...*Writer) {
	s.Kept = ws[0].Count()
	s.Fingerprint = ws[0].Fingerprint()
	for _, w := range ws[1:] {
		if w.Count() < s.Kept {
			s.Kept = w.Count()
		}
		s.Fingerprint = farm.Hash64WithSeeds(nil, s.Fingerprint, w.Fingerprint())
	}
}

// Subsample copies a random subset of the FASTQ reads in in to out.
// Each read is kept independently with probability opts.Percent/100.
// Kept reads are written unchanged and in input order.
func Subsample(in io.Reader, out io.Writer, opts SubsampleOpts) (Stats, error) {
	var stats Stats
	if err := opts.Validate(); err != nil {
		return stats, err
	}
	var (
		sampler = NewSampler(opts.Percent, opts.Seed)
		sc      = NewScanner(in, opts.Scanner)
		w       = NewWriter(out)
		read    Read
	)
	for sc.Scan(&read) {
		stats.Total++
		if !sampler.Keep() {
			continue
		}
		if err := w.Write(&read); err != nil {
			stats.record(w)
			return stats, errors.Wrap(err, "error writing output")
		}
	}
	stats.record(w)
	if err := sc.Err(); err != nil {
		return stats, errors.Wrap(err, "error reading input")
	}
	return stats, nil
}

// SubsamplePairs copies a random subset of the read pairs in r1In and
// r2In to r1Out and r2Out. One decision is made per pair, so the two
// outputs always hold the same pairs in the same order.
//
// If one input ends before the other, SubsamplePairs returns a
// *PairingError. Pairs written before the mismatch was found are left
// in the outputs.
func SubsamplePairs(r1In, r2In io.Reader, r1Out, r2Out io.Writer, opts SubsampleOpts) (Stats, error) {
	var stats Stats
	if err := opts.Validate(); err != nil {
		return stats, err
	}
	var (
		sampler = NewSampler(opts.Percent, opts.Seed)
		sc      = NewPairScanner(r1In, r2In, opts.Scanner)
		w1      = NewWriter(r1Out)
		w2      = NewWriter(r2Out)
		r1, r2  Read
	)
	for sc.Scan(&r1, &r2) {
		stats.Total++
		if !sampler.Keep() {
			continue
		}
		// Both mates are written even if the first write fails.
		err1 := w1.Write(&r1)
		err2 := w2.Write(&r2)
		if err1 != nil || err2 != nil {
			stats.record(w1, w2)
		}
		if err1 != nil {
			return stats, errors.Wrap(err1, "error writing R1 output")
		}
		if err2 != nil {
			return stats, errors.Wrap(err2, "error writing R2 output")
		}
	}
	stats.record(w1, w2)
	if err := sc.Err(); err != nil {
		if _, ok := err.(*PairingError); ok {
			return stats, err
		}
		return stats, errors.Wrap(err, "error reading input")
	}
	return stats, nil
}
