package main

// See doc.go for documentation

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/subsample/encoding/fastq"
)

var (
	r1InFlag       = flag.String("a", "", "Input R1 FASTQ file (required, may be compressed)")
	r2InFlag       = flag.String("b", "", "Input R2 FASTQ file (required, may be compressed)")
	r1OutFlag      = flag.String("x", "", "Output R1 FASTQ file (required)")
	r2OutFlag      = flag.String("y", "", "Output R2 FASTQ file (required)")
	percentFlag    = flag.Int("f", fastq.DefaultSubsampleOpts.Percent, "Subsampling percentage (1-100)")
	seedFlag       = flag.Int64("s", 0, "Random seed (default: current time)")
	gzipFlag       = flag.Bool("z", false, "Compress output with gzip; same as -compress=gzip, and an error with any other -compress value")
	compressFlag   = flag.String("compress", fastq.CodecAuto, "Output compression: none, gzip, bgzf, snappy, or auto to follow the R1 output file extension")
	maxLineLenFlag = flag.Int("max-line-len", 0, "Fail on FASTQ lines longer than this many bytes; 0 means no limit")
	verboseFlag    = flag.Bool("v", false, "Verbose output")
)

// Collection of options set via cmdline flags
type pairedFlags struct {
	r1In, r2In   string
	r1Out, r2Out string
	compress     string
	gzip         bool
	verbose      bool
	opts         fastq.SubsampleOpts
}

func (f pairedFlags) validate() error {
	if f.r1In == "" || f.r2In == "" || f.r1Out == "" || f.r2Out == "" {
		return errors.E(errors.Invalid, "missing required arguments: -a, -b, -x and -y must be set")
	}
	if f.gzip && f.compress != fastq.CodecAuto && f.compress != fastq.Gzip.String() {
		return errors.E(errors.Invalid, fmt.Sprintf("-z conflicts with -compress=%s", f.compress))
	}
	if err := f.opts.Validate(); err != nil {
		return errors.E(errors.Invalid, err)
	}
	return nil
}

// codec returns the output compression selected by -z and -compress.
func (f pairedFlags) codec() (fastq.Codec, error) {
	name := f.compress
	if f.gzip {
		name = fastq.Gzip.String()
	}
	return fastq.ParseCodec(name, f.r1Out)
}

func run(ctx context.Context, flags pairedFlags) error {
	if err := flags.validate(); err != nil {
		return err
	}
	codec, err := flags.codec()
	if err != nil {
		return err
	}
	if flags.verbose {
		log.Printf("Subsampling paired FASTQ files at %d%%", flags.opts.Percent)
		log.Printf("Random seed: %d", flags.opts.Seed)
	}
	stats, err := fastq.SubsamplePairFiles(ctx, flags.r1In, flags.r2In, flags.r1Out, flags.r2Out, codec, flags.opts)
	if err != nil {
		return err
	}
	if flags.verbose {
		log.Printf("Total read pairs processed: %d", stats.Total)
		log.Printf("Read pairs kept: %d (%.2f%%)", stats.Kept, stats.Percent())
		log.Printf("Output fingerprint: %016x", stats.Fingerprint)
	}
	return nil
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\nSubsamples paired FASTQ files while maintaining read pairs.\n\nOptions:\n", os.Args[0])
	flag.PrintDefaults()
}

// seed returns the -s value, or the current time if -s was not given.
func seed() int64 {
	s := time.Now().UnixNano()
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "s" {
			s = *seedFlag
		}
	})
	return s
}

func main() {
	flag.Usage = usage
	shutdown := grail.Init()
	defer shutdown()

	flags := pairedFlags{
		r1In:     *r1InFlag,
		r2In:     *r2InFlag,
		r1Out:    *r1OutFlag,
		r2Out:    *r2OutFlag,
		compress: *compressFlag,
		gzip:     *gzipFlag,
		verbose:  *verboseFlag,
		opts: fastq.SubsampleOpts{
			Percent: *percentFlag,
			Seed:    seed(),
			Scanner: fastq.ScannerOpts{MaxLineLen: *maxLineLenFlag},
		},
	}
	if err := run(vcontext.Background(), flags); err != nil {
		if errors.Is(errors.Invalid, err) {
			usage()
		}
		log.Fatalf("%v", err)
	}
}
