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
	inFlag         = flag.String("i", "", "Input FASTQ file (required, may be compressed)")
	outFlag        = flag.String("o", "", "Output FASTQ file (required)")
	percentFlag    = flag.Int("f", fastq.DefaultSubsampleOpts.Percent, "Subsampling percentage (1-100)")
	seedFlag       = flag.Int64("s", 0, "Random seed (default: current time)")
	gzipFlag       = flag.Bool("z", false, "Compress output with gzip; same as -compress=gzip, and an error with any other -compress value")
	compressFlag   = flag.String("compress", fastq.CodecAuto, "Output compression: none, gzip, bgzf, snappy, or auto to follow the output file extension")
	maxLineLenFlag = flag.Int("max-line-len", 0, "Fail on FASTQ lines longer than this many bytes; 0 means no limit")
	verboseFlag    = flag.Bool("v", false, "Verbose output")
)

type subsampleFlags struct {
	in, out  string
	compress string
	gzip     bool
	verbose  bool
	opts     fastq.SubsampleOpts
}

func (f subsampleFlags) validate() error {
	if f.in == "" || f.out == "" {
		return errors.E(errors.Invalid, "missing required arguments: -i and -o must be set")
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
func (f subsampleFlags) codec() (fastq.Codec, error) {
	name := f.compress
	if f.gzip {
		name = fastq.Gzip.String()
	}
	return fastq.ParseCodec(name, f.out)
}

func run(ctx context.Context, flags subsampleFlags) error {
	if err := flags.validate(); err != nil {
		return err
	}
	codec, err := flags.codec()
	if err != nil {
		return err
	}
	if flags.verbose {
		log.Printf("Subsampling single-end FASTQ file at %d%%", flags.opts.Percent)
		log.Printf("Random seed: %d", flags.opts.Seed)
	}
	stats, err := fastq.SubsampleFile(ctx, flags.in, flags.out, codec, flags.opts)
	if err != nil {
		return err
	}
	if flags.verbose {
		log.Printf("Total reads processed: %d", stats.Total)
		log.Printf("Reads kept: %d (%.2f%%)", stats.Kept, stats.Percent())
		log.Printf("Output fingerprint: %016x", stats.Fingerprint)
	}
	return nil
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\nSubsamples a single-end FASTQ file.\n\nOptions:\n", os.Args[0])
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

	flags := subsampleFlags{
		in:       *inFlag,
		out:      *outFlag,
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
