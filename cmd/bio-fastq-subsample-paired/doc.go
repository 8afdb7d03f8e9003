/*Command bio-fastq-subsample-paired writes a random subset of the read
  pairs in a pair of R1/R2 FASTQ files. One keep/discard decision is made
  per pair, so the two outputs always hold the same pairs in the same
  order.

  If one input holds more reads than the other, the command fails with a
  diagnostic giving the read count observed on each side. Pairs written
  before the mismatch was detected are left in the outputs; write to a
  temporary path and rename on success if that matters.

  Input compression is detected from file contents; output compression
  follows -compress (default: from the output extension), and -z forces
  gzip.

  Usage: bio-fastq-subsample-paired -a r1.fq.gz -b r2.fq.gz -x o1.fq.gz -y o2.fq.gz -f 10
*/
package main
