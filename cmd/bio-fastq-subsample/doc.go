/*Command bio-fastq-subsample writes a random subset of the reads in a
  FASTQ file. Each read is kept independently with probability -f/100;
  kept reads are copied unchanged and in input order.

  The input may be plain or compressed (gzip, bgzf, bzip2, snappy);
  compression is detected from the file contents. The output is
  compressed according to -compress, which by default follows the
  output file extension. -z forces gzip.

  A fixed -s seed makes the run reproducible. Without -s the seed is
  taken from the clock and, with -v, logged so the run can be repeated.

  Usage: bio-fastq-subsample -i in.fastq.gz -o out.fastq.gz -f 5 -s 42 -v
*/
package main
