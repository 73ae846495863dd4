// Package kmer builds the positional k-mer dictionary of an alignment store.
//
// Each read's reference-projected bases are cut into every window of K
// symbols that contains no gap.  The dictionary maps each distinct window to
// the number of times it was seen and to the set of reference positions it
// started at.  The dictionary is read-only after Build and safe for
// concurrent use.
package kmer
