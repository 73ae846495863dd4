// Package bamprovider provides utilities for scanning the alignment records of
// a SAM or BAM file.
//
// The Provider is an interface for opening an alignment file once and
// iterating over its records any number of times.  NewFakeProvider serves
// in-memory records for unittests.
package bamprovider
