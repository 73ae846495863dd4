// Package pipeline connects the amplicon estimator to the programs around it.
//
// The aligner, the per-window read extractor, and the haplotype reconstructor
// are capability interfaces with one operation each.  The Command*
// implementations run external programs; StoreExtractor extracts windows
// from the in-memory alignment store.  Estimate computes and saves the
// amplicon intervals; Run passes each interval to the extractor and then the
// reconstructor.
package pipeline
