/*Package interval defines the half-open reference intervals handed to
  per-window processing, and ordered non-overlapping sequences of them
  (partitions).
  A partition can also be viewed as a sorted sequence of endpoints
  {start0, stop0, start1, stop1, ...}, which is the representation used for
  position lookups.
  It assumes every position fits in a PosType, which is currently defined as
  int32 since that's what BAM files are limited to.
*/
package interval
