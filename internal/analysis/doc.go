// Package analysis implements the kit comparison engine.
//
// Both analyses compare one reference kit against every other kit in the
// local database, restricted to kits whose haplogroup lineage is compatible
// with the reference.
//
// The SNP analysis counts shared markers: SNPs both kits tested positive
// for, plus "assumed" shares where only one side was tested but positive.
// The STR analysis computes genetic distance: the summed repeat differences
// over individual allele values, with multi-copy loci matched by minimal
// assignment, and a confidence interval on the per-value mean.
package analysis
