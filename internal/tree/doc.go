// Package tree models the Y-haplogroup tree and the lineage operations the
// analysis engine filters with: walking a haplogroup's ancestry, finding the
// common trunk of two lineages, and selecting SNPs by clade age.
package tree
