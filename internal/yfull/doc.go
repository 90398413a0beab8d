// Package yfull reads data published by YFull: per-kit SNP and STR CSV
// exports, and the public haplogroup tree pages at yfull.com/tree.
//
// The CSV exports are semicolon-separated and carry vendor quirks (shifted
// columns, multi-SNP rows, multi-copy loci split across rows) that the
// parsers normalize into the marker types.
package yfull
