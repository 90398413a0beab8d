// Package marker provides the core value types for Y-chromosome marker data.
//
// This package contains type definitions only. All other internal packages
// import marker; marker imports nothing internal. This keeps it the
// foundational layer with no circular dependencies.
//
// Two marker families are modeled:
//   - SNP calls, a tri-state (no call / negative / positive) keyed by SNP name
//   - STR values, a list of repeat counts per locus (multi-copy loci such as
//     DYS385 carry more than one value)
package marker
