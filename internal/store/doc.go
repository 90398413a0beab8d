// Package store provides SQLite-backed storage for ycomp's local databases.
//
// One database file holds everything the tool accumulates:
//   - Haplogroup tree nodes and their SNPs (from YFull)
//   - SNP name aliases (equivalent names mapping to a standard name)
//   - Kits and their SNP calls / STR values (from YFull exports and FTDNA
//     group scrapes), kept separately per marker kind
//   - The imported FTDNA session cookies
//   - An audit row per fetch
//
// Merge semantics follow the tool's "newest wins" rule: re-adding a kit
// replaces its metadata and marker rows; re-fetching a tree upserts nodes.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: enforce referential integrity
package store
