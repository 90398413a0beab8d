package store

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/alexreg/ycomp/internal/marker"
	"github.com/alexreg/ycomp/internal/tree"
)

// MergeTree upserts tree nodes and SNP aliases. Existing nodes are replaced
// wholesale (their SNP lists included); nodes absent from the new fetch are
// left untouched, so successive subtree fetches accumulate.
func (s *Store) MergeTree(ctx context.Context, nodes []tree.Node, aliases []tree.Alias) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("merge tree: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	for _, node := range nodes {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO haplogroups
			(name, parent, age, age_cl, age_min, age_max, tmrca, tmrca_cl, tmrca_min, tmrca_max)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(name) DO UPDATE SET
				parent = excluded.parent,
				age = excluded.age, age_cl = excluded.age_cl,
				age_min = excluded.age_min, age_max = excluded.age_max,
				tmrca = excluded.tmrca, tmrca_cl = excluded.tmrca_cl,
				tmrca_min = excluded.tmrca_min, tmrca_max = excluded.tmrca_max
		`,
			node.Name, node.Parent,
			node.Age, node.AgeCL, node.AgeMin, node.AgeMax,
			node.TMRCA, node.TMRCACL, node.TMRCAMin, node.TMRCAMax,
		)
		if err != nil {
			return fmt.Errorf("merge tree: haplogroup %s: %w", node.Name, err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM haplogroup_snps WHERE haplogroup = ?`, node.Name); err != nil {
			return fmt.Errorf("merge tree: haplogroup %s: %w", node.Name, err)
		}
		if err := insertHaplogroupSNPs(ctx, tx, node.Name, node.PrimarySNPs, true); err != nil {
			return err
		}
		if err := insertHaplogroupSNPs(ctx, tx, node.Name, node.ExtraSNPs, false); err != nil {
			return err
		}
	}

	for _, alias := range aliases {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO snp_aliases (snp, standard_name)
			VALUES (?, ?)
			ON CONFLICT(snp) DO UPDATE SET standard_name = excluded.standard_name
		`, alias.SNP, alias.Standard)
		if err != nil {
			return fmt.Errorf("merge tree: alias %s: %w", alias.SNP, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("merge tree: commit: %w", err)
	}
	return nil
}

func insertHaplogroupSNPs(ctx context.Context, tx *sql.Tx, haplogroup string, snps []string, primary bool) error {
	for _, snp := range snps {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO haplogroup_snps (haplogroup, snp, is_primary)
			VALUES (?, ?, ?)
			ON CONFLICT(haplogroup, snp) DO UPDATE SET is_primary = excluded.is_primary
		`, haplogroup, snp, primary)
		if err != nil {
			return fmt.Errorf("merge tree: haplogroup %s SNP %s: %w", haplogroup, snp, err)
		}
	}
	return nil
}

// PutSNPKit replaces a kit's metadata and SNP calls in the SNP database.
// No-calls are not stored; a missing row reads back as no call.
func (s *Store) PutSNPKit(ctx context.Context, kit marker.Kit, profile marker.SNPProfile) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("put SNP kit: begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := putKitTx(ctx, tx, KindSNP, kit); err != nil {
		return fmt.Errorf("put SNP kit %s: %w", kit.Number, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM snp_calls WHERE kit_number = ?`, kit.Number); err != nil {
		return fmt.Errorf("put SNP kit %s: %w", kit.Number, err)
	}

	// Deterministic insert order keeps the WAL stable across reruns.
	snps := make([]string, 0, len(profile))
	for snp := range profile {
		snps = append(snps, snp)
	}
	sort.Strings(snps)

	for _, snp := range snps {
		call := profile[snp]
		if call == marker.NoCall {
			continue
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO snp_calls (kit_number, snp, call) VALUES (?, ?, ?)
		`, kit.Number, snp, call == marker.Positive)
		if err != nil {
			return fmt.Errorf("put SNP kit %s: SNP %s: %w", kit.Number, snp, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("put SNP kit %s: commit: %w", kit.Number, err)
	}
	return nil
}

// PutSTRKit replaces a kit's metadata and STR values in the STR database.
func (s *Store) PutSTRKit(ctx context.Context, kit marker.Kit, profile marker.STRProfile) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("put STR kit: begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := putKitTx(ctx, tx, KindSTR, kit); err != nil {
		return fmt.Errorf("put STR kit %s: %w", kit.Number, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM str_values WHERE kit_number = ?`, kit.Number); err != nil {
		return fmt.Errorf("put STR kit %s: %w", kit.Number, err)
	}

	loci := make([]string, 0, len(profile))
	for locus := range profile {
		loci = append(loci, locus)
	}
	sort.Strings(loci)

	for _, locus := range loci {
		for i, repeats := range profile[locus] {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO str_values (kit_number, locus, copy_index, repeats)
				VALUES (?, ?, ?, ?)
			`, kit.Number, locus, i, repeats)
			if err != nil {
				return fmt.Errorf("put STR kit %s: locus %s: %w", kit.Number, locus, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("put STR kit %s: commit: %w", kit.Number, err)
	}
	return nil
}

func putKitTx(ctx context.Context, tx *sql.Tx, kind Kind, kit marker.Kit) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO kits (kind, kit_number, grp, ancestor, country, haplogroup)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(kind, kit_number) DO UPDATE SET
			grp = excluded.grp,
			ancestor = excluded.ancestor,
			country = excluded.country,
			haplogroup = excluded.haplogroup
	`, string(kind), kit.Number, kit.Group, kit.Ancestor, kit.Country, kit.Haplogroup)
	return err
}

// MergeSTRMetadata copies non-empty metadata fields from the STR database
// onto matching kits in the SNP database. STR group pages carry the richer
// metadata (group, country), which SNP pages lack.
func (s *Store) MergeSTRMetadata(ctx context.Context) (updated int64, err error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE kits AS snp SET
			grp = COALESCE(NULLIF(str.grp, ''), snp.grp),
			ancestor = COALESCE(NULLIF(str.ancestor, ''), snp.ancestor),
			country = COALESCE(NULLIF(str.country, ''), snp.country),
			haplogroup = COALESCE(NULLIF(str.haplogroup, ''), snp.haplogroup)
		FROM kits AS str
		WHERE snp.kind = 'snp' AND str.kind = 'str' AND str.kit_number = snp.kit_number
	`)
	if err != nil {
		return 0, fmt.Errorf("merge STR metadata: %w", err)
	}
	updated, err = result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("merge STR metadata: %w", err)
	}
	return updated, nil
}

// PruneTree deletes every haplogroup whose name does not match the pattern.
// Returns how many haplogroups were kept out of the previous total.
func (s *Store) PruneTree(ctx context.Context, keep *regexp.Regexp) (kept, total int, err error) {
	names, err := s.haplogroupNames(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("prune tree: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("prune tree: begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, name := range names {
		if keep.MatchString(name) {
			kept++
			continue
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM haplogroups WHERE name = ?`, name); err != nil {
			return 0, 0, fmt.Errorf("prune tree: haplogroup %s: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("prune tree: commit: %w", err)
	}
	return kept, len(names), nil
}

// DeleteTree removes all haplogroup tree data. SNP aliases are kept: they
// remain valid independently of which subtree is loaded.
func (s *Store) DeleteTree(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM haplogroups`); err != nil {
		return fmt.Errorf("delete tree: %w", err)
	}
	return nil
}

// PutSession stores the FTDNA session, replacing any previous one. The
// cookie payload is opaque JSON owned by the ftdna package.
func (s *Store) PutSession(ctx context.Context, username string, importedAt time.Time, cookiesJSON []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ftdna_session (id, username, imported_at, cookies)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			username = excluded.username,
			imported_at = excluded.imported_at,
			cookies = excluded.cookies
	`, username, importedAt.UTC().Format(time.RFC3339), string(cookiesJSON))
	if err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

// ClearSession removes the stored FTDNA session, if any.
func (s *Store) ClearSession(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM ftdna_session`); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// RecordFetch writes an audit row for one acquisition and returns its ID.
func (s *Store) RecordFetch(ctx context.Context, source, detail string, kitCount int) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO fetches (id, source, detail, kit_count, fetched_at)
		VALUES (?, ?, ?, ?, ?)
	`, id, source, detail, kitCount, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return "", fmt.Errorf("record fetch: %w", err)
	}
	return id, nil
}
