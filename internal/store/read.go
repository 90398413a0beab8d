package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alexreg/ycomp/internal/marker"
	"github.com/alexreg/ycomp/internal/tree"
)

// ReadTree loads the haplogroup tree. Returns a tree with zero nodes (not
// nil) when no tree has been fetched yet; callers check Len.
func (s *Store) ReadTree(ctx context.Context) (*tree.Tree, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, parent, age, age_cl, age_min, age_max, tmrca, tmrca_cl, tmrca_min, tmrca_max
		FROM haplogroups
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("read tree: %w", err)
	}
	defer rows.Close()

	index := make(map[string]int)
	var nodes []tree.Node
	for rows.Next() {
		var n tree.Node
		err := rows.Scan(
			&n.Name, &n.Parent,
			&n.Age, &n.AgeCL, &n.AgeMin, &n.AgeMax,
			&n.TMRCA, &n.TMRCACL, &n.TMRCAMin, &n.TMRCAMax,
		)
		if err != nil {
			return nil, fmt.Errorf("read tree: scan: %w", err)
		}
		index[n.Name] = len(nodes)
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read tree: %w", err)
	}

	snpRows, err := s.db.QueryContext(ctx, `
		SELECT haplogroup, snp, is_primary
		FROM haplogroup_snps
		ORDER BY haplogroup ASC, snp ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("read tree: %w", err)
	}
	defer snpRows.Close()

	for snpRows.Next() {
		var haplogroup, snp string
		var primary bool
		if err := snpRows.Scan(&haplogroup, &snp, &primary); err != nil {
			return nil, fmt.Errorf("read tree: scan: %w", err)
		}
		i, ok := index[haplogroup]
		if !ok {
			continue
		}
		if primary {
			nodes[i].PrimarySNPs = append(nodes[i].PrimarySNPs, snp)
		} else {
			nodes[i].ExtraSNPs = append(nodes[i].ExtraSNPs, snp)
		}
	}
	if err := snpRows.Err(); err != nil {
		return nil, fmt.Errorf("read tree: %w", err)
	}

	return tree.New(nodes), nil
}

// ReadAliases loads the SNP alias map (alias name to standard name).
func (s *Store) ReadAliases(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT snp, standard_name FROM snp_aliases`)
	if err != nil {
		return nil, fmt.Errorf("read aliases: %w", err)
	}
	defer rows.Close()

	aliases := make(map[string]string)
	for rows.Next() {
		var snp, standard string
		if err := rows.Scan(&snp, &standard); err != nil {
			return nil, fmt.Errorf("read aliases: scan: %w", err)
		}
		aliases[snp] = standard
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read aliases: %w", err)
	}
	return aliases, nil
}

// SNPKit is a stored kit with its SNP profile.
type SNPKit struct {
	marker.Kit
	Profile marker.SNPProfile
}

// STRKit is a stored kit with its STR profile.
type STRKit struct {
	marker.Kit
	Profile marker.STRProfile
}

// ReadSNPKits loads every kit in the SNP database with its calls, ordered
// by kit number.
func (s *Store) ReadSNPKits(ctx context.Context) ([]SNPKit, error) {
	kits, index, err := s.readKits(ctx, KindSNP)
	if err != nil {
		return nil, fmt.Errorf("read SNP kits: %w", err)
	}

	result := make([]SNPKit, len(kits))
	for i, kit := range kits {
		result[i] = SNPKit{Kit: kit, Profile: marker.SNPProfile{}}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT kit_number, snp, call
		FROM snp_calls
		ORDER BY kit_number ASC, snp ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("read SNP kits: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var number, snp string
		var positive bool
		if err := rows.Scan(&number, &snp, &positive); err != nil {
			return nil, fmt.Errorf("read SNP kits: scan: %w", err)
		}
		i, ok := index[number]
		if !ok {
			continue
		}
		call := marker.Negative
		if positive {
			call = marker.Positive
		}
		result[i].Profile[snp] = call
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read SNP kits: %w", err)
	}
	return result, nil
}

// ReadSTRKits loads every kit in the STR database with its allele values,
// ordered by kit number.
func (s *Store) ReadSTRKits(ctx context.Context) ([]STRKit, error) {
	kits, index, err := s.readKits(ctx, KindSTR)
	if err != nil {
		return nil, fmt.Errorf("read STR kits: %w", err)
	}

	result := make([]STRKit, len(kits))
	for i, kit := range kits {
		result[i] = STRKit{Kit: kit, Profile: marker.STRProfile{}}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT kit_number, locus, repeats
		FROM str_values
		ORDER BY kit_number ASC, locus ASC, copy_index ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("read STR kits: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var number, locus string
		var repeats int
		if err := rows.Scan(&number, &locus, &repeats); err != nil {
			return nil, fmt.Errorf("read STR kits: scan: %w", err)
		}
		i, ok := index[number]
		if !ok {
			continue
		}
		result[i].Profile[locus] = append(result[i].Profile[locus], repeats)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read STR kits: %w", err)
	}
	return result, nil
}

// readKits loads kit metadata for one kind, plus a kit-number index.
func (s *Store) readKits(ctx context.Context, kind Kind) ([]marker.Kit, map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kit_number, grp, ancestor, country, haplogroup
		FROM kits
		WHERE kind = ?
		ORDER BY kit_number ASC
	`, string(kind))
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var kits []marker.Kit
	index := make(map[string]int)
	for rows.Next() {
		var kit marker.Kit
		if err := rows.Scan(&kit.Number, &kit.Group, &kit.Ancestor, &kit.Country, &kit.Haplogroup); err != nil {
			return nil, nil, err
		}
		index[kit.Number] = len(kits)
		kits = append(kits, kit)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return kits, index, nil
}

func (s *Store) haplogroupNames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM haplogroups ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// StoredSession is the persisted FTDNA session row.
type StoredSession struct {
	Username    string
	ImportedAt  time.Time
	CookiesJSON []byte
}

// GetSession returns the stored FTDNA session, or nil when signed out.
func (s *Store) GetSession(ctx context.Context) (*StoredSession, error) {
	var (
		session    StoredSession
		importedAt string
		cookies    string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT username, imported_at, cookies FROM ftdna_session WHERE id = 1
	`).Scan(&session.Username, &importedAt, &cookies)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	session.ImportedAt, err = time.Parse(time.RFC3339, importedAt)
	if err != nil {
		return nil, fmt.Errorf("get session: bad timestamp: %w", err)
	}
	session.CookiesJSON = []byte(cookies)
	return &session, nil
}

// Fetch is one acquisition audit row.
type Fetch struct {
	ID        string
	Source    string
	Detail    string
	KitCount  int
	FetchedAt time.Time
}

// ListFetches returns the acquisition audit trail, newest first.
func (s *Store) ListFetches(ctx context.Context) ([]Fetch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, detail, kit_count, fetched_at
		FROM fetches
		ORDER BY fetched_at DESC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list fetches: %w", err)
	}
	defer rows.Close()

	var fetches []Fetch
	for rows.Next() {
		var f Fetch
		var fetchedAt string
		if err := rows.Scan(&f.ID, &f.Source, &f.Detail, &f.KitCount, &fetchedAt); err != nil {
			return nil, fmt.Errorf("list fetches: scan: %w", err)
		}
		f.FetchedAt, err = time.Parse(time.RFC3339, fetchedAt)
		if err != nil {
			return nil, fmt.Errorf("list fetches: bad timestamp: %w", err)
		}
		fetches = append(fetches, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list fetches: %w", err)
	}
	return fetches, nil
}
