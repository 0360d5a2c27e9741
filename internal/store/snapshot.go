package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when no snapshot exists for a root.
var ErrNotFound = errors.New("store: snapshot not found")

// SaveSnapshot replaces the stored snapshot of snap.Root in one
// transaction.
func (s *Store) SaveSnapshot(ctx context.Context, snap Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save snapshot: begin: %w", err)
	}
	defer tx.Rollback()

	if err := deleteProjectTx(ctx, tx, snap.Root); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	indexed := snap.IndexedAt
	if indexed.IsZero() {
		indexed = time.Now()
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO projects (root, name, pod_prefix, module_unification, namespaces, indexed_at) VALUES (?, ?, ?, ?, ?, ?)`,
		snap.Root, snap.Name, snap.PodPrefix, snap.ModuleUnification, snap.Namespaces, indexed.UTC())
	if err != nil {
		return fmt.Errorf("save snapshot: project %s: %w", snap.Root, err)
	}
	projectID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("save snapshot: project id: %w", err)
	}

	for i, a := range snap.Addons {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO addons (project_id, ordinal, name, root, script) VALUES (?, ?, ?, ?, ?)`,
			projectID, i, a.Name, a.Root, a.Script); err != nil {
			return fmt.Errorf("save snapshot: addon %q: %w", a.Name, err)
		}
	}

	fileStmt, err := tx.PrepareContext(ctx, `INSERT INTO files (project_id, path, hash) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("save snapshot: prepare files: %w", err)
	}
	defer fileStmt.Close()
	symStmt, err := tx.PrepareContext(ctx, `INSERT INTO symbols (file_id, type, name, is_test) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("save snapshot: prepare symbols: %w", err)
	}
	defer symStmt.Close()

	fileIDs := make(map[string]int64)
	for _, sym := range snap.Symbols {
		fileID, ok := fileIDs[sym.Path]
		if !ok {
			res, err := fileStmt.ExecContext(ctx, projectID, sym.Path, sym.Hash)
			if err != nil {
				return fmt.Errorf("save snapshot: file %s: %w", sym.Path, err)
			}
			if fileID, err = res.LastInsertId(); err != nil {
				return fmt.Errorf("save snapshot: file id: %w", err)
			}
			fileIDs[sym.Path] = fileID
		}
		if _, err := symStmt.ExecContext(ctx, fileID, sym.Type, sym.Name, sym.Test); err != nil {
			return fmt.Errorf("save snapshot: symbol %s %q: %w", sym.Type, sym.Name, err)
		}
	}

	return tx.Commit()
}

// LoadSnapshot reads the stored snapshot of root. Symbols are ordered by
// type, name and path.
func (s *Store) LoadSnapshot(ctx context.Context, root string) (*Snapshot, error) {
	var (
		snap      = Snapshot{Root: root}
		projectID int64
		name, pod sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, pod_prefix, module_unification, namespaces, indexed_at FROM projects WHERE root = ?`, root,
	).Scan(&projectID, &name, &pod, &snap.ModuleUnification, &snap.Namespaces, &snap.IndexedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, root)
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	snap.Name, snap.PodPrefix = name.String, pod.String

	rows, err := s.db.QueryContext(ctx,
		`SELECT name, root, script FROM addons WHERE project_id = ? ORDER BY ordinal`, projectID)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: addons: %w", err)
	}
	for rows.Next() {
		var (
			a      Addon
			script sql.NullString
		)
		if err := rows.Scan(&a.Name, &a.Root, &script); err != nil {
			rows.Close()
			return nil, fmt.Errorf("load snapshot: scan addon: %w", err)
		}
		a.Script = script.String
		snap.Addons = append(snap.Addons, a)
	}
	rows.Close()

	syms, err := s.querySymbols(ctx,
		`SELECT s.type, s.name, f.path, s.is_test, f.hash FROM symbols s JOIN files f ON f.id = s.file_id
		 WHERE f.project_id = ? ORDER BY s.type, s.name, f.path`, projectID)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	snap.Symbols = syms
	return &snap, nil
}

// Projects lists the stored snapshots ordered by root.
func (s *Store) Projects(ctx context.Context) ([]ProjectInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.root, p.name, p.indexed_at,
		       (SELECT COUNT(*) FROM symbols s JOIN files f ON f.id = s.file_id WHERE f.project_id = p.id)
		FROM projects p ORDER BY p.root`)
	if err != nil {
		return nil, fmt.Errorf("projects: %w", err)
	}
	defer rows.Close()

	var out []ProjectInfo
	for rows.Next() {
		var (
			info ProjectInfo
			name sql.NullString
		)
		if err := rows.Scan(&info.Root, &name, &info.IndexedAt, &info.Symbols); err != nil {
			return nil, fmt.Errorf("projects: scan: %w", err)
		}
		info.Name = name.String
		out = append(out, info)
	}
	return out, rows.Err()
}

// FindSymbols returns the stored symbols of root whose name contains
// substr, restricted to types when any are given.
func (s *Store) FindSymbols(ctx context.Context, root, substr string, types ...string) ([]Symbol, error) {
	q := `SELECT s.type, s.name, f.path, s.is_test, f.hash FROM symbols s
		JOIN files f ON f.id = s.file_id JOIN projects p ON p.id = f.project_id
		WHERE p.root = ? AND s.name LIKE ? ESCAPE '\'`
	args := []any{root, "%" + escapeLike(substr) + "%"}
	if len(types) > 0 {
		q += ` AND s.type IN (` + placeholderList(len(types)) + `)`
		args = append(args, stringsToArgs(types)...)
	}
	q += ` ORDER BY s.type, s.name, f.path`

	syms, err := s.querySymbols(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("find symbols: %w", err)
	}
	return syms, nil
}

// DeleteSnapshot removes the stored snapshot of root, if any.
func (s *Store) DeleteSnapshot(ctx context.Context, root string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete snapshot: begin: %w", err)
	}
	defer tx.Rollback()
	if err := deleteProjectTx(ctx, tx, root); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return tx.Commit()
}

func (s *Store) querySymbols(ctx context.Context, q string, args ...any) ([]Symbol, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Symbol
	for rows.Next() {
		var (
			sym  Symbol
			hash sql.NullString
		)
		if err := rows.Scan(&sym.Type, &sym.Name, &sym.Path, &sym.Test, &hash); err != nil {
			return nil, fmt.Errorf("scan symbol: %w", err)
		}
		sym.Hash = hash.String
		out = append(out, sym)
	}
	return out, rows.Err()
}

// deleteProjectTx removes a project's rows in reverse-dependency order.
func deleteProjectTx(ctx context.Context, tx *sql.Tx, root string) error {
	for _, q := range []string{
		`DELETE FROM symbols WHERE file_id IN (SELECT f.id FROM files f JOIN projects p ON p.id = f.project_id WHERE p.root = ?)`,
		`DELETE FROM files WHERE project_id IN (SELECT id FROM projects WHERE root = ?)`,
		`DELETE FROM addons WHERE project_id IN (SELECT id FROM projects WHERE root = ?)`,
		`DELETE FROM projects WHERE root = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, root); err != nil {
			return fmt.Errorf("delete project %s: %w", root, err)
		}
	}
	return nil
}

func escapeLike(s string) string {
	var b []byte
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%', '_', '\\':
			b = append(b, '\\')
		}
		b = append(b, s[i])
	}
	return string(b)
}
