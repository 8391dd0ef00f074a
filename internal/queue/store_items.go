package queue

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrAlreadyQueued is returned by Add when a queued item with the same kind
// and identifier exists.
var ErrAlreadyQueued = errors.New("identifier already queued")

// Add enqueues a new item, snapshotting the bytes and checksum of each file.
func (s *Store) Add(ctx context.Context, in NewItem) (*Item, error) {
	if strings.TrimSpace(in.Kind) == "" || strings.TrimSpace(in.Identifier) == "" {
		return nil, errors.New("queue item requires kind and identifier")
	}
	if len(in.Files) == 0 {
		return nil, errors.New("queue item requires at least one file")
	}

	timestamp := formatTime(time.Now())
	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(
			ctx,
			`INSERT INTO queue_items (
                kind, identifier, name, author, version, description, is_update,
                status, created_at, updated_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			in.Kind,
			in.Identifier,
			in.Name,
			in.Author,
			nullableString(in.Version),
			nullableString(in.Description),
			boolToInt(in.Update),
			StatusQueued,
			timestamp,
			timestamp,
		)
		if err != nil {
			return err
		}
		if id, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}

		for position, file := range in.Files {
			sum := sha256.Sum256(file.Content)
			if _, err := tx.ExecContext(
				ctx,
				`INSERT INTO queue_files (item_id, position, repo_path, source_name, size, sha256, content)
                 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				id,
				position,
				file.RepoPath,
				nullableString(file.SourceName),
				len(file.Content),
				hex.EncodeToString(sum[:]),
				file.Content,
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%s %q: %w", in.Kind, in.Identifier, ErrAlreadyQueued)
		}
		return nil, fmt.Errorf("insert item: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches a queue item with its file list (without contents).
// It returns nil when no item has the given ID.
func (s *Store) GetByID(ctx context.Context, id int64) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM queue_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if err := s.attachFiles(ctx, []*Item{item}, false); err != nil {
		return nil, err
	}
	return item, nil
}

// List returns queue items filtered by status set (or all items when no status
// is provided), oldest first. File lists are loaded without contents.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Item, error) {
	items, err := s.listItems(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	if err := s.attachFiles(ctx, items, false); err != nil {
		return nil, err
	}
	return items, nil
}

// Queued returns every queued item with file contents loaded, in the order
// the items were added.
func (s *Store) Queued(ctx context.Context) ([]*Item, error) {
	items, err := s.listItems(ctx, StatusQueued)
	if err != nil {
		return nil, err
	}
	if err := s.attachFiles(ctx, items, true); err != nil {
		return nil, err
	}
	return items, nil
}

// FindQueued returns the ID of the queued item with the given kind and
// identifier (case-insensitive), or 0 when there is none.
func (s *Store) FindQueued(ctx context.Context, kind, identifier string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(
		ctx,
		`SELECT id FROM queue_items
         WHERE status = ? AND kind = ? AND identifier = ? COLLATE NOCASE
         ORDER BY id LIMIT 1`,
		StatusQueued,
		kind,
		identifier,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("find queued: %w", err)
	}
	return id, nil
}

// Remove deletes an item and its files.
func (s *Store) Remove(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM queue_items WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Clear removes every queued item. Submitted items are kept.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM queue_items WHERE status = ?`, StatusQueued)
	if err != nil {
		return 0, fmt.Errorf("clear queue: %w", err)
	}
	return res.RowsAffected()
}

// ClearSubmitted removes items that already reached a pull request.
func (s *Store) ClearSubmitted(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM queue_items WHERE status = ?`, StatusSubmitted)
	if err != nil {
		return 0, fmt.Errorf("clear submitted: %w", err)
	}
	return res.RowsAffected()
}

// MarkSubmitted moves items to submitted, records the pull request URL, and
// drops the stored file contents.
func (s *Store) MarkSubmitted(ctx context.Context, ids []int64, prURL string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := makePlaceholders(len(ids))
	idArgs := int64Args(ids)
	return s.withTx(ctx, func(tx *sql.Tx) error {
		args := append([]any{StatusSubmitted, nullableString(prURL), formatTime(time.Now())}, idArgs...)
		if _, err := tx.ExecContext(
			ctx,
			`UPDATE queue_items
             SET status = ?, pr_url = ?, error_message = NULL, updated_at = ?
             WHERE id IN (`+placeholders+`)`,
			args...,
		); err != nil {
			return fmt.Errorf("mark submitted: %w", err)
		}
		if _, err := tx.ExecContext(
			ctx,
			`UPDATE queue_files SET content = NULL WHERE item_id IN (`+placeholders+`)`,
			idArgs...,
		); err != nil {
			return fmt.Errorf("release file contents: %w", err)
		}
		return nil
	})
}

// RecordError stores message as the last error of each item without
// changing its status.
func (s *Store) RecordError(ctx context.Context, ids []int64, message string) error {
	if len(ids) == 0 {
		return nil
	}
	args := append([]any{nullableString(message), formatTime(time.Now())}, int64Args(ids)...)
	if _, err := s.execWithRetry(
		ctx,
		`UPDATE queue_items SET error_message = ?, updated_at = ? WHERE id IN (`+makePlaceholders(len(ids))+`)`,
		args...,
	); err != nil {
		return fmt.Errorf("record error: %w", err)
	}
	return nil
}

func (s *Store) listItems(ctx context.Context, statuses ...Status) ([]*Item, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + itemColumns + ` FROM queue_items`
	orderClause := ` ORDER BY id`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list queue items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *Store) attachFiles(ctx context.Context, items []*Item, withContent bool) error {
	if len(items) == 0 {
		return nil
	}
	byID := make(map[int64]*Item, len(items))
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		byID[item.ID] = item
		ids = append(ids, item.ID)
	}

	contentColumn := "NULL"
	if withContent {
		contentColumn = "content"
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT item_id, repo_path, source_name, size, sha256, `+contentColumn+`
         FROM queue_files WHERE item_id IN (`+makePlaceholders(len(ids))+`)
         ORDER BY item_id, position`,
		int64Args(ids)...,
	)
	if err != nil {
		return fmt.Errorf("load queue files: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			itemID     int64
			file       File
			sourceName sql.NullString
			content    []byte
		)
		if err := rows.Scan(&itemID, &file.RepoPath, &sourceName, &file.Size, &file.SHA256, &content); err != nil {
			return fmt.Errorf("scan queue file: %w", err)
		}
		file.SourceName = sourceName.String
		file.Content = content
		if item := byID[itemID]; item != nil {
			item.Files = append(item.Files, file)
		}
	}
	return rows.Err()
}
