package migrations

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

func init() {
	goose.AddMigrationContext(upKeywordsToJSON, downKeywordsToJSON)
}

// Early builds stored website keywords as a comma separated string. The
// StringList column type expects a JSON array, so rewrite any legacy rows.
func upKeywordsToJSON(ctx context.Context, tx *sql.Tx) error {
	rows, err := tx.Query("SELECT id, keywords FROM website")
	if err != nil {
		return fmt.Errorf("getting website rows: %w", err)
	}
	defer rows.Close()

	updates := make(map[string]string)
	for rows.Next() {
		var id, keywords string
		if err := rows.Scan(&id, &keywords); err != nil {
			return fmt.Errorf("scanning row: %w", err)
		}

		trimmed := strings.TrimSpace(keywords)
		if trimmed == "" {
			updates[id] = "[]"
			continue
		}
		if strings.HasPrefix(trimmed, "[") {
			// Already a JSON array, leave it alone.
			continue
		}

		var list []string
		for _, kw := range strings.Split(trimmed, ",") {
			if kw = strings.TrimSpace(kw); kw != "" {
				list = append(list, kw)
			}
		}
		encoded, err := json.Marshal(list)
		if err != nil {
			return fmt.Errorf("encoding keywords for row %s : %w", id, err)
		}
		updates[id] = string(encoded)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating rows: %w", err)
	}

	for id, keywords := range updates {
		_, err = tx.Exec("UPDATE website SET keywords = ? WHERE id = ?", keywords, id)
		if err != nil {
			return fmt.Errorf("updating row %s : %w", id, err)
		}
	}
	return nil
}

func downKeywordsToJSON(ctx context.Context, tx *sql.Tx) error {
	rows, err := tx.Query("SELECT id, keywords FROM website")
	if err != nil {
		return fmt.Errorf("getting website rows for rollback: %w", err)
	}
	defer rows.Close()

	updates := make(map[string]string)
	for rows.Next() {
		var id, keywords string
		if err := rows.Scan(&id, &keywords); err != nil {
			return fmt.Errorf("scanning row for rollback: %w", err)
		}

		var list []string
		if err := json.Unmarshal([]byte(keywords), &list); err != nil {
			// Not a JSON array, leave the row untouched.
			continue
		}
		updates[id] = strings.Join(list, ",")
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating rows for rollback: %w", err)
	}

	for id, keywords := range updates {
		_, err = tx.Exec("UPDATE website SET keywords = ? WHERE id = ?", keywords, id)
		if err != nil {
			return fmt.Errorf("updating row %s for rollback: %w", id, err)
		}
	}
	return nil
}
