package loader

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"github.com/bet0x/bm25-retrieval-service/pkg/config"
	"github.com/bet0x/bm25-retrieval-service/pkg/postgres"
)

// LoadPostgres reads the corpus from the configured table, ordered by id so
// that document ids are stable across restarts. The metadata column is JSONB;
// NULL metadata becomes an empty map.
func LoadPostgres(ctx context.Context, cfg config.PostgresConfig) (*Corpus, error) {
	client, err := postgres.New(cfg)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	query := fmt.Sprintf(
		"SELECT text, metadata FROM %s ORDER BY id",
		pq.QuoteIdentifier(client.Table()),
	)
	rows, err := client.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying corpus table %s: %w", client.Table(), err)
	}
	defer rows.Close()

	corpus := &Corpus{}
	for rows.Next() {
		var text string
		var rawMeta sql.NullString
		if err := rows.Scan(&text, &rawMeta); err != nil {
			return nil, fmt.Errorf("scanning corpus row: %w", err)
		}
		var metadata map[string]any
		if rawMeta.Valid && rawMeta.String != "" {
			if err := json.Unmarshal([]byte(rawMeta.String), &metadata); err != nil {
				return nil, fmt.Errorf("parsing metadata for document %d: %w", corpus.Len(), err)
			}
		}
		corpus.add(text, metadata)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating corpus rows: %w", err)
	}
	return corpus, nil
}
