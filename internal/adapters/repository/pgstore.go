package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zerox80/riftstats/internal/domain/model"
	"github.com/zerox80/riftstats/pkg/metrics"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS item_stats (
	champion TEXT   NOT NULL,
	role     TEXT   NOT NULL,
	patch    TEXT   NOT NULL,
	queue_id INT    NOT NULL,
	variant  TEXT   NOT NULL,
	games    BIGINT NOT NULL DEFAULT 0,
	wins     BIGINT NOT NULL DEFAULT 0,
	PRIMARY KEY (champion, role, patch, queue_id, variant)
);
CREATE TABLE IF NOT EXISTS item_stats_top (
	champion TEXT   NOT NULL,
	role     TEXT   NOT NULL,
	patch    TEXT   NOT NULL,
	queue_id INT    NOT NULL,
	rank     INT    NOT NULL,
	variant  TEXT   NOT NULL,
	games    BIGINT NOT NULL,
	wins     BIGINT NOT NULL,
	PRIMARY KEY (champion, role, patch, queue_id, rank)
);
CREATE TABLE IF NOT EXISTS rune_stats (
	champion TEXT   NOT NULL,
	role     TEXT   NOT NULL,
	patch    TEXT   NOT NULL,
	queue_id INT    NOT NULL,
	variant  TEXT   NOT NULL,
	games    BIGINT NOT NULL DEFAULT 0,
	wins     BIGINT NOT NULL DEFAULT 0,
	PRIMARY KEY (champion, role, patch, queue_id, variant)
);
CREATE TABLE IF NOT EXISTS rune_stats_top (
	champion TEXT   NOT NULL,
	role     TEXT   NOT NULL,
	patch    TEXT   NOT NULL,
	queue_id INT    NOT NULL,
	rank     INT    NOT NULL,
	variant  TEXT   NOT NULL,
	games    BIGINT NOT NULL,
	wins     BIGINT NOT NULL,
	PRIMARY KEY (champion, role, patch, queue_id, rank)
);
CREATE TABLE IF NOT EXISTS spell_stats (
	champion TEXT   NOT NULL,
	role     TEXT   NOT NULL,
	patch    TEXT   NOT NULL,
	queue_id INT    NOT NULL,
	variant  TEXT   NOT NULL,
	games    BIGINT NOT NULL DEFAULT 0,
	wins     BIGINT NOT NULL DEFAULT 0,
	PRIMARY KEY (champion, role, patch, queue_id, variant)
);
CREATE TABLE IF NOT EXISTS spell_stats_top (
	champion TEXT   NOT NULL,
	role     TEXT   NOT NULL,
	patch    TEXT   NOT NULL,
	queue_id INT    NOT NULL,
	rank     INT    NOT NULL,
	variant  TEXT   NOT NULL,
	games    BIGINT NOT NULL,
	wins     BIGINT NOT NULL,
	PRIMARY KEY (champion, role, patch, queue_id, rank)
);
CREATE TABLE IF NOT EXISTS lp_history (
	id            BIGSERIAL PRIMARY KEY,
	puuid         TEXT        NOT NULL,
	queue_type    TEXT        NOT NULL,
	tier          TEXT        NOT NULL,
	division      TEXT        NOT NULL,
	league_points INT         NOT NULL,
	recorded_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_lp_history_lookup ON lp_history (puuid, queue_type, recorded_at);
`

// Connect opens a pool, verifies connectivity and ensures the schema.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return pool, nil
}

// PGCounterStore is the Postgres CounterStore. One instance serves one
// statistic kind; the counter and leaderboard table names are fixed at
// construction.
type PGCounterStore[K VariantKey] struct {
	pool     *pgxpool.Pool
	table    string
	topTable string
	decode   func(string) (K, error)
	name     string
}

// NewPGItemStore returns the item-set store over item_stats.
func NewPGItemStore(pool *pgxpool.Pool) *PGCounterStore[ItemKey] {
	return &PGCounterStore[ItemKey]{pool: pool, table: "item_stats", topTable: "item_stats_top", decode: ParseItemKey, name: "items"}
}

// NewPGRuneStore returns the rune-page store over rune_stats.
func NewPGRuneStore(pool *pgxpool.Pool) *PGCounterStore[RuneKey] {
	return &PGCounterStore[RuneKey]{pool: pool, table: "rune_stats", topTable: "rune_stats_top", decode: ParseRuneKey, name: "runes"}
}

// NewPGSpellStore returns the spell-pair store over spell_stats.
func NewPGSpellStore(pool *pgxpool.Pool) *PGCounterStore[SpellPairKey] {
	return &PGCounterStore[SpellPairKey]{pool: pool, table: "spell_stats", topTable: "spell_stats_top", decode: ParseSpellPairKey, name: "spells"}
}

// Merge implements CounterStore. Each row is a single-statement upsert, so
// concurrent merges into the same variant accumulate without lost updates.
func (s *PGCounterStore[K]) Merge(ctx context.Context, scope StatKey, rows []StatRow[K]) error {
	if scope.Champion == "" {
		return ErrInvalidScope
	}
	if len(rows) == 0 {
		return nil
	}

	upsert := fmt.Sprintf(`
		INSERT INTO %s (champion, role, patch, queue_id, variant, games, wins)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (champion, role, patch, queue_id, variant)
		DO UPDATE SET games = %s.games + EXCLUDED.games, wins = %s.wins + EXCLUDED.wins`,
		s.table, s.table, s.table)

	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(upsert, scope.Champion, string(scope.Role), scope.Patch, scope.QueueID,
			row.Key.Variant(), row.Games, row.Wins)
	}
	br := s.pool.SendBatch(ctx, batch)
	defer func() { _ = br.Close() }()
	for range rows {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("merge %s: %w", s.table, err)
		}
		metrics.RecordObservationMerged(s.name)
	}
	return nil
}

// TopN implements CounterStore.
func (s *PGCounterStore[K]) TopN(ctx context.Context, scope StatKey, n int) ([]StatRow[K], error) {
	if n < 1 {
		return nil, ErrInvalidLimit
	}
	query := fmt.Sprintf(`
		SELECT variant, games, wins FROM %s
		WHERE champion = $1 AND role = $2 AND patch = $3 AND queue_id = $4
		ORDER BY games DESC, wins DESC, variant ASC
		LIMIT $5`, s.table)

	return s.queryRows(ctx, query, scope.Champion, string(scope.Role), scope.Patch, scope.QueueID, n)
}

// ReplaceScope implements CounterStore: one transaction clears every role
// of the {champion, patch, queueID} scope and reinserts the fresh rows.
func (s *PGCounterStore[K]) ReplaceScope(ctx context.Context, champion, patch string, queueID int, rows map[StatKey][]StatRow[K]) error {
	if champion == "" {
		return ErrInvalidScope
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("replace %s: begin: %w", s.table, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	del := fmt.Sprintf(`DELETE FROM %s WHERE champion = $1 AND patch = $2 AND queue_id = $3`, s.table)
	if _, err := tx.Exec(ctx, del, champion, patch, queueID); err != nil {
		return fmt.Errorf("replace %s: clear: %w", s.table, err)
	}

	ins := fmt.Sprintf(`
		INSERT INTO %s (champion, role, patch, queue_id, variant, games, wins)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`, s.table)
	for scope, scoped := range rows {
		for _, row := range scoped {
			if _, err := tx.Exec(ctx, ins, scope.Champion, string(scope.Role), scope.Patch, scope.QueueID,
				row.Key.Variant(), row.Games, row.Wins); err != nil {
				return fmt.Errorf("replace %s: insert: %w", s.table, err)
			}
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("replace %s: commit: %w", s.table, err)
	}
	return nil
}

// Publish implements CounterStore: delete then insert inside one
// transaction, so the scope's leaderboard flips atomically.
func (s *PGCounterStore[K]) Publish(ctx context.Context, scope StatKey, rows []StatRow[K]) error {
	if scope.Champion == "" {
		return ErrInvalidScope
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("publish %s: begin: %w", s.topTable, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	del := fmt.Sprintf(`DELETE FROM %s WHERE champion = $1 AND role = $2 AND patch = $3 AND queue_id = $4`, s.topTable)
	if _, err := tx.Exec(ctx, del, scope.Champion, string(scope.Role), scope.Patch, scope.QueueID); err != nil {
		return fmt.Errorf("publish %s: clear: %w", s.topTable, err)
	}

	ins := fmt.Sprintf(`
		INSERT INTO %s (champion, role, patch, queue_id, rank, variant, games, wins)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`, s.topTable)
	for i, row := range rows {
		if _, err := tx.Exec(ctx, ins, scope.Champion, string(scope.Role), scope.Patch, scope.QueueID,
			i+1, row.Key.Variant(), row.Games, row.Wins); err != nil {
			return fmt.Errorf("publish %s: insert rank %d: %w", s.topTable, i+1, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("publish %s: commit: %w", s.topTable, err)
	}
	metrics.RecordScopePublish()
	return nil
}

// Published implements CounterStore.
func (s *PGCounterStore[K]) Published(ctx context.Context, scope StatKey, n int) ([]StatRow[K], error) {
	if n < 1 {
		return nil, ErrInvalidLimit
	}
	query := fmt.Sprintf(`
		SELECT variant, games, wins FROM %s
		WHERE champion = $1 AND role = $2 AND patch = $3 AND queue_id = $4
		ORDER BY rank ASC
		LIMIT $5`, s.topTable)

	return s.queryRows(ctx, query, scope.Champion, string(scope.Role), scope.Patch, scope.QueueID, n)
}

// Scopes implements CounterStore.
func (s *PGCounterStore[K]) Scopes(ctx context.Context) ([]StatKey, error) {
	query := fmt.Sprintf(`
		SELECT DISTINCT champion, role, patch, queue_id FROM %s
		ORDER BY champion, patch, queue_id, role`, s.table)

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("scopes %s: %w", s.table, err)
	}
	defer rows.Close()

	var scopes []StatKey
	for rows.Next() {
		var scope StatKey
		var role string
		if err := rows.Scan(&scope.Champion, &role, &scope.Patch, &scope.QueueID); err != nil {
			return nil, fmt.Errorf("scopes %s: scan: %w", s.table, err)
		}
		scope.Role = model.Role(role)
		scopes = append(scopes, scope)
	}
	return scopes, rows.Err()
}

func (s *PGCounterStore[K]) queryRows(ctx context.Context, query string, args ...any) ([]StatRow[K], error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.table, err)
	}
	defer rows.Close()

	var out []StatRow[K]
	for rows.Next() {
		var variant string
		var row StatRow[K]
		if err := rows.Scan(&variant, &row.Games, &row.Wins); err != nil {
			return nil, fmt.Errorf("query %s: scan: %w", s.table, err)
		}
		key, err := s.decode(variant)
		if err != nil {
			return nil, err
		}
		row.Key = key
		out = append(out, row)
	}
	return out, rows.Err()
}
