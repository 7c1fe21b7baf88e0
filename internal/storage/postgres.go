package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/your-org/unfold/internal/config"
	"github.com/your-org/unfold/internal/models"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(cfg config.DatabaseConfig) (*PostgresStore, error) {
	return newPostgresStore(cfg.DSN(), int32(cfg.MaxConns))
}

// NewPostgresStoreFromDSN connects with a raw connection string.
func NewPostgresStoreFromDSN(dsn string) (*PostgresStore, error) {
	return newPostgresStore(dsn, 4)
}

func newPostgresStore(dsn string, maxConns int32) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = maxConns

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// EnsureSchema creates the tables the resolver needs. Safe to call on every
// startup.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS persons (
			id BIGINT PRIMARY KEY,
			first_name TEXT NOT NULL DEFAULT '',
			last_name TEXT NOT NULL DEFAULT '',
			record JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS person_faces (
			id BIGSERIAL PRIMARY KEY,
			person_id BIGINT NOT NULL REFERENCES persons(id) ON DELETE CASCADE,
			embedding vector(512) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS person_faces_person_idx ON person_faces (person_id)`,
		`CREATE TABLE IF NOT EXISTS checkpoints (
			person_id BIGINT PRIMARY KEY REFERENCES persons(id) ON DELETE CASCADE,
			telegram_checked BOOLEAN NOT NULL DEFAULT FALSE,
			instagram_checked BOOLEAN NOT NULL DEFAULT FALSE,
			facebook_checked BOOLEAN NOT NULL DEFAULT FALSE,
			twitter_checked BOOLEAN NOT NULL DEFAULT FALSE
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// --- Persons ---

// SavePerson upserts the full person record and replaces its face vectors.
// The JSONB record is the source of truth; person_faces only exists for
// similarity search.
func (s *PostgresStore) SavePerson(ctx context.Context, p *models.Person) error {
	record, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode person %d: %w", p.ID, err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin save person: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO persons (id, first_name, last_name, record)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE
		 SET first_name = EXCLUDED.first_name,
		     last_name = EXCLUDED.last_name,
		     record = EXCLUDED.record,
		     updated_at = now()`,
		p.ID, p.FirstName, p.LastName, record)
	if err != nil {
		return fmt.Errorf("save person %d: %w", p.ID, err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM person_faces WHERE person_id = $1`, p.ID); err != nil {
		return fmt.Errorf("clear person faces: %w", err)
	}
	for _, emb := range p.FaceEmbeddings {
		vec := pgvector.NewVector(emb)
		if _, err := tx.Exec(ctx,
			`INSERT INTO person_faces (person_id, embedding) VALUES ($1, $2)`,
			p.ID, vec); err != nil {
			return fmt.Errorf("save person face: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit save person: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPerson(ctx context.Context, id int64) (*models.Person, error) {
	var record []byte
	err := s.pool.QueryRow(ctx,
		`SELECT record FROM persons WHERE id = $1`, id).Scan(&record)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get person: %w", err)
	}
	p := &models.Person{}
	if err := json.Unmarshal(record, p); err != nil {
		return nil, fmt.Errorf("decode person %d: %w", id, err)
	}
	return p, nil
}

func (s *PostgresStore) ListPersons(ctx context.Context) ([]*models.Person, error) {
	rows, err := s.pool.Query(ctx, `SELECT record FROM persons ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list persons: %w", err)
	}
	defer rows.Close()

	var persons []*models.Person
	for rows.Next() {
		var record []byte
		if err := rows.Scan(&record); err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		p := &models.Person{}
		if err := json.Unmarshal(record, p); err != nil {
			return nil, fmt.Errorf("decode person: %w", err)
		}
		persons = append(persons, p)
	}
	return persons, rows.Err()
}

// MaxPersonID returns the highest person ID seen so far, 0 when empty. Used
// to seed the ID allocator on startup.
func (s *PostgresStore) MaxPersonID(ctx context.Context) (int64, error) {
	var max int64
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(MAX(id), 0) FROM persons`).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("max person id: %w", err)
	}
	return max, nil
}

func (s *PostgresStore) CountPersons(ctx context.Context) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM persons`).Scan(&count)
	return count, err
}

// --- Checkpoints ---

// RegisterCheckpoint inserts a checkpoint row for a person with all platform
// flags cleared. Re-registering an existing person is a no-op so an
// interrupted run never loses progress.
func (s *PostgresStore) RegisterCheckpoint(ctx context.Context, personID int64) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO checkpoints (person_id) VALUES ($1) ON CONFLICT (person_id) DO NOTHING`,
		personID)
	if err != nil {
		return fmt.Errorf("register checkpoint: %w", err)
	}
	return nil
}

// MarkChecked sets a person's platform flag. Marking twice is harmless.
func (s *PostgresStore) MarkChecked(ctx context.Context, personID int64, platform models.Platform) error {
	col, err := checkpointColumn(platform)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE checkpoints SET %s = TRUE WHERE person_id = $1`, col),
		personID)
	if err != nil {
		return fmt.Errorf("mark %s checked: %w", platform, err)
	}
	return nil
}

func (s *PostgresStore) GetCheckpoint(ctx context.Context, personID int64) (*models.CheckpointRecord, error) {
	c := &models.CheckpointRecord{}
	err := s.pool.QueryRow(ctx,
		`SELECT person_id, telegram_checked, instagram_checked, facebook_checked, twitter_checked
		 FROM checkpoints WHERE person_id = $1`, personID,
	).Scan(&c.PersonID, &c.TelegramChecked, &c.InstagramChecked, &c.FacebookChecked, &c.TwitterChecked)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get checkpoint: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) ListCheckpoints(ctx context.Context) ([]models.CheckpointRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT person_id, telegram_checked, instagram_checked, facebook_checked, twitter_checked
		 FROM checkpoints ORDER BY person_id`)
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	defer rows.Close()

	var checkpoints []models.CheckpointRecord
	for rows.Next() {
		var c models.CheckpointRecord
		if err := rows.Scan(&c.PersonID, &c.TelegramChecked, &c.InstagramChecked,
			&c.FacebookChecked, &c.TwitterChecked); err != nil {
			return nil, fmt.Errorf("scan checkpoint: %w", err)
		}
		checkpoints = append(checkpoints, c)
	}
	return checkpoints, rows.Err()
}

// UncheckedIDs returns the persons still pending for a platform, in ID order.
func (s *PostgresStore) UncheckedIDs(ctx context.Context, platform models.Platform) ([]int64, error) {
	col, err := checkpointColumn(platform)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx,
		fmt.Sprintf(`SELECT person_id FROM checkpoints WHERE %s = FALSE ORDER BY person_id`, col))
	if err != nil {
		return nil, fmt.Errorf("unchecked ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan unchecked id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func checkpointColumn(platform models.Platform) (string, error) {
	switch platform {
	case models.PlatformTelegram:
		return "telegram_checked", nil
	case models.PlatformInstagram:
		return "instagram_checked", nil
	case models.PlatformFacebook:
		return "facebook_checked", nil
	case models.PlatformTwitter:
		return "twitter_checked", nil
	}
	return "", fmt.Errorf("unknown platform %q", platform)
}

// --- Face search ---

type SearchMatch struct {
	PersonID  int64   `json:"person_id"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Score     float32 `json:"score"`
}

// SearchFaces finds the closest matching persons for a given embedding using
// cosine similarity over person_faces.
func (s *PostgresStore) SearchFaces(ctx context.Context, embedding []float32, threshold float64, limit int) ([]SearchMatch, error) {
	if limit <= 0 {
		limit = 5
	}
	vec := pgvector.NewVector(embedding)

	rows, err := s.pool.Query(ctx, `
		SELECT pf.person_id, p.first_name, p.last_name, MAX(1 - (pf.embedding <=> $1)) AS score
		FROM person_faces pf
		JOIN persons p ON p.id = pf.person_id
		GROUP BY pf.person_id, p.first_name, p.last_name
		HAVING MAX(1 - (pf.embedding <=> $1)) >= $2
		ORDER BY score DESC
		LIMIT $3`, vec, threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("search faces: %w", err)
	}
	defer rows.Close()

	var matches []SearchMatch
	for rows.Next() {
		var m SearchMatch
		if err := rows.Scan(&m.PersonID, &m.FirstName, &m.LastName, &m.Score); err != nil {
			return nil, fmt.Errorf("scan search match: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}
