package repository

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/ventusgt/checkout-system/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore хранит квитанции заказов в PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore создаёт хранилище и инициализирует схему БД через миграции.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &PostgresStore{pool: pool}

	if err := s.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

func (s *PostgresStore) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(s.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

func (s *PostgresStore) withRetry(ctx context.Context, fn func() error) error {
	var err error
	delays := []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

	for i := 0; i <= len(delays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected {
				if i < len(delays) {
					time.Sleep(delays[i])
					continue
				}
			}
		}

		if isConnectionError(err) {
			if i < len(delays) {
				time.Sleep(delays[i])
				continue
			}
		}

		break
	}
	return err
}

func isConnectionError(err error) bool {
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// SaveReceipt записывает квитанцию в слот сессии, заменяя прежнюю.
func (s *PostgresStore) SaveReceipt(ctx context.Context, sessionID string, r model.Receipt) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal receipt: %w", err)
	}

	return s.withRetry(ctx, func() error {
		_, err := s.pool.Exec(ctx,
			`INSERT INTO receipts (session_id, payload, created_at)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (session_id) DO UPDATE
			 SET payload = EXCLUDED.payload, created_at = EXCLUDED.created_at`,
			sessionID, payload, r.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("save receipt: %w", err)
		}
		return nil
	})
}

// TakeReceipt атомарно читает и удаляет квитанцию из слота сессии.
// Повторный вызов для той же сессии возвращает ErrReceiptNotFound.
// Повреждённое содержимое слота приравнивается к отсутствию квитанции.
func (s *PostgresStore) TakeReceipt(ctx context.Context, sessionID string) (model.Receipt, error) {
	var payload []byte

	err := s.withRetry(ctx, func() error {
		return s.pool.QueryRow(ctx,
			`DELETE FROM receipts WHERE session_id = $1 RETURNING payload`,
			sessionID,
		).Scan(&payload)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Receipt{}, ErrReceiptNotFound
		}
		return model.Receipt{}, fmt.Errorf("take receipt: %w", err)
	}

	var r model.Receipt
	if err := json.Unmarshal(payload, &r); err != nil {
		return model.Receipt{}, ErrReceiptNotFound
	}

	return r, nil
}
