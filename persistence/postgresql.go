// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	// PostgreSQL 驱动
	_ "github.com/lib/pq"

	"github.com/wfunc/tiltmaze/models"
)

const queryTimeout = 5 * time.Second

// PostgreSQL 数据库实现
type PostgreSQL struct {
	db *sql.DB
}

// NewPostgreSQL 创建 PostgreSQL 数据库连接
func NewPostgreSQL(host string, port int, user, password, dbname string) (*PostgreSQL, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	// 设置连接池参数
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := initTables(ctx, db); err != nil {
		return nil, err
	}

	return &PostgreSQL{db: db}, nil
}

// initTables matches the table the gorm store migrates, so both drivers
// can share a database.
func initTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS match_records (
            id BIGSERIAL PRIMARY KEY,
            created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
            deleted_at TIMESTAMPTZ,
            match_id TEXT UNIQUE NOT NULL,
            lobby_id TEXT NOT NULL,
            board_size BIGINT NOT NULL,
            winner BIGINT NOT NULL,
            winner_name TEXT,
            players JSONB,
            started_at TIMESTAMPTZ,
            finished_at TIMESTAMPTZ
        )
    `)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
        CREATE INDEX IF NOT EXISTS idx_match_records_lobby_id ON match_records(lobby_id);
        CREATE INDEX IF NOT EXISTS idx_match_records_winner_name ON match_records(winner_name);
    `)
	return err
}

func (p *PostgreSQL) SaveMatchResult(ctx context.Context, result models.MatchResult) error {
	players, err := json.Marshal(result.Players)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
        INSERT INTO match_records (match_id, lobby_id, board_size, winner, winner_name, players, started_at, finished_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (match_id) DO NOTHING
    `
	_, err = p.db.ExecContext(ctx, query,
		result.MatchID, result.LobbyID, result.BoardSize, result.Winner,
		result.WinnerName, string(players), result.StartedAt, result.FinishedAt)
	return err
}

func (p *PostgreSQL) RecentMatches(ctx context.Context, limit int) ([]models.MatchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := p.db.QueryContext(ctx, `
        SELECT match_id, lobby_id, board_size, winner, COALESCE(winner_name, ''), players, started_at, finished_at
        FROM match_records
        WHERE deleted_at IS NULL
        ORDER BY finished_at DESC
        LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.MatchResult
	for rows.Next() {
		var r models.MatchResult
		var players []byte
		if err := rows.Scan(&r.MatchID, &r.LobbyID, &r.BoardSize, &r.Winner, &r.WinnerName, &players, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, err
		}
		if len(players) > 0 {
			if err := json.Unmarshal(players, &r.Players); err != nil {
				return nil, err
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *PostgreSQL) PlayerStats(ctx context.Context, username string) (models.PlayerStats, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	member, err := json.Marshal([]string{username})
	if err != nil {
		return models.PlayerStats{}, err
	}

	stats := models.PlayerStats{Username: username}
	err = p.db.QueryRowContext(ctx, `
        SELECT
            COUNT(*),
            COUNT(*) FILTER (WHERE winner_name = $2)
        FROM match_records
        WHERE deleted_at IS NULL AND players @> $1::jsonb`,
		string(member), username,
	).Scan(&stats.Games, &stats.Wins)
	if err != nil {
		return stats, err
	}
	if stats.Games == 0 {
		return stats, ErrRecordNotFound
	}
	return stats, nil
}

// Close 关闭数据库连接
func (p *PostgreSQL) Close() error {
	return p.db.Close()
}
