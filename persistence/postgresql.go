// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq" // PostgreSQL 驱动

	"github.com/wfunc/analogyarena/models"
)

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
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	// 设置连接池参数
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	// 初始化表结构
	if err := initTables(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &PostgreSQL{db: db}, nil
}

// NewPostgreSQLFromDB wraps an already opened handle; tables are assumed to exist.
func NewPostgreSQLFromDB(db *sql.DB) *PostgreSQL {
	return &PostgreSQL{db: db}
}

// initTables 初始化数据库表结构
func initTables(ctx context.Context, db *sql.DB) error {
	// 游戏结果表
	_, err := db.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS game_results (
            id VARCHAR(36) PRIMARY KEY,
            user_id VARCHAR(64) NOT NULL,
            game_type VARCHAR(32) NOT NULL,
            topic TEXT NOT NULL DEFAULT '',
            sub_topic TEXT NOT NULL DEFAULT '',
            difficulty VARCHAR(16) NOT NULL,
            score INTEGER NOT NULL DEFAULT 0 CHECK (score >= 0),
            created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
        )
    `)
	if err != nil {
		return err
	}

	// 玩家资料表
	_, err = db.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS profiles (
            id VARCHAR(64) PRIMARY KEY,
            username TEXT NOT NULL DEFAULT '',
            avatar_url TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
        )
    `)
	if err != nil {
		return err
	}

	// 创建索引以提高查询性能
	_, err = db.ExecContext(ctx, `
        CREATE INDEX IF NOT EXISTS idx_game_results_created_at ON game_results(created_at DESC);
        CREATE INDEX IF NOT EXISTS idx_game_results_user_created ON game_results(user_id, created_at DESC);
    `)

	return err
}

const resultColumns = `id, user_id, game_type, topic, sub_topic, difficulty, score, created_at`

// InsertResult 保存一局结果
func (p *PostgreSQL) InsertResult(ctx context.Context, r models.GameResult) error {
	query := `INSERT INTO game_results (` + resultColumns + `)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := p.db.ExecContext(ctx, query,
		r.ID, r.UserID, string(r.GameType), r.Topic, r.SubTopic,
		string(r.Difficulty), r.Score, r.CreatedAt)
	return err
}

// ListResults 按条件查询，created_at 倒序
func (p *PostgreSQL) ListResults(ctx context.Context, q ResultQuery) ([]models.GameResult, error) {
	var (
		conds []string
		args  []interface{}
	)
	if q.UserID != "" {
		args = append(args, q.UserID)
		conds = append(conds, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if q.GameType != "" {
		args = append(args, string(q.GameType))
		conds = append(conds, fmt.Sprintf("game_type = $%d", len(args)))
	}
	if !q.Since.IsZero() {
		args = append(args, q.Since)
		conds = append(conds, fmt.Sprintf("created_at >= $%d", len(args)))
	}

	query := `SELECT ` + resultColumns + ` FROM game_results`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, clampLimit(q.Limit))
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", len(args))
	if q.Offset > 0 {
		args = append(args, q.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]models.GameResult, 0)
	for rows.Next() {
		var (
			r                    models.GameResult
			gameType, difficulty string
		)
		if err := rows.Scan(&r.ID, &r.UserID, &gameType, &r.Topic, &r.SubTopic,
			&difficulty, &r.Score, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.GameType = models.GameType(gameType)
		r.Difficulty = models.Difficulty(difficulty)
		results = append(results, r)
	}
	return results, rows.Err()
}

func (p *PostgreSQL) DeleteResult(ctx context.Context, id, userID string) error {
	res, err := p.db.ExecContext(ctx,
		`DELETE FROM game_results WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (p *PostgreSQL) GetProfiles(ctx context.Context, userIDs []string) (map[string]models.Profile, error) {
	profiles := make(map[string]models.Profile, len(userIDs))
	if len(userIDs) == 0 {
		return profiles, nil
	}

	rows, err := p.db.QueryContext(ctx,
		`SELECT id, username, avatar_url FROM profiles WHERE id = ANY($1)`, pq.Array(userIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var pr models.Profile
		if err := rows.Scan(&pr.ID, &pr.Username, &pr.AvatarURL); err != nil {
			return nil, err
		}
		profiles[pr.ID] = pr
	}
	return profiles, rows.Err()
}

// SaveProfile 使用 UPSERT 操作 (PostgreSQL 9.5+)
func (p *PostgreSQL) SaveProfile(ctx context.Context, pr models.Profile) error {
	query := `
        INSERT INTO profiles (id, username, avatar_url)
        VALUES ($1, $2, $3)
        ON CONFLICT (id)
        DO UPDATE SET username = $2, avatar_url = $3, updated_at = CURRENT_TIMESTAMP
    `
	_, err := p.db.ExecContext(ctx, query, pr.ID, pr.Username, pr.AvatarURL)
	return err
}

func (p *PostgreSQL) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Close 关闭数据库连接
func (p *PostgreSQL) Close() error {
	return p.db.Close()
}
