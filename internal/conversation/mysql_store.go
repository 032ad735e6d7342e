package conversation

import (
	"context"
	"database/sql"
	"io/fs"
	"sort"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"Supervisor-Integration-Agent/deploy/migrations"
	xerrors "Supervisor-Integration-Agent/internal/errors"
)

// MySQLStore 使用 MySQL 记录会话历史。
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore 创建连接池并初始化数据表。
func NewMySQLStore(dsn string) (*MySQLStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "MySQL DSN 不能为空")
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "连接 MySQL 失败")
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(10 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "无法连接到 MySQL")
	}

	store := &MySQLStore{db: db}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// initSchema 按文件名顺序执行内嵌的迁移脚本。
func (s *MySQLStore) initSchema() error {
	names, err := fs.Glob(migrations.Files, "*.sql")
	if err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "枚举迁移脚本失败")
	}
	sort.Strings(names)

	for _, name := range names {
		script, err := migrations.Files.ReadFile(name)
		if err != nil {
			return xerrors.Wrap(xerrors.CodeStorageFailure, err, "读取迁移脚本失败")
		}
		for _, stmt := range strings.Split(string(script), ";") {
			stmt = strings.TrimSpace(stmt)
			if stmt == "" {
				continue
			}
			if _, err := s.db.Exec(stmt); err != nil {
				return xerrors.Wrap(xerrors.CodeStorageFailure, err, "执行迁移脚本 "+name+" 失败")
			}
		}
	}
	return nil
}

// Append 将一条会话记录写入 MySQL。
func (s *MySQLStore) Append(ctx context.Context, conversationID string, turn Turn) error {
	if strings.TrimSpace(conversationID) == "" {
		return xerrors.New(xerrors.CodeInvalidArgument, "会话 ID 不能为空")
	}
	if turn.CreatedAt == 0 {
		turn.CreatedAt = time.Now().Unix()
	}

	const stmt = `INSERT INTO conversation_turns
        (conversation_id, role, content, created_at)
        VALUES (?, ?, ?, ?)`

	if _, err := s.db.ExecContext(ctx, stmt,
		conversationID,
		turn.Role,
		turn.Content,
		turn.CreatedAt,
	); err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "写入会话记录失败")
	}
	return nil
}

// History 查询会话最近的记录，按时间先后排列。
func (s *MySQLStore) History(ctx context.Context, conversationID string, limit int) ([]Turn, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `SELECT role, content, created_at
        FROM conversation_turns WHERE conversation_id = ?
        ORDER BY id DESC LIMIT ?`, conversationID, limit)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "查询会话记录失败")
	}
	defer rows.Close()

	var reversed []Turn
	for rows.Next() {
		var turn Turn
		if err := rows.Scan(&turn.Role, &turn.Content, &turn.CreatedAt); err != nil {
			return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "解析会话记录失败")
		}
		reversed = append(reversed, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "遍历会话记录失败")
	}

	// 查询按 id 倒序取最近 N 条，返回前恢复时间先后顺序。
	turns := make([]Turn, len(reversed))
	for idx, turn := range reversed {
		turns[len(reversed)-1-idx] = turn
	}
	return turns, nil
}

// Close 关闭底层数据库连接。
func (s *MySQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// ensure interface compliance at compile time
var _ Store = (*MySQLStore)(nil)
