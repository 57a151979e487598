package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/diting-rss/diting/internal/domain/model"
	"github.com/diting-rss/diting/internal/infrastructure/logger"
)

// DigestRepository 定义摘要运行历史的存储库接口
type DigestRepository interface {
	// SaveDigest 保存一次摘要运行记录
	SaveDigest(record model.DigestRecord) error
	// GetDigestByDate 按运行日期获取最近一条记录，不存在时返回nil
	GetDigestByDate(runDate string) (*model.DigestRecord, error)
	// CountDigests 统计历史记录条数
	CountDigests() (int64, error)
}

// SQLiteDigestRepository 实现DigestRepository接口的SQLite存储库
type SQLiteDigestRepository struct {
	db Database
}

// NewSQLiteDigestRepository 创建一个新的SQLite摘要历史存储库
func NewSQLiteDigestRepository(db Database) DigestRepository {
	return &SQLiteDigestRepository{db: db}
}

// SaveDigest 保存一次摘要运行记录
func (r *SQLiteDigestRepository) SaveDigest(record model.DigestRecord) error {
	logger.Info("保存摘要运行记录", "run_date", record.RunDate, "delivered", record.Delivered)

	delivered := 0
	if record.Delivered {
		delivered = 1
	}

	query := `
	INSERT INTO digests (run_date, categories, items, images, digest_length, delivered)
	VALUES (?, ?, ?, ?, ?, ?)
	`

	if _, err := r.db.Exec(query, record.RunDate, record.Categories, record.Items,
		record.Images, record.DigestLength, delivered); err != nil {
		return fmt.Errorf("保存摘要记录失败: %w", err)
	}

	return nil
}

// GetDigestByDate 按运行日期获取最近一条记录
func (r *SQLiteDigestRepository) GetDigestByDate(runDate string) (*model.DigestRecord, error) {
	query := `
	SELECT run_date, categories, items, images, digest_length, delivered
	FROM digests WHERE run_date = ? ORDER BY id DESC LIMIT 1
	`

	var record model.DigestRecord
	var delivered int
	err := r.db.QueryRow(query, runDate).Scan(&record.RunDate, &record.Categories,
		&record.Items, &record.Images, &record.DigestLength, &delivered)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("查询摘要记录失败: %w", err)
	}

	record.Delivered = delivered != 0
	return &record, nil
}

// CountDigests 统计历史记录条数
func (r *SQLiteDigestRepository) CountDigests() (int64, error) {
	var count int64
	if err := r.db.QueryRow("SELECT COUNT(*) FROM digests").Scan(&count); err != nil {
		return 0, fmt.Errorf("统计摘要记录失败: %w", err)
	}
	return count, nil
}
