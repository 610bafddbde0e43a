package resultstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"concord/internal/consensus"
)

// 中文说明：
// 评估结果持久化（Gorm + SQLite）。每次评估落一行，模型明细存 JSON 列。

// RunModel 评估结果表。
type RunModel struct {
	ID                string `gorm:"primaryKey;size:64"`
	ContractAddress   string `gorm:"size:128;index:idx_appraisal_runs_token"`
	TokenID           string `gorm:"size:128;index:idx_appraisal_runs_token"`
	StartedAt         time.Time
	FinishedAt        time.Time
	Challenges        int
	Price             float64
	Explanation       string `gorm:"type:text"`
	StandardDeviation float64
	TotalConfidence   float64
	Accuracy          *float64
	ActualValue       *float64
	EthereumPriceUSD  *float64
	FinalConfidence   *float64
	WeightsStdDev     *float64
	Models            datatypes.JSON `gorm:"type:text"`
	Error             string         `gorm:"type:text"`
	CreatedAt         time.Time      `gorm:"index"`
}

func (RunModel) TableName() string { return "appraisal_runs" }

type Store struct {
	db *gorm.DB
}

func NewStore(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("result store: 数据库路径不能为空")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(&sqlite.Dialector{DriverName: "sqlite", DSN: dsn}, &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&RunModel{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite + WAL: 少量并行即可，降低锁竞争
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// RecordRun 实现 consensus.Recorder。
func (s *Store) RecordRun(ctx context.Context, run consensus.RunRecord) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("result store 未初始化")
	}
	modelsJSON, err := json.Marshal(run.Result.Models)
	if err != nil {
		return fmt.Errorf("encode model breakdown: %w", err)
	}
	rec := RunModel{
		ID:                run.ID,
		ContractAddress:   run.ContractAddress,
		TokenID:           run.TokenID,
		StartedAt:         run.StartedAt,
		FinishedAt:        run.FinishedAt,
		Challenges:        run.Challenges,
		Price:             run.Result.Price,
		Explanation:       run.Result.Text,
		StandardDeviation: run.Result.StandardDeviation,
		TotalConfidence:   run.Result.TotalConfidence,
		Accuracy:          run.Result.Accuracy,
		ActualValue:       run.Result.ActualValue,
		EthereumPriceUSD:  run.Result.EthereumPriceUSD,
		FinalConfidence:   run.Result.FinalConfidence,
		WeightsStdDev:     run.Result.WeightsStdDev,
		Models:            datatypes.JSON(modelsJSON),
		Error:             run.Result.Error,
	}
	return s.db.WithContext(ctx).Create(&rec).Error
}

// ListRuns 按创建时间倒序返回评估历史。
func (s *Store) ListRuns(ctx context.Context, limit, offset int) ([]RunModel, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	var out []RunModel
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&out).Error
	return out, err
}

// GetRun 返回单次评估，不存在时返回 (nil, nil)。
func (s *Store) GetRun(ctx context.Context, id string) (*RunModel, error) {
	var rec RunModel
	err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Breakdown 解码模型明细 JSON。
func (m *RunModel) Breakdown() map[string]consensus.ModelBreakdown {
	out := map[string]consensus.ModelBreakdown{}
	if len(m.Models) > 0 {
		_ = json.Unmarshal(m.Models, &out)
	}
	return out
}
