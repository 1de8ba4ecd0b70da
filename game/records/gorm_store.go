package records

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	glogger "gorm.io/gorm/logger"

	"github.com/wricardo/mcp-training/minesweeper/internal/logging"
	"github.com/wricardo/mcp-training/minesweeper/internal/settings"
)

// recordModel is the SQL row for one player's best time on one difficulty
type recordModel struct {
	ID            uint      `gorm:"primaryKey"`
	PlayerKey     string    `gorm:"size:191;not null;uniqueIndex:idx_player_difficulty"`
	DifficultyKey string    `gorm:"size:64;not null;uniqueIndex:idx_player_difficulty;index:idx_difficulty_seconds,priority:1"`
	PlayerName    string    `gorm:"size:191;not null"`
	Difficulty    string    `gorm:"size:64;not null"`
	Seconds       int       `gorm:"not null;index:idx_difficulty_seconds,priority:2"`
	RecordedAt    time.Time `gorm:"not null"`
	UpdatedAt     time.Time
}

func (recordModel) TableName() string { return "game_records" }

func toModel(r Record) recordModel {
	return recordModel{
		PlayerKey:     normalize(r.PlayerName),
		DifficultyKey: normalize(r.Difficulty),
		PlayerName:    r.PlayerName,
		Difficulty:    r.Difficulty,
		Seconds:       r.Seconds,
		RecordedAt:    r.RecordedAt,
	}
}

func (m recordModel) toRecord() Record {
	return Record{
		PlayerName: m.PlayerName,
		Difficulty: m.Difficulty,
		Seconds:    m.Seconds,
		RecordedAt: m.RecordedAt,
	}
}

// GormStore keeps records in a SQL database through gorm
type GormStore struct {
	db  *gorm.DB
	log *zap.Logger
	now func() time.Time
}

// OpenMySQL connects to MySQL with pool limits from cfg
func OpenMySQL(cfg settings.MySQLConfig, log *zap.Logger) (*gorm.DB, error) {
	if cfg.DSN == "" {
		return nil, errors.New("mysql dsn is empty")
	}
	if log == nil {
		log = zap.NewNop()
	}

	db, err := gorm.Open(mysql.Open(cfg.DSN), &gorm.Config{
		Logger: logging.NewGormLogger(log, glogger.Warn, 200*time.Millisecond),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sql pool: %w", err)
	}
	if cfg.MaxConn > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxConn)
	}
	if cfg.MaxIdle > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdle)
	}

	log.Info("open mysql success", zap.Int("max_conn", cfg.MaxConn), zap.Int("max_idle", cfg.MaxIdle))
	return db, nil
}

// NewGormStore migrates the records table and returns a store over db
func NewGormStore(db *gorm.DB, log *zap.Logger) (*GormStore, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := db.AutoMigrate(&recordModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate records table: %w", err)
	}
	return &GormStore{db: db, log: log, now: time.Now}, nil
}

// Add stores rec when it beats the player's best on that difficulty
func (s *GormStore) Add(ctx context.Context, rec Record) (AddResult, error) {
	if err := prepare(&rec, s.now); err != nil {
		return AddResult{}, err
	}
	incoming := toModel(rec)

	var res AddResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing recordModel
		err := lockRecord(tx, incoming.PlayerKey, incoming.DifficultyKey, &existing)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			created := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&incoming)
			if created.Error != nil {
				return created.Error
			}
			if created.RowsAffected == 1 {
				res = AddResult{Stored: true}
				return nil
			}
			// A concurrent first insert won; compare against it
			err = lockRecord(tx, incoming.PlayerKey, incoming.DifficultyKey, &existing)
		}
		if err != nil {
			return err
		}

		prev := existing.toRecord()
		res = AddResult{Previous: &prev}
		if incoming.Seconds >= existing.Seconds {
			return nil
		}
		res.Stored = true
		return tx.Model(&existing).Updates(map[string]any{
			"player_name": incoming.PlayerName,
			"difficulty":  incoming.Difficulty,
			"seconds":     incoming.Seconds,
			"recorded_at": incoming.RecordedAt,
		}).Error
	})
	if err != nil {
		return AddResult{}, fmt.Errorf("failed to store record: %w", err)
	}
	return res, nil
}

// lockRecord loads the row for one player and difficulty FOR UPDATE
func lockRecord(tx *gorm.DB, playerKey, difficultyKey string, out *recordModel) error {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("player_key = ? AND difficulty_key = ?", playerKey, difficultyKey).
		First(out).Error
}

// Best returns the fastest records for a difficulty, all when limit is 0
func (s *GormStore) Best(ctx context.Context, difficulty string, limit int) ([]Record, error) {
	q := s.db.WithContext(ctx).
		Where("difficulty_key = ?", normalize(difficulty)).
		Order("seconds asc, recorded_at asc, player_key asc")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []recordModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	out := make([]Record, len(rows))
	for i, m := range rows {
		out[i] = m.toRecord()
	}
	return out, nil
}

// PlayerBest returns the player's record on a difficulty or ErrRecordNotFound
func (s *GormStore) PlayerBest(ctx context.Context, player, difficulty string) (*Record, error) {
	var m recordModel
	err := s.db.WithContext(ctx).
		Where("player_key = ? AND difficulty_key = ?", normalize(player), normalize(difficulty)).
		First(&m).Error

	switch {
	case err == nil:
		r := m.toRecord()
		return &r, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, ErrRecordNotFound
	default:
		return nil, fmt.Errorf("failed to query player record: %w", err)
	}
}

// Close releases the database pool
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
