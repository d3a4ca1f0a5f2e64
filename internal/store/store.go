// Package store persists the chat transcript in a local SQLite
// database so conversations survive restarts.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Message is one transcript entry.
type Message struct {
	ID        string `gorm:"primaryKey"`
	Role      string `gorm:"index"` // "user", "assistant", "system"
	Content   string
	CreatedAt time.Time `gorm:"index"`
}

// Store wraps the transcript database.
type Store struct {
	db *gorm.DB
}

// Open opens (creating if needed) the transcript database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Discard,
	})
	if err != nil {
		return nil, fmt.Errorf("open transcript db: %w", err)
	}
	if err := db.AutoMigrate(&Message{}); err != nil {
		return nil, fmt.Errorf("migrate transcript db: %w", err)
	}
	return &Store{db: db}, nil
}

// Append records one transcript entry.
func (s *Store) Append(ctx context.Context, role, content string) error {
	msg := Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&msg).Error; err != nil {
		return fmt.Errorf("append transcript: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, oldest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Message, error) {
	var msgs []Message
	err := s.db.WithContext(ctx).
		Order("created_at desc").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("load transcript: %w", err)
	}
	// Reverse into chronological order.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// Clear deletes the whole transcript.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.db.WithContext(ctx).Where("1 = 1").Delete(&Message{}).Error; err != nil {
		return fmt.Errorf("clear transcript: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
