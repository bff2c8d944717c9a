package store

import (
	"context"
	"fmt"
	"strings"

	"activity-monitor/internal/models"
)

// ListIgnored returns the ignore list ordered by executable.
func (s *Store) ListIgnored(ctx context.Context) ([]models.IgnoredExecutable, error) {
	var rows []models.IgnoredExecutable
	if err := s.db.WithContext(ctx).Order("executable").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list ignored executables: %w", err)
	}
	return rows, nil
}

// AddIgnored puts executable on the ignore list. Adding it twice returns
// ErrConflict.
func (s *Store) AddIgnored(ctx context.Context, executable string, description *string) (models.IgnoredExecutable, error) {
	row := models.IgnoredExecutable{Executable: strings.TrimSpace(executable), Description: description}
	err := withRetry(func() error {
		return s.db.WithContext(ctx).Create(&row).Error
	}, 3)
	if err = translate(err); err != nil {
		if err == models.ErrConflict {
			return row, fmt.Errorf("executable %q is already ignored: %w", row.Executable, err)
		}
		return row, fmt.Errorf("failed to add ignored executable: %w", err)
	}
	return row, nil
}

// RemoveIgnored deletes an ignore-list entry by id.
func (s *Store) RemoveIgnored(ctx context.Context, id uint) error {
	var affected int64
	err := withRetry(func() error {
		res := s.db.WithContext(ctx).Delete(&models.IgnoredExecutable{}, id)
		affected = res.RowsAffected
		return res.Error
	}, 3)
	if err != nil {
		return fmt.Errorf("failed to remove ignored executable: %w", err)
	}
	if affected == 0 {
		return models.ErrNotFound
	}
	return nil
}

// IsIgnored reports whether executable is on the ignore list.
func (s *Store) IsIgnored(ctx context.Context, executable string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.IgnoredExecutable{}).Where("executable = ?", executable).Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("failed to check ignored executable: %w", err)
	}
	return n > 0, nil
}
