package database

import (
	"time"

	"screenblur/internal/models"

	"github.com/pkg/errors"

	"gorm.io/gorm"
)

// Repository handles all database operations for settings and engine history
type Repository struct {
	db *DB
}

// NewRepository creates a new repository instance
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// LoadSettings returns the stored settings, storing defaults first if none exist
func (r *Repository) LoadSettings(defaults models.Settings) (*models.Settings, error) {
	var settings models.Settings
	result := r.db.First(&settings, models.SettingsID)
	if result.Error == nil {
		return &settings, nil
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, errors.Wrap(result.Error, "failed to load settings")
	}

	defaults.ID = models.SettingsID
	if err := r.db.Create(&defaults).Error; err != nil {
		return nil, errors.Wrap(err, "failed to store default settings")
	}
	return &defaults, nil
}

// SaveSettings writes every settings field, zero values included
func (r *Repository) SaveSettings(settings *models.Settings) error {
	settings.ID = models.SettingsID
	result := r.db.Model(&models.Settings{ID: models.SettingsID}).
		Select("enabled", "opacity", "check_interval_ms", "color").
		Updates(settings)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to save settings")
	}
	if result.RowsAffected == 0 {
		if err := r.db.Create(settings).Error; err != nil {
			return errors.Wrap(err, "failed to create settings")
		}
	}
	return nil
}

// CreateErrorLog inserts a new error log into the database
func (r *Repository) CreateErrorLog(errorLog *models.ErrorLog) error {
	result := r.db.Create(errorLog)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert error log")
	}
	return nil
}

// IncrementRepeats folds one more occurrence into an existing error log
func (r *Repository) IncrementRepeats(id uint) error {
	result := r.db.Model(&models.ErrorLog{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"repeats":   gorm.Expr("repeats + 1"),
			"timestamp": time.Now(),
		})
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to update error log")
	}
	return nil
}

// GetLatestErrorLog retrieves the most recent error log, nil if there is none
func (r *Repository) GetLatestErrorLog() (*models.ErrorLog, error) {
	var errorLog models.ErrorLog
	result := r.db.Order("id DESC").First(&errorLog)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, errors.Wrap(result.Error, "failed to get latest error log")
	}
	return &errorLog, nil
}

// CreateRestartEvent records a topology-triggered restart
func (r *Repository) CreateRestartEvent(event *models.RestartEvent) error {
	result := r.db.Create(event)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert restart event")
	}
	return nil
}

// GetRestartEvents returns the most recent restart events, newest first
func (r *Repository) GetRestartEvents(limit int) ([]*models.RestartEvent, error) {
	var events []*models.RestartEvent
	result := r.db.Order("timestamp DESC").Limit(limit).Find(&events)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query restart events")
	}
	return events, nil
}

// GetLatestRestart retrieves the most recent restart event, nil if there is none
func (r *Repository) GetLatestRestart() (*models.RestartEvent, error) {
	var event models.RestartEvent
	result := r.db.Order("timestamp DESC").First(&event)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, errors.Wrap(result.Error, "failed to get latest restart event")
	}
	return &event, nil
}

// DeleteOldHistory deletes error logs and restart events older than before
func (r *Repository) DeleteOldHistory(before time.Time) (int64, error) {
	errResult := r.db.Where("timestamp < ?", before).Delete(&models.ErrorLog{})
	if errResult.Error != nil {
		return 0, errors.Wrap(errResult.Error, "failed to delete old error logs")
	}
	restartResult := r.db.Where("timestamp < ?", before).Delete(&models.RestartEvent{})
	if restartResult.Error != nil {
		return errResult.RowsAffected, errors.Wrap(restartResult.Error, "failed to delete old restart events")
	}
	return errResult.RowsAffected + restartResult.RowsAffected, nil
}

// Clear removes all error logs and restart events, keeping settings
func (r *Repository) Clear() error {
	if result := r.db.Exec("DELETE FROM error_logs"); result.Error != nil {
		return errors.Wrap(result.Error, "failed to clear error logs")
	}
	if result := r.db.Exec("DELETE FROM restart_events"); result.Error != nil {
		return errors.Wrap(result.Error, "failed to clear restart events")
	}
	return nil
}
