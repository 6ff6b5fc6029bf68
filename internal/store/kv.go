package store

import (
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Get retrieves a raw value. A missing key returns "" with no error.
func (s *Store) Get(key string) (string, error) {
	var entry kvEntry
	err := s.db.First(&entry, "key = ?", key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	return entry.Value, nil
}

// Set stores a raw value, overwriting any existing one.
func (s *Store) Set(key, value string) error {
	entry := kvEntry{Key: key, Value: value}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
}

// MultiRemove deletes all the given keys. Missing keys are not an error.
func (s *Store) MultiRemove(keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.db.Delete(&kvEntry{}, "key IN ?", keys).Error
}

// Keys returns every stored key with the given prefix.
func (s *Store) Keys(prefix string) ([]string, error) {
	var keys []string
	query := s.db.Model(&kvEntry{})
	if prefix != "" {
		query = query.Where(`key LIKE ? ESCAPE '\'`, escapeLike(prefix)+"%")
	}
	if err := query.Pluck("key", &keys).Error; err != nil {
		return nil, err
	}
	return keys, nil
}

// Clear removes every persisted key. Used by the full local teardown.
func (s *Store) Clear() error {
	return s.db.Where("1 = 1").Delete(&kvEntry{}).Error
}

// escapeLike escapes LIKE wildcards in a literal prefix.
func escapeLike(prefix string) string {
	r := strings.NewReplacer(`%`, `\%`, `_`, `\_`)
	return r.Replace(prefix)
}
