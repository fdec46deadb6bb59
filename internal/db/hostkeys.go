package db

import (
	"errors"
	"fmt"
	"time"

	"github.com/automatix-sh/automatix/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// HostKeys is the gorm-backed trusted host key store used for SSH host
// verification. It satisfies remote.HostKeyStore.
type HostKeys struct {
	DB *gorm.DB
}

// GetHostKey returns the trusted key for host, or "" if unknown.
func (h HostKeys) GetHostKey(host string) (string, error) {
	var hk models.HostKey
	err := h.DB.Where("host = ?", host).First(&hk).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("db: get host key for %s: %w", host, err)
	}
	return hk.PublicKey, nil
}

// PutHostKey records the trusted key for host, replacing any previous one.
func (h HostKeys) PutHostKey(host, publicKey string) error {
	hk := models.HostKey{Host: host, PublicKey: publicKey, AddedAt: time.Now()}
	err := h.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "host"}},
		DoUpdates: clause.AssignmentColumns([]string{"public_key", "added_at"}),
	}).Create(&hk).Error
	if err != nil {
		return fmt.Errorf("db: put host key for %s: %w", host, err)
	}
	return nil
}
