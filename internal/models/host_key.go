package models

import "time"

// HostKey is a trusted SSH host key, recorded by `atx trust-host` and
// checked on every remote connection.
type HostKey struct {
	Host      string `gorm:"primaryKey;size:255"`
	PublicKey string `gorm:"type:text;not null"` // authorized_keys format
	AddedAt   time.Time
}
