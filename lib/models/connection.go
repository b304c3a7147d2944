package models

import "gorm.io/gorm"

// ServiceConnection is one monitored upstream. The credential fields are
// kind-specific: arr services and Jellyfin use APIKey, qBittorrent uses
// Username/Password.
type ServiceConnection struct {
	gorm.Model
	Kind     ServiceKind `gorm:"index"`
	Name     string
	BaseURL  string
	APIKey   string
	Username string
	Password string
}

type ServiceConnections []ServiceConnection
