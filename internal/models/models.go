package models

import (
	"path"
	"time"
)

// MediaKind partitions assets into the two supported media categories.
type MediaKind string

const (
	KindImage MediaKind = "image"
	KindVideo MediaKind = "video"
)

// Valid reports whether the kind is a supported category.
func (k MediaKind) Valid() bool {
	return k == KindImage || k == KindVideo
}

// Bucket returns the upload bucket for the kind, relative to the data root.
// The mapping is explicit so migration fallback paths stay deterministic per
// category.
func (k MediaKind) Bucket() string {
	switch k {
	case KindImage:
		return path.Join("uploads", "weapons", "images")
	case KindVideo:
		return path.Join("uploads", "weapons", "videos")
	default:
		return path.Join("uploads", "weapons")
	}
}

// FilenamePrefix returns the generated-filename prefix for the kind.
func (k MediaKind) FilenamePrefix() string {
	if k == KindVideo {
		return "weapon-video"
	}
	return "weapon"
}

// Weapon is the owning entity for media assets.
type Weapon struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	Name        string       `gorm:"index" json:"name"`
	Description string       `gorm:"type:text" json:"description"`
	Assets      []MediaAsset `gorm:"foreignKey:WeaponID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// MediaAsset is one stored media file attached to a weapon.
//
// RelativePath is stored relative to the configured data root. Rows written
// before path migration may still hold absolute paths; resolution helpers
// accept both forms and the migration engine rewrites them.
type MediaAsset struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	WeaponID         uint      `gorm:"index;not null" json:"weapon_id"`
	Kind             MediaKind `gorm:"type:varchar(16);index" json:"kind"`
	StoredFilename   string    `gorm:"uniqueIndex;size:255;not null" json:"filename"`
	OriginalFilename string    `gorm:"size:255;not null" json:"original_name"`
	RelativePath     string    `gorm:"size:500;not null" json:"path"`
	SizeBytes        int64     `json:"file_size"`
	MimeType         string    `gorm:"size:100" json:"mime_type"`
	DurationSeconds  *int      `json:"duration,omitempty"`
	Description      string    `gorm:"type:text" json:"description"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TableName keeps the table name from the original schema.
func (MediaAsset) TableName() string {
	return "media_assets"
}
