package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Game is one catalog entry for an uploaded HTML5 game bundle.
//
// The file_url / thumbnail_url columns are historically named: they hold
// storage KEYS, not URLs, except for legacy rows that predate key storage and
// still carry an absolute http URL. Consumers must branch on that before
// signing. See pkg/storage/s3.ObjectRef.
type Game struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name         string    `gorm:"column:name;not null"`
	GradeLevel   int       `gorm:"column:grade_level;not null"`
	Subject      string    `gorm:"column:subject;not null"`
	Description  *string   `gorm:"column:description"`
	FileKey      string    `gorm:"column:file_url;not null"`
	FileName     string    `gorm:"column:file_name;not null"`
	ThumbnailKey *string   `gorm:"column:thumbnail_url"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Game) TableName() string {
	return "games"
}

func (g *Game) BeforeCreate(_ *gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}
