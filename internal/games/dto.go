package games

import (
	"time"

	"github.com/classforge/edugames-backend/pkg/db/models"
	"github.com/google/uuid"
)

// GameDTO is the wire representation of a catalog entry. The fileUrl and
// thumbnailUrl fields carry signed GET URLs (or legacy URLs passed through),
// never raw bucket keys.
type GameDTO struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Description  *string   `json:"description,omitempty"`
	GradeLevel   int       `json:"gradeLevel"`
	Subject      string    `json:"subject"`
	FileURL      string    `json:"fileUrl"`
	FileName     string    `json:"fileName,omitempty"`
	ThumbnailURL *string   `json:"thumbnailUrl,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

func newGameDTO(game *models.Game, fileURL string, thumbnailURL *string) *GameDTO {
	return &GameDTO{
		ID:           game.ID,
		Name:         game.Name,
		Description:  game.Description,
		GradeLevel:   game.GradeLevel,
		Subject:      game.Subject,
		FileURL:      fileURL,
		FileName:     game.FileName,
		ThumbnailURL: thumbnailURL,
		CreatedAt:    game.CreatedAt,
	}
}
