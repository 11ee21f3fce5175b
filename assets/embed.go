// Package assets embeds the seed photo catalog so a fresh database is
// playable without the moderation pipeline.
package assets

import (
	"embed"
	"encoding/json"
	"fmt"

	"github.com/robalobadob/uwguessr/internal/game"
)

//go:embed photos.json
var FS embed.FS

// SeedPhotos decodes photos.json.
func SeedPhotos() ([]game.Photo, error) {
	b, err := FS.ReadFile("photos.json")
	if err != nil {
		return nil, err
	}
	var out []game.Photo
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode photos.json: %w", err)
	}
	return out, nil
}
