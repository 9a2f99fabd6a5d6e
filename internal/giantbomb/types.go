package giantbomb

import (
	"strings"
)

type Image struct {
	MediumURL string `json:"medium_url"`
	SmallURL  string `json:"small_url"`
	ThumbURL  string `json:"thumb_url"`
}

type Platform struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Abbreviation string `json:"abbreviation"`
}

type Game struct {
	ID                  int        `json:"id"`
	Name                string     `json:"name"`
	Deck                string     `json:"deck"`
	Image               *Image     `json:"image"`
	OriginalReleaseDate string     `json:"original_release_date"`
	Platforms           []Platform `json:"platforms"`
}

// ImageURL is the medium image, or empty when Giant Bomb has none
func (game Game) ImageURL() string {
	if game.Image == nil {
		return ""
	}
	return game.Image.MediumURL
}

// PlatformList joins the platform abbreviations, "Unknown" when there are none
func (game Game) PlatformList() string {
	abbreviations := make([]string, 0, len(game.Platforms))
	for _, platform := range game.Platforms {
		if platform.Abbreviation != "" {
			abbreviations = append(abbreviations, platform.Abbreviation)
		}
	}
	if len(abbreviations) == 0 {
		return "Unknown"
	}
	return strings.Join(abbreviations, ", ")
}

// ReleaseYear reads the year out of dates like "2020-09-17 00:00:00"
func (game Game) ReleaseYear() string {
	date := strings.TrimSpace(game.OriginalReleaseDate)
	if len(date) < 4 {
		return "Unknown"
	}
	for _, r := range date[:4] {
		if r < '0' || r > '9' {
			return "Unknown"
		}
	}
	return date[:4]
}
