package domain

import (
	"strings"
	"time"
)

// Song is an archived song record with its taxonomy references.
type Song struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Lyrics      string    `json:"lyrics,omitempty"`
	RegionID    string    `json:"regionId,omitempty"`
	LanguageID  string    `json:"languageId,omitempty"`
	ThemeID     string    `json:"themeId,omitempty"`
	CountryID   string    `json:"countryId,omitempty"`
	AudioRef    string    `json:"audioRef,omitempty"`
	ImageRef    string    `json:"imageRef,omitempty"`
	Keywords    []string  `json:"keywords,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Validate checks the minimal integrity of a song record.
func (s *Song) Validate() error {
	if strings.TrimSpace(s.Title) == "" {
		return ErrMissingTitle
	}
	return nil
}
