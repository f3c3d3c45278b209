// Package album models the album document a player page is built from and the
// sources it is fetched from.
package album

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// Album is the descriptor half of the document. Password is the gate secret and
// is never sent back to a visitor.
type Album struct {
	Title       Text `json:"title"`
	Author      Text `json:"author"`
	Description Text `json:"description"`
	Cover       Text `json:"cover"`
	Password    Text `json:"password,omitempty"`
}

type TrackEntry struct {
	Src    Text `json:"src"`
	Title  Text `json:"title"`
	Artist Text `json:"artist"`
}

// Text is a string field of the document. A value of any other JSON type
// decodes as empty instead of failing the whole document, so "password": 4821
// disables the gate rather than the page.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*t = ""
		return nil
	}
	*t = Text(s)
	return nil
}

type Document struct {
	Album  Album        `json:"album"`
	Tracks []TrackEntry `json:"tracks"`
}

// Track is one playable entry. Order in the playlist is significant.
type Track struct {
	Source string `json:"src"`
	Title  string `json:"title"`
	Artist string `json:"artist,omitempty"`
}

const secretLen = 4

// ValidSecret reports whether s has the canonical secret shape: exactly four ASCII digits.
func ValidSecret(s string) bool {
	if len(s) != secretLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func Decode(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrDecode, err)
	}
	return &doc, nil
}

// Secret returns the configured gate secret. A password of any other shape is
// treated as no secret at all, so a typo in the document cannot lock everyone out.
func (d *Document) Secret() (string, bool) {
	secret := string(d.Album.Password)
	if !ValidSecret(secret) {
		return "", false
	}
	return secret, true
}

// Playlist builds the playable sequence, dropping entries without a source.
func (d *Document) Playlist() []Track {
	tracks := make([]Track, 0, len(d.Tracks))
	for _, t := range d.Tracks {
		if t.Src == "" {
			continue
		}
		tracks = append(tracks, Track{Source: string(t.Src), Title: string(t.Title), Artist: string(t.Artist)})
	}
	return tracks
}

// Public strips the secret.
func (a Album) Public() Album {
	a.Password = ""
	return a
}
