package rawg

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/boda2004/game-catalog/internal/domain"
)

// optFloat decodes a JSON number into a present value; null and any
// non-numeric token decode to absent. RAWG payloads are loosely typed, so
// numeric fields are accepted only when they are actually numeric.
type optFloat struct {
	Value float64
	Valid bool
}

func (o *optFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	// json.Unmarshal treats null as a no-op on numeric targets, so it has to
	// be rejected before the parse attempt or null would decode to a present 0.
	if string(data) == "null" {
		*o = optFloat{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		*o = optFloat{}
		return nil
	}
	*o = optFloat{Value: v, Valid: true}
	return nil
}

func (o optFloat) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

func (o optFloat) ptr() *float64 {
	if !o.Valid {
		return nil
	}
	v := o.Value
	return &v
}

// optInt behaves like optFloat for integer-valued fields.
type optInt struct {
	Value int64
	Valid bool
}

func (o *optInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if string(data) == "null" {
		*o = optInt{}
		return nil
	}
	var v int64
	if err := json.Unmarshal(data, &v); err != nil {
		*o = optInt{}
		return nil
	}
	*o = optInt{Value: v, Valid: true}
	return nil
}

func (o optInt) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

func (o optInt) ptr() *int64 {
	if !o.Valid {
		return nil
	}
	v := o.Value
	return &v
}

// apiGame is the fixed intermediate structure a RAWG detail payload is parsed
// into before normalization.
type apiGame struct {
	ID              int64                `json:"id"`
	Name            string               `json:"name"`
	Slug            string               `json:"slug"`
	BackgroundImage *string              `json:"background_image"`
	Released        *string              `json:"released"`
	Rating          optFloat             `json:"rating"`
	Metacritic      optInt               `json:"metacritic"`
	Platforms       []apiPlatformHolder  `json:"platforms"`
	Genres          []apiNamed           `json:"genres"`
	Developers      []apiNamed           `json:"developers"`
	Publishers      []apiNamed           `json:"publishers"`
	ESRBRating      *apiNamed            `json:"esrb_rating"`
	Playtime        optInt               `json:"playtime"`
	DescriptionRaw  *string              `json:"description_raw"`
	Website         *string              `json:"website"`
	Tags            []apiNamed           `json:"tags"`
}

type apiNamed struct {
	Name string `json:"name"`
}

type apiPlatformHolder struct {
	Platform apiNamed `json:"platform"`
}

// normalizeGame maps a parsed RAWG record into the canonical catalog shape.
// Pure: same input, same output, no I/O. Absent or null optional scalars stay
// nil; list fields flatten to name strings and default to an empty slice.
func normalizeGame(raw apiGame) domain.CatalogGame {
	platforms := make(domain.StringSlice, 0, len(raw.Platforms))
	for _, p := range raw.Platforms {
		platforms = append(platforms, p.Platform.Name)
	}

	return domain.CatalogGame{
		RAWGID:          raw.ID,
		Name:            raw.Name,
		Slug:            raw.Slug,
		BackgroundImage: raw.BackgroundImage,
		Released:        raw.Released,
		Rating:          raw.Rating.ptr(),
		Metacritic:      raw.Metacritic.ptr(),
		Platforms:       platforms,
		Genres:          flattenNames(raw.Genres),
		Developers:      flattenNames(raw.Developers),
		Publishers:      flattenNames(raw.Publishers),
		Tags:            flattenNames(raw.Tags),
		ESRBRating:      namePtr(raw.ESRBRating),
		Playtime:        raw.Playtime.ptr(),
		Description:     raw.DescriptionRaw,
		Website:         raw.Website,
		AddedAt:         time.Time{},
	}
}

func flattenNames(items []apiNamed) domain.StringSlice {
	out := make(domain.StringSlice, 0, len(items))
	for _, it := range items {
		out = append(out, it.Name)
	}
	return out
}

func namePtr(n *apiNamed) *string {
	if n == nil {
		return nil
	}
	v := n.Name
	return &v
}
