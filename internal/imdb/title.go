package imdb

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Person identifies a credited person on a title.
type Person struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Title is the structured record assembled from a title detail page. It is
// built in one pass from the parsed fields and not mutated afterwards.
type Title struct {
	ID           string   `json:"id"`
	URL          string   `json:"url"`
	Name         string   `json:"name"`
	OriginalName string   `json:"original_name,omitempty"`
	Year         int      `json:"year,omitempty"`
	Rating       float64  `json:"rating,omitempty"`
	Votes        int      `json:"votes,omitempty"`
	ContentRated string   `json:"content_rated,omitempty"`
	Photo        string   `json:"photo,omitempty"`
	Plot         string   `json:"plot,omitempty"`
	Genres       []string `json:"genres,omitempty"`
	Directors    []Person `json:"directors,omitempty"`
	Writers      []Person `json:"writers,omitempty"`
	Actors       []Person `json:"actors,omitempty"`
}

// The site serves some list-valued fields as single objects when only one
// value exists. These wrappers accept both shapes.
type personList []ldPerson

func (p *personList) UnmarshalJSON(data []byte) error {
	var many []ldPerson
	if err := json.Unmarshal(data, &many); err == nil {
		*p = many
		return nil
	}
	var one ldPerson
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*p = personList{one}
	return nil
}

type stringList []string

func (s *stringList) UnmarshalJSON(data []byte) error {
	var many []string
	if err := json.Unmarshal(data, &many); err == nil {
		*s = many
		return nil
	}
	var one string
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*s = stringList{one}
	return nil
}

type ldPerson struct {
	Type string `json:"@type"`
	URL  string `json:"url"`
	Name string `json:"name"`
}

type ldRating struct {
	RatingValue float64     `json:"ratingValue"`
	RatingCount json.Number `json:"ratingCount"`
}

type ldTitle struct {
	Name            string     `json:"name"`
	AlternateName   string     `json:"alternateName"`
	Image           string     `json:"image"`
	ContentRating   string     `json:"contentRating"`
	Description     string     `json:"description"`
	DatePublished   string     `json:"datePublished"`
	Genre           stringList `json:"genre"`
	AggregateRating *ldRating  `json:"aggregateRating"`
	Director        personList `json:"director"`
	Creator         personList `json:"creator"`
	Actor           personList `json:"actor"`
}

// parseTitle assembles a Title from a detail page document. The required
// ld+json block missing or lacking a name means the page layout changed.
func parseTitle(doc *goquery.Document, id, url string) (*Title, error) {
	raw := strings.TrimSpace(doc.Find(`script[type="application/ld+json"]`).First().Text())
	if raw == "" {
		return nil, fmt.Errorf("%w: title metadata script not found", ErrFormatChanged)
	}

	var data ldTitle
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormatChanged, err)
	}
	if strings.TrimSpace(data.Name) == "" {
		return nil, fmt.Errorf("%w: title name missing", ErrFormatChanged)
	}

	title := &Title{
		ID:           id,
		URL:          url,
		Name:         strings.TrimSpace(data.Name),
		OriginalName: strings.TrimSpace(data.AlternateName),
		Year:         parseDisplayYear(data.DatePublished),
		ContentRated: data.ContentRating,
		Photo:        data.Image,
		Plot:         strings.TrimSpace(data.Description),
		Genres:       lowered(data.Genre),
		Directors:    people(data.Director),
		Writers:      people(data.Creator),
		Actors:       people(data.Actor),
	}
	if data.AggregateRating != nil {
		title.Rating = data.AggregateRating.RatingValue
		if count, err := data.AggregateRating.RatingCount.Int64(); err == nil {
			title.Votes = int(count)
		}
	}
	return title, nil
}

func people(list personList) []Person {
	out := make([]Person, 0, len(list))
	for _, entry := range list {
		if entry.Type != "" && entry.Type != "Person" {
			continue
		}
		name := strings.TrimSpace(entry.Name)
		if name == "" {
			continue
		}
		out = append(out, Person{ID: ExtractID(entry.URL), Name: name})
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func lowered(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
