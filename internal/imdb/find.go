package imdb

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"trawler/internal/match"
)

// The find page embeds its ranked results as JSON inside a script tag. Only
// the fields below are relied on; anything else may churn freely.
type findPayload struct {
	Props struct {
		PageProps map[string]json.RawMessage `json:"pageProps"`
	} `json:"props"`
}

type findResults struct {
	Results []findResult `json:"results"`
}

type findResult struct {
	ID          string `json:"id"`
	TitleName   string `json:"titleNameText"`
	ReleaseText string `json:"titleReleaseText"`
	AkaName     string `json:"akaName"`
	Poster      struct {
		URL string `json:"url"`
	} `json:"titlePosterImageModel"`
}

// parseFindResults extracts ranked candidates from a find page document.
// Discovery order becomes each candidate's position. Structural drift (a
// missing script tag or results container) fails hard with ErrFormatChanged.
func (c *Client) parseFindResults(doc *goquery.Document) ([]match.Candidate, error) {
	raw := strings.TrimSpace(doc.Find("script#__NEXT_DATA__").First().Text())
	if raw == "" {
		return nil, fmt.Errorf("%w: embedded results script not found", ErrFormatChanged)
	}

	var payload findPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormatChanged, err)
	}
	container, ok := payload.Props.PageProps["titleResults"]
	if !ok {
		return nil, fmt.Errorf("%w: titleResults missing from page payload", ErrFormatChanged)
	}

	var results findResults
	if err := json.Unmarshal(container, &results); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormatChanged, err)
	}

	candidates := make([]match.Candidate, 0, len(results.Results))
	for _, result := range results.Results {
		if len(candidates) >= c.maxResults {
			break
		}
		name := strings.TrimSpace(result.TitleName)
		if name == "" || !IsTitleID(result.ID) {
			return nil, fmt.Errorf("%w: result entry missing name or id", ErrFormatChanged)
		}
		candidate := match.Candidate{
			Name:      name,
			ID:        result.ID,
			URL:       c.titleURL(result.ID),
			Year:      parseDisplayYear(result.ReleaseText),
			Thumbnail: result.Poster.URL,
			Position:  len(candidates),
		}
		if aka := cleanAka(result.AkaName); aka != "" {
			candidate.AlternateNames = []string{aka}
		}
		candidates = append(candidates, candidate)
	}
	return candidates, nil
}

// parseDisplayYear reads the leading year out of release text such as
// "1999" or "1999–2003".
func parseDisplayYear(text string) int {
	text = strings.TrimSpace(text)
	if len(text) < 4 {
		return 0
	}
	year, err := strconv.Atoi(text[:4])
	if err != nil {
		return 0
	}
	return year
}

// cleanAka strips the quoting the site wraps alternate names in.
func cleanAka(aka string) string {
	aka = strings.TrimSpace(aka)
	aka = strings.Trim(aka, `"`)
	return strings.TrimSpace(aka)
}
