package imdb

import "regexp"

var (
	titleIDPattern  = regexp.MustCompile(`^tt\d{7,8}$`)
	personIDPattern = regexp.MustCompile(`^nm\d{7,8}$`)
	anyIDPattern    = regexp.MustCompile(`(?:nm|tt)\d{7,8}`)
	siteURLPattern  = regexp.MustCompile(`^https?://[^/]*imdb\.com/`)
	titlePathRe     = regexp.MustCompile(`^/title/(tt\d{7,8})/?$`)
)

// IsTitleID reports whether value is a valid title id (tt followed by 7 or
// 8 digits).
func IsTitleID(value string) bool {
	return titleIDPattern.MatchString(value)
}

// IsPersonID reports whether value is a valid person id (nm followed by 7
// or 8 digits).
func IsPersonID(value string) bool {
	return personIDPattern.MatchString(value)
}

// ExtractID returns the first title or person id embedded in s, or "".
func ExtractID(s string) string {
	return anyIDPattern.FindString(s)
}

// IsSiteURL reports whether url points at the movie database site.
func IsSiteURL(url string) bool {
	return siteURLPattern.MatchString(url)
}
