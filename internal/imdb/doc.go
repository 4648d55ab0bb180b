// Package imdb scrapes the movie database's find and title pages for
// candidate records. The site is treated as an opaque provider of
// semi-structured HTML with embedded JSON; any structural drift surfaces as
// ErrFormatChanged rather than partial data.
package imdb
