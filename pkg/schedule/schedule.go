package schedule

import (
	"fmt"
	"regexp"
	"strings"
)

// Schedule publishes a calendar under <host>/<username>/<slug>.
type Schedule struct {
	Id         int
	CalendarId int
	OwnerId    int
	Name       string
	Slug       string
	Active     bool
}

func (s Schedule) OwnedBy() int {
	return s.OwnerId
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify turns a schedule name into a url segment.
func Slugify(name string) string {
	return strings.Trim(nonSlugChars.ReplaceAllString(strings.ToLower(name), "-"), "-")
}

func validSlug(slug string) error {
	if len(slug) > 64 || !slugPattern.MatchString(slug) {
		return fmt.Errorf("%w: slug %q must be lowercase letters, digits and single hyphens", ErrInvalidSchedule, slug)
	}
	return nil
}
