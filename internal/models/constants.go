package models

import "time"

const (
	// DefaultLocationID is the library location targeted by default.
	DefaultLocationID = 1443

	// DefaultGroupID of 0 targets all seat groups.
	DefaultGroupID = 0

	// DefaultEventID of -1 targets all event templates.
	DefaultEventID = -1

	// DefaultZone of 0 targets all floors.
	DefaultZone = 0

	// DefaultCapacity of -1 matches the service's own availability page.
	DefaultCapacity = -1

	// DefaultPageSize must cover every seat of the location in one grid
	// page; the library has fewer than 2000 seats.
	DefaultPageSize = 2000

	// DefaultPageIndex starts grid pagination at the first page.
	DefaultPageIndex = 0

	// DefaultMinDuration is the smallest available span worth booking.
	DefaultMinDuration = 2 * time.Hour

	// DefaultEmailDomain is the institution's student mail suffix.
	DefaultEmailDomain = "@student.rug.nl"

	// MaxDayOffset is how far ahead the service lets students book.
	MaxDayOffset = 4
)
