package utils

import (
	"log"
	"time"
)

// GetEasternTimeLocation returns the US market timezone.
func GetEasternTimeLocation() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		log.Fatal("Failed to load location", err)
	}
	return loc
}

// TimeNowEastern returns the current time in the US market timezone.
func TimeNowEastern() time.Time {
	return time.Now().In(GetEasternTimeLocation())
}

// PrettyDate formats a time for human-facing notifications.
func PrettyDate(t time.Time) string {
	return t.In(GetEasternTimeLocation()).Format("Mon, 02 Jan 2006 15:04 MST")
}
