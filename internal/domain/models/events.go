package models

import "time"

// Article is a news record returned by the event corpus.
type Article struct {
	URL           string `json:"url"`
	URLMobile     string `json:"url_mobile,omitempty"`
	Title         string `json:"title"`
	SeenDate      string `json:"seendate"`
	SocialImage   string `json:"socialimage,omitempty"`
	Domain        string `json:"domain"`
	Language      string `json:"language"`
	SourceCountry string `json:"sourcecountry"`
}

// TimelinePoint is one bucket of the coverage-volume timeline.
type TimelinePoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// EventQuery is a request to the event corpus.
type EventQuery struct {
	Window     QueryWindow
	Keyword    string
	MaxRecords int
}

// EventResult holds the articles and timeline found for one window.
type EventResult struct {
	Articles []Article       `json:"articles"`
	Timeline []TimelinePoint `json:"timeline"`
	Dropped  int             `json:"dropped"`
}

// Empty reports whether the result carries no articles or no timeline.
func (r EventResult) Empty() bool {
	return len(r.Articles) == 0 || len(r.Timeline) == 0
}
