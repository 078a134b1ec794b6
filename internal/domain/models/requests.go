package models

// Requests for the anomaly HTTP endpoints. Defined in domain for consistency and reuse.

type AnomalyRequest struct {
	Coin          string  `query:"coin" json:"coin" validate:"required,max=64,coinid"`
	QueryEvents   bool    `query:"query_events" json:"query_events"`
	Eps           float64 `query:"eps" json:"eps" default:"0.1" validate:"gt=0,lte=10"`
	MinPts        int     `query:"min_pts" json:"min_pts" default:"3" validate:"gte=1,lte=91"`
	Contamination float64 `query:"contamination" json:"contamination" validate:"gte=0,lte=0.5"`
}

type WindowRequest struct {
	Date string `query:"date" json:"date" validate:"required,datetime=2006-01-02"`
}
