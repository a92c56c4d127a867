package models

import "encoding/json"

// ChartSeriesName is the label the front end shows for the score series
const ChartSeriesName = "Sentiment Score"

// ChartData is the payload of GET /api/chart-data
type ChartData struct {
	Series []ChartSeries `json:"series"`
}

// ChartSeries is a named list of points
type ChartSeries struct {
	Name string       `json:"name"`
	Data []ChartPoint `json:"data"`
}

// ChartPoint is one hourly bucket, encoded as [timestampMillis, score]
type ChartPoint struct {
	Timestamp int64
	Score     float64
}

// MarshalJSON encodes the point as a two-element array
func (p ChartPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]interface{}{p.Timestamp, p.Score})
}

// UnmarshalJSON decodes a [timestampMillis, score] pair
func (p *ChartPoint) UnmarshalJSON(data []byte) error {
	var pair [2]float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	p.Timestamp = int64(pair[0])
	p.Score = pair[1]
	return nil
}
