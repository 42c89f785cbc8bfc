package directive

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"

	"github.com/zjrosen/devdeck/internal/log"
	"github.com/zjrosen/devdeck/internal/payload"
)

// ChartFormat is the example shown to users whose @chart payload could not be
// decoded.
const ChartFormat = `@chart {"labels": ["A", "B"], "values": [1, 2]}`

// ExtractedLabel is the series label used when data was mined from free text.
const ExtractedLabel = "Extracted Data"

var numberPattern = regexp.MustCompile(`\d+(\.\d+)?`)

// ChartFormatError reports a chart payload that was neither valid chart JSON
// nor contained any number.
type ChartFormatError struct {
	Input  string
	Reason string
}

func (e *ChartFormatError) Error() string {
	return fmt.Sprintf("invalid chart data: %s", e.Reason)
}

type chartJSON struct {
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
	Data   []float64 `json:"data"`
	Label  string    `json:"label"`
}

// ParseChart decodes a chart payload. Strict JSON is tried first; otherwise
// every decimal number in text becomes a point labelled "Point n".
func ParseChart(text string) (payload.Chart, error) {
	chart, strictErr := parseStrict(text)
	if strictErr == nil {
		return chart, nil
	}

	found := numberPattern.FindAllString(text, -1)
	if len(found) == 0 {
		return payload.Chart{}, &ChartFormatError{
			Input:  text,
			Reason: "no chart JSON or numeric data found",
		}
	}

	chart = payload.Chart{
		Labels: make([]string, 0, len(found)),
		Series: make([]float64, 0, len(found)),
		Label:  ExtractedLabel,
	}
	for i, s := range found {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			continue
		}
		chart.Labels = append(chart.Labels, fmt.Sprintf("Point %d", i+1))
		chart.Series = append(chart.Series, v)
	}
	log.Debug(log.CatParser, "chart data extracted from text", "points", chart.Len(), "strictErr", strictErr)
	return chart, nil
}

func parseStrict(text string) (payload.Chart, error) {
	var raw chartJSON
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return payload.Chart{}, err
	}

	series := raw.Values
	if series == nil {
		series = raw.Data
	}
	switch {
	case len(raw.Labels) == 0:
		return payload.Chart{}, fmt.Errorf("missing labels")
	case len(series) == 0:
		return payload.Chart{}, fmt.Errorf("missing values")
	case len(raw.Labels) != len(series):
		return payload.Chart{}, fmt.Errorf("%d labels for %d values", len(raw.Labels), len(series))
	}
	return payload.Chart{Labels: raw.Labels, Series: series, Label: raw.Label}, nil
}
