package huggingface

import "unicode/utf8"

const (
	minSummaryLength   = 50
	maxSummaryLength   = 200
	minSummaryFloor    = 30
	summaryTemperature = 0.3
)

// Parameters tune generation on the upstream model.
type Parameters struct {
	MaxLength   int     `json:"max_length"`
	MinLength   int     `json:"min_length"`
	DoSample    bool    `json:"do_sample"`
	Temperature float64 `json:"temperature"`
}

// Options control upstream behavior rather than generation.
type Options struct {
	WaitForModel bool `json:"wait_for_model"`
	UseCache     bool `json:"use_cache"`
}

// SummarizationRequest is the payload posted to the inference endpoint.
type SummarizationRequest struct {
	Inputs     string     `json:"inputs"`
	Parameters Parameters `json:"parameters"`
	Options    Options    `json:"options"`
}

// BuildRequest sizes the summary to the input: a quarter of its length in
// characters clamped to [50, 200], with a minimum of a third of that but
// never below 30. Decoding is greedy and upstream caching is off.
func BuildRequest(text string) SummarizationRequest {
	maxLength := utf8.RuneCountInString(text) / 4
	maxLength = min(max(maxLength, minSummaryLength), maxSummaryLength)
	minLength := max(minSummaryFloor, maxLength/3)

	return SummarizationRequest{
		Inputs: text,
		Parameters: Parameters{
			MaxLength:   maxLength,
			MinLength:   minLength,
			DoSample:    false,
			Temperature: summaryTemperature,
		},
		Options: Options{
			WaitForModel: true,
			UseCache:     false,
		},
	}
}
