// Package web provides HTTP request and response types for the status API.
package web

import "github.com/dukex/episodic/pkg/models"

// ErrorResponse represents a standardized API error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// StartEpisodeRequest represents the request body for starting an episode run.
// A missing episode is assigned from the history.
type StartEpisodeRequest struct {
	Episode    *int   `json:"episode,omitempty"    validate:"omitempty,min=1"`
	Visibility string `json:"visibility,omitempty" validate:"omitempty,oneof=public private unlisted"`
}

// StartEpisodeResponse is returned once the run is recorded in the ledger.
type StartEpisodeResponse struct {
	ExecutionID string `json:"execution_id"`
	Status      string `json:"status"`
}

// ExecutionsResponse lists ledger entries.
type ExecutionsResponse struct {
	Executions []*models.Execution `json:"executions"`
	Count      int                 `json:"count"`
}

// StoriesResponse lists stories, oldest episode first.
type StoriesResponse struct {
	Stories []*models.StoryRecord `json:"stories"`
	Count   int                   `json:"count"`
}
