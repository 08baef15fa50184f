package errorsdk

// Action describes how the ingestion service grouped a report.
type Action string

const (
	ActionCreatedNew      Action = "created_new"
	ActionAddedToExisting Action = "added_to_existing"
	ActionMatchedSimilar  Action = "matched_similar"
)

// ReportResult is the outcome of a report call. Report calls never return an error;
// failures are described here instead.
//
// On the task transport ID is the triggered run's identifier. On the HTTP transport
// it is the service's triggerId and the remaining fields are whatever the service
// returned.
type ReportResult struct {
	Success      bool      `json:"success"`
	ID           string    `json:"id,omitempty"`
	GroupID      string    `json:"groupId,omitempty"`
	GroupCode    string    `json:"groupCode,omitempty"`
	OccurrenceID string    `json:"occurrenceId,omitempty"`
	Action       Action    `json:"action,omitempty"`
	Message      string    `json:"message,omitempty"`
	Error        ErrorKind `json:"error,omitempty"`
}

func networkErrorResult(lastFailure error) ReportResult {
	msg := "Failed to report error after retries"
	if lastFailure != nil {
		msg = lastFailure.Error()
	}

	return ReportResult{
		Success: false,
		Error:   ErrorKindNetwork,
		Message: msg,
	}
}
