package domain

import (
	"strconv"
	"strings"
	"time"
)

// PendingUpload tracks a background upload between submission and
// terminal completion.
type PendingUpload struct {
	// TaskID identifies the transport task and is sent as X-Correlation-ID.
	TaskID string
	// BikeID is the record the upload belongs to.
	BikeID int64
	// PayloadPath is the temporary file holding the encoded body.
	PayloadPath string
	// RequestPath is the URL path the upload was sent to.
	RequestPath string
	// ContentType is the encoded body's media type, boundary included.
	ContentType string
	// StartedAt is when the upload was handed to the transport.
	StartedAt time.Time
}

// bikesSegment precedes the record identifier in upload paths.
const bikesSegment = "bikes"

// BikeIDFromPath extracts the record identifier from an upload path
// shaped like .../bikes/{id}/images.
func BikeIDFromPath(path string) (int64, error) {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i := len(segments) - 2; i >= 0; i-- {
		if segments[i] != bikesSegment {
			continue
		}
		id, err := strconv.ParseInt(segments[i+1], 10, 64)
		if err != nil || id <= 0 {
			return 0, &CorrelationError{Path: path}
		}
		return id, nil
	}
	return 0, &CorrelationError{Path: path}
}
