package driven

import "net/http"

// UploadTask is a file-backed request handed to a background transport.
type UploadTask struct {
	// ID is unique per task.
	ID string
	// Request carries method, URL and headers. Its body is ignored.
	Request *http.Request
	// BodyPath is the file streamed as the request body.
	BodyPath string
}

// TaskResponse is the response head of a completed task.
type TaskResponse struct {
	StatusCode int
	Header     http.Header
}

// TransportDelegate receives task events. Calls may arrive concurrently
// from transport goroutines, for different tasks.
//
// Per task the order is: any number of DidSendBodyData, any number of
// DidReceiveData, then exactly one DidComplete.
type TransportDelegate interface {
	// DidSendBodyData reports upload progress.
	DidSendBodyData(task UploadTask, sent, total int64)

	// DidReceiveData delivers a chunk of the response body.
	DidReceiveData(task UploadTask, chunk []byte)

	// DidComplete is the terminal event. err is a transport-level failure;
	// resp is nil when no response head was received.
	DidComplete(task UploadTask, resp *TaskResponse, err error)
}

// BackgroundTransport runs uploads independently of the caller.
// Submitted tasks cannot be cancelled by the submitter.
type BackgroundTransport interface {
	// Submit schedules the task and returns immediately.
	Submit(task UploadTask) error

	// SetDelegate installs the receiver of task events.
	SetDelegate(d TransportDelegate)
}
