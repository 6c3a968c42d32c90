package runner

import (
	"fmt"
	"net/http"
	"time"
)

// Response is the success payload of an Outcome.
type Response struct {
	Status int   // protocol status code
	Size   int64 // response body length in bytes
}

// Outcome is the result of one request attempt. Exactly one of Response and
// Err is set.
type Outcome struct {
	Start    time.Time
	End      time.Time
	Response *Response
	Err      error
}

// Succeeded builds a successful Outcome.
func Succeeded(start, end time.Time, status int, size int64) Outcome {
	return Outcome{
		Start:    start,
		End:      clampEnd(start, end),
		Response: &Response{Status: status, Size: size},
	}
}

// Failed builds a failed Outcome. A nil err is replaced with a generic one so
// the union never ends up empty.
func Failed(start, end time.Time, err error) Outcome {
	if err == nil {
		err = fmt.Errorf("request failed")
	}
	return Outcome{
		Start: start,
		End:   clampEnd(start, end),
		Err:   err,
	}
}

// OK reports whether the outcome carries a response.
func (o Outcome) OK() bool {
	return o.Err == nil && o.Response != nil
}

// Latency returns End - Start.
func (o Outcome) Latency() time.Duration {
	return o.End.Sub(o.Start)
}

func clampEnd(start, end time.Time) time.Time {
	if end.Before(start) {
		return start
	}
	return end
}

// HTTPError represents a completed HTTP exchange whose status was not accepted.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}
