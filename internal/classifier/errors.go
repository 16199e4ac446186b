package classifier

import (
	"errors"
	"fmt"
	"net/http"
)

// StatusError is returned for any non-2xx answer, whatever the body says.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e == nil {
		return "classifier status error"
	}
	if e.Body == "" {
		return fmt.Sprintf("classifier returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("classifier returned %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

func IsStatusError(err error) bool {
	var se *StatusError
	return errors.As(err, &se)
}
