package httpx

import "net/http"

const (
	StatusOK                  = http.StatusOK                  // Successful request
	StatusNoContent           = http.StatusNoContent           // Successful with no body
	StatusBadRequest          = http.StatusBadRequest          // Validation or malformed input
	StatusUnauthorized        = http.StatusUnauthorized        // Missing or invalid authentication
	StatusForbidden           = http.StatusForbidden           // Authenticated but lacks permission
	StatusNotFound            = http.StatusNotFound            // Key not present
	StatusTooManyRequests     = http.StatusTooManyRequests     // Rate limiting
	StatusInternalError       = http.StatusInternalServerError // Unexpected server error
	StatusServiceUnavailable  = http.StatusServiceUnavailable  // Backing storage unreachable
	StatusInsufficientStorage = http.StatusInsufficientStorage // Storage quota exceeded
)
