package domain

import "net/http"

// Raw outcome of one HTTP exchange, before any protocol interpretation.
type JsonResult struct {
	Body       string
	StatusCode int
	Header     http.Header
}

func (r JsonResult) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

func (r JsonResult) IsClientError() bool {
	return r.StatusCode >= 400 && r.StatusCode < 500
}
