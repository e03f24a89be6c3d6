package matrix

import (
	"encoding/json"
	"errors"
	"fmt"
	"matrix-routing-client/internal/domain"
	"net/url"
	"strings"
)

// endpoint builds the service URLs for one base URL.
type endpoint struct {
	serviceURL string
}

func newEndpoint(serviceURL string) (endpoint, error) {
	serviceURL = strings.TrimRight(strings.TrimSpace(serviceURL), "/")
	if serviceURL == "" {
		return endpoint{}, errors.New("service url must be non-empty")
	}
	u, err := url.Parse(serviceURL)
	if err != nil {
		return endpoint{}, fmt.Errorf("parse service url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return endpoint{}, fmt.Errorf("service url scheme must be http or https, got %q", u.Scheme)
	}
	return endpoint{serviceURL: serviceURL}, nil
}

// {serviceURL}/matrix?key={key}
func (e endpoint) submitURL(key string) string {
	return withKey(e.serviceURL+"/matrix", key)
}

// {serviceURL}/matrix/{jobID}?key={key}
func (e endpoint) jobURL(jobID, key string) string {
	return withKey(e.serviceURL+"/matrix/"+url.PathEscape(jobID), key)
}

func withKey(u, key string) string {
	if key == "" {
		return u
	}
	return u + "?" + url.Values{domain.KeyParam: []string{key}}.Encode()
}

// encodeRequest validates req and serializes the body shared by both modes.
func encodeRequest(req domain.MatrixRequest) ([]byte, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	b, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal matrix request: %w", err)
	}
	return b, nil
}
