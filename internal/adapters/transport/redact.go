package transport

import (
	"errors"
	"net/url"
)

// redactKey hides the api key query parameter so URLs can be logged.
func redactKey(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	if q.Get("key") == "" {
		return raw
	}
	q.Set("key", "***")
	u.RawQuery = q.Encode()
	return u.String()
}

// net/http embeds the full request URL in its errors.
func redactErr(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		ue.URL = redactKey(ue.URL)
	}
	return err
}
