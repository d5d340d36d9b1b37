package deal

import (
	"net/mail"
	"strings"

	"dealdesk/failure"
)

const maxStatusLen = 64

func requireText(field, value string) (string, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return "", failure.Validation(field, field+" is required")
	}
	return v, nil
}

// requireEmail accepts a bare address only, not "Name <addr>".
func requireEmail(field, value string) (string, error) {
	v, err := requireText(field, value)
	if err != nil {
		return "", err
	}
	addr, err := mail.ParseAddress(v)
	if err != nil || addr.Address != v {
		return "", failure.Validation(field, field+" must be a valid email address")
	}
	return v, nil
}

func validateStatus(status string) (string, error) {
	v, err := requireText("status", status)
	if err != nil {
		return "", err
	}
	if len(v) > maxStatusLen {
		return "", failure.Validation("status", "status is too long")
	}
	return v, nil
}

func validateLimit(limit *int) (int, error) {
	if limit == nil {
		return DefaultLimit, nil
	}
	if *limit < 1 || *limit > MaxLimit {
		return 0, failure.Validation("limit", "limit must be between 1 and 100")
	}
	return *limit, nil
}

func validateObjectKey(key *string) (*string, error) {
	if key == nil {
		return nil, nil
	}
	v := strings.TrimSpace(*key)
	if v == "" {
		return nil, failure.Validation("objectKey", "objectKey must be non-empty or null")
	}
	return &v, nil
}

func optionalText(value string) *string {
	v := strings.TrimSpace(value)
	if v == "" {
		return nil
	}
	return &v
}
