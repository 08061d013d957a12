package domain

import "errors"

var (
	ErrLeadNotFound   = errors.New("lead_not_found")
	ErrClientNotFound = errors.New("client_not_found")
)
