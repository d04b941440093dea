package service

import "errors"

// Sentinel kinds for lifecycle errors.
var (
	ErrStart  = errors.New("start service")
	ErrListen = errors.New("bind listener")
)
