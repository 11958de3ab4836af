package entity

import "errors"

var (
	ErrUnknownModel = errors.New("unknown model")
	ErrNoImage      = errors.New("no image")
	ErrDecodeImage  = errors.New("failed to decode image")
)
