package models

import (
	"errors"
	"fmt"
)

// ErrInvalidConfiguration is returned when a round is configured with an
// unusable card count or player count.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// ErrUnknownTheme is returned when the requested theme is not in the catalog.
var ErrUnknownTheme = errors.New("unknown theme")

// ErrInsufficientFaceValues is returned when a theme cannot supply enough pairs.
// It wraps ErrInvalidConfiguration.
var ErrInsufficientFaceValues = fmt.Errorf("%w: insufficient face values", ErrInvalidConfiguration)
