package scene

import (
	"errors"

	"go.aimuz.me/keysound/config"
)

var (
	// ErrInvalidFormat is returned for malformed scene or configuration imports.
	ErrInvalidFormat = config.ErrInvalidFormat

	ErrSceneNotFound   = errors.New("scene not found")
	ErrSceneExists     = errors.New("scene already exists")
	ErrLastScene       = errors.New("cannot remove the last scene")
	ErrStopKeyConflict = errors.New("key is the stop key")
	ErrBindingConflict = errors.New("key is bound to a sound")
	ErrInvalidKey      = errors.New("invalid key")
)
