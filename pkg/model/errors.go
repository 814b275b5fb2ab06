package model

import "errors"

// ErrModuleNotFound is returned when a required module has no
// matching source in the owning design document.
var ErrModuleNotFound = errors.New("module not found")
