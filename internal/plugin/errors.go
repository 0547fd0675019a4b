package plugin

import "errors"

// Common errors.
var (
	ErrUnknownPlugin          = errors.New("plugin: unknown plugin")
	ErrUnknownParam           = errors.New("plugin: unknown parameter")
	ErrInvalidParam           = errors.New("plugin: invalid parameter value")
	ErrNotFitted              = errors.New("plugin: not fitted")
	ErrInvalidCount           = errors.New("plugin: count must be positive")
	ErrUnsupportedData        = errors.New("plugin: unsupported data loader")
	ErrConstraintsUnsatisfied = errors.New("plugin: could not generate enough rows satisfying the constraints")
	ErrStateMismatch          = errors.New("plugin: saved state does not match the plugin")
	ErrInvalidConstraint      = errors.New("plugin: invalid constraint")
)
