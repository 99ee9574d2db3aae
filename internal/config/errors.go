package config

import "errors"

// Sentinel errors for config validation.
var (
	// ErrInvalidWindow is returned when the sliding window is not positive.
	ErrInvalidWindow = errors.New("delegation window must be > 0 seconds")

	// ErrInvalidThreshold is returned when a threshold is not positive.
	ErrInvalidThreshold = errors.New("delegation thresholds must be > 0")

	// ErrWarnNotBelowBlock is returned when the warn threshold is not below the block threshold.
	ErrWarnNotBelowBlock = errors.New("warn_threshold must be below block_threshold")

	// ErrUnknownKeying is returned for a state keying other than project or session.
	ErrUnknownKeying = errors.New("state keying must be \"project\" or \"session\"")
)
