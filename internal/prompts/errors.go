package prompts

import "errors"

var (
	// ErrUnknownType is returned for prompt type names outside the closed set.
	ErrUnknownType = errors.New("prompts: unknown prompt type")
	// ErrNotFound means a prompt type has no versions to serve.
	ErrNotFound = errors.New("prompts: no active prompt")
	// ErrVersionNotFound means the requested version number does not exist.
	ErrVersionNotFound = errors.New("prompts: version not found")
	// ErrCorruptSet means the stored document could not be parsed.
	ErrCorruptSet = errors.New("prompts: corrupt prompt set")
	// ErrIO wraps disk read and write failures.
	ErrIO = errors.New("prompts: i/o failure")
)
