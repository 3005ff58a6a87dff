package jobs

import (
	goerrors "github.com/goliatone/go-errors"
)

const TextCodeJobNotFound = "JOB_NOT_FOUND"

// ErrJobNotFound is returned when no job matches the requested id.
var ErrJobNotFound = goerrors.New("job not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeJobNotFound).
	WithCode(goerrors.CodeNotFound)
