package chat

import "errors"

// ErrPipelineRequired is returned when a search pipeline is not provided.
var ErrPipelineRequired = errors.New("search pipeline required")

// ErrGeneratorRequired is returned when an answer generator is not provided.
var ErrGeneratorRequired = errors.New("answer generator required")
