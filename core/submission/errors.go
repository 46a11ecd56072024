package submission

import "github.com/pkg/errors"

var errInvalidScore = errors.New("score must be between 0 and 100")
