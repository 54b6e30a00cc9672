// Package dice rolls polyhedral dice for initiative.
package dice

import apperrors "github.com/louisbranch/turnkeeper/internal/platform/errors"

// ErrInvalidDiceSpec is returned for a die with no faces.
var ErrInvalidDiceSpec = apperrors.New(apperrors.CodeDiceInvalidSpec, "dice sides must be positive")
