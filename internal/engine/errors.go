package engine

import (
	"github.com/angelmondragon/quotation-engine/pkg/enums"
	pkgerrors "github.com/angelmondragon/quotation-engine/pkg/errors"
)

// IsValidationError reports a submission blocked by the pre-submission rules or bad input.
func IsValidationError(err error) bool {
	return pkgerrors.Is(err, pkgerrors.CodeValidation)
}

// IsTransportError reports a failed call to the quote service. The draft is intact.
func IsTransportError(err error) bool {
	return pkgerrors.Is(err, pkgerrors.CodeDependency)
}

// IsStateError reports an operation attempted from a state that does not allow it.
func IsStateError(err error) bool {
	return pkgerrors.Is(err, pkgerrors.CodeStateConflict)
}

func stateError(op string, state enums.QuoteStatus) error {
	return pkgerrors.Newf(pkgerrors.CodeStateConflict, "cannot %s a quote that is %s", op, state)
}
