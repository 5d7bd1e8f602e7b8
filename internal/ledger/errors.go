package ledger

import (
	"errors"

	pkgerrors "github.com/angelmondragon/stockroom-backend/pkg/errors"
)

var (
	ErrInvalidQuantity   = errors.New("quantity must be greater than zero")
	ErrInvalidThreshold  = errors.New("threshold must be zero or greater")
	ErrInvalidMinPar     = errors.New("min_par must be zero or greater")
	ErrInvalidName       = errors.New("item name is required")
	ErrSameTenant        = errors.New("source and destination tenant must differ")
	ErrItemNotFound      = errors.New("item not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidReturn     = errors.New("return exceeds quantity in use")
	ErrDuplicateName     = errors.New("item name already exists in tenant")
)

func codeFor(err error) pkgerrors.Code {
	switch {
	case errors.Is(err, ErrInvalidQuantity),
		errors.Is(err, ErrInvalidThreshold),
		errors.Is(err, ErrInvalidMinPar),
		errors.Is(err, ErrInvalidName),
		errors.Is(err, ErrSameTenant):
		return pkgerrors.CodeValidation
	case errors.Is(err, ErrItemNotFound):
		return pkgerrors.CodeNotFound
	case errors.Is(err, ErrInsufficientStock), errors.Is(err, ErrInvalidReturn):
		return pkgerrors.CodeStateConflict
	case errors.Is(err, ErrDuplicateName):
		return pkgerrors.CodeConflict
	default:
		return pkgerrors.CodeInternal
	}
}

// fault wraps a ledger sentinel into the typed API error; errors.Is still
// matches the sentinel.
func fault(sentinel error) *pkgerrors.Error {
	return pkgerrors.Wrap(codeFor(sentinel), sentinel, sentinel.Error())
}

func dependency(err error, op string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: "+op)
}
