package compiler

import "errors"

// Compile-time failure kinds. Every error the lowering core returns wraps one
// of these sentinels, so callers and tests can classify failures with
// errors.Is while the message carries the offending construct. The first
// error aborts the whole compilation; there is no recovery or multi-error
// reporting.
var (
	// ErrOutOfRegisters: the program needs more live scalars than the
	// machine has generic registers. Nothing is spilled.
	ErrOutOfRegisters = errors.New("out of registers")

	// ErrOutOfMemory: the data-region bump pointer would cross into the
	// stack region.
	ErrOutOfMemory = errors.New("out of memory")

	// ErrDuplicateBinding: a name is redeclared in its own scope, or a name
	// permanently reserved by a const is declared again anywhere.
	ErrDuplicateBinding = errors.New("duplicate binding")

	// ErrUnknownIdentifier: a name that cannot be resolved and is not
	// eligible for auto-allocation (it once named a const).
	ErrUnknownIdentifier = errors.New("unknown identifier")

	// ErrConstReassignment: an assignment targets a const name.
	ErrConstReassignment = errors.New("const reassignment")

	// ErrOutOfBounds: a literal array index outside the declared length.
	ErrOutOfBounds = errors.New("array index out of bounds")

	// ErrUnsupportedOperator: an operator the target machine cannot
	// execute (* / % << >> && || !), or a comparison used as a value.
	ErrUnsupportedOperator = errors.New("unsupported operator")

	// ErrEmptyHandlerStack: break/continue with no enclosing construct, or
	// an unmatched scope or handler pop (an internal invariant violation).
	ErrEmptyHandlerStack = errors.New("empty handler stack")

	// ErrBadDestructuring: a destructuring declaration whose right side is
	// not an array literal of matching length.
	ErrBadDestructuring = errors.New("invalid destructuring shape")
)
