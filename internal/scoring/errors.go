package scoring

import (
	"errors"
	"fmt"
)

// Error is a scoring program error with a stable numeric code.
// Codes are part of the program ABI and must not be renumbered.
type Error struct {
	Code uint32
	Name string
	msg  string
}

func (e *Error) Error() string {
	return e.msg
}

// Program errors.
var (
	// ErrIncorrectAuthority is reserved for authority-checked operations (issue, slash, freeze).
	ErrIncorrectAuthority = &Error{Code: 0, Name: "IncorrectAuthority", msg: "incorrect authority provided on update or freeze"}

	// ErrDataTypeMismatch is returned when account data length differs from the record size.
	ErrDataTypeMismatch = &Error{Code: 1, Name: "DataTypeMismatch", msg: "data type length mismatched"}

	// ErrMintExists is returned when initializing a mint that is not Uninitialized.
	ErrMintExists = &Error{Code: 2, Name: "MintExists", msg: "mint exists"}

	// ErrScoringMintNotRentExempt is returned when the mint account balance is below the rent-exempt minimum.
	ErrScoringMintNotRentExempt = &Error{Code: 3, Name: "ScoringMintNotRentExempt", msg: "scoring mint account must hold enough lamports to be rent-exempt"}

	// ErrMetadataURITooLong is returned when a metadata URI exceeds MaxMetadataURILen bytes.
	ErrMetadataURITooLong = &Error{Code: 4, Name: "MetadataURITooLong", msg: "metadata uri exceeds 128 bytes"}

	// ErrInvalidMetadataURI is returned when a metadata URI is not NUL-free UTF-8 text.
	ErrInvalidMetadataURI = &Error{Code: 5, Name: "InvalidMetadataURI", msg: "metadata uri must be utf-8 without NUL bytes"}
)

// Errors shared with the runtime; these mirror the host's builtin program errors
// and carry no custom code.
var (
	ErrInvalidAccountData     = errors.New("invalid account data")
	ErrInvalidInstructionData = errors.New("invalid instruction data")
	ErrIncorrectProgramID     = errors.New("incorrect program id")
	ErrNotEnoughAccountKeys   = errors.New("not enough account keys")
)

var programErrors = []*Error{
	ErrIncorrectAuthority,
	ErrDataTypeMismatch,
	ErrMintExists,
	ErrScoringMintNotRentExempt,
	ErrMetadataURITooLong,
	ErrInvalidMetadataURI,
}

// ErrorFromCode maps a custom program error code back to its error value.
func ErrorFromCode(code uint32) (*Error, error) {
	for _, e := range programErrors {
		if e.Code == code {
			return e, nil
		}
	}
	return nil, fmt.Errorf("unknown scoring error code %d", code)
}

// CodeOf extracts the custom program error code from err, if it carries one.
func CodeOf(err error) (uint32, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se.Code, true
	}
	return 0, false
}
