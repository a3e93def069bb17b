package source

import "errors"

var (
	ErrSourceUnavailable = errors.New("source unavailable")
	ErrCancelled         = errors.New("fetch cancelled")
)

type permanent struct{ err error }

func (p permanent) Error() string { return p.err.Error() }
func (p permanent) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying, such as rejected credentials.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanent{err: err}
}

func isPermanent(err error) bool {
	var p permanent
	return errors.As(err, &p)
}
