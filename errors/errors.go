package errors

// Error is a string based error type so that error values can be
// declared as constants next to the code that returns them.
type Error string

func (e Error) Error() string {
	return string(e)
}
