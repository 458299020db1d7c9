package errors

import "fmt"

var (
	ErrWorkerPanic         = fmt.Errorf("worker panic")
	ErrDuplicateConnection = fmt.Errorf("connection id already registered")
	ErrEmptyWords          = fmt.Errorf("no words have been found")
)
