package models

import "fmt"

// PersistenceFault reports a failed store open/get/set/commit.
type PersistenceFault struct {
	Op  string
	Key string
	Err error
}

func (f *PersistenceFault) Error() string {
	if f.Key != "" {
		return fmt.Sprintf("persistence %s %q: %v", f.Op, f.Key, f.Err)
	}
	return fmt.Sprintf("persistence %s: %v", f.Op, f.Err)
}

func (f *PersistenceFault) Unwrap() error { return f.Err }

// TransportFault reports a failed link read or write.
type TransportFault struct {
	Op  string
	Err error
}

func (f *TransportFault) Error() string {
	return fmt.Sprintf("transport %s: %v", f.Op, f.Err)
}

func (f *TransportFault) Unwrap() error { return f.Err }

// ParseFault reports command text that could not be fully interpreted.
type ParseFault struct {
	Input  string
	Reason string
	Err    error
}

func (f *ParseFault) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("parse %q: %s: %v", f.Input, f.Reason, f.Err)
	}
	return fmt.Sprintf("parse %q: %s", f.Input, f.Reason)
}

func (f *ParseFault) Unwrap() error { return f.Err }
