package gitver

import (
	"fmt"
	"strings"
)

// RootNotFoundError is returned when no .git entry exists in any ancestor of Start.
// The Resolver treats it as the signal to use installed package metadata.
type RootNotFoundError struct {
	Start string
}

func (e *RootNotFoundError) Error() string {
	return fmt.Sprintf("no git repository found in %q or any parent directory", e.Start)
}

// DescribeInvocationError is returned when git describe could not run or exited non-zero
type DescribeInvocationError struct {
	Dir    string
	Args   []string
	Stderr string
	Err    error
}

func (e *DescribeInvocationError) Error() string {
	msg := fmt.Sprintf("running %q in %s: %v", strings.Join(e.Args, " "), e.Dir, e.Err)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *DescribeInvocationError) Unwrap() error {
	return e.Err
}

// MalformedDescribeOutputError is returned when describe output does not have the
// <tag>-<count>-g<hash>[-dirty] shape.
type MalformedDescribeOutputError struct {
	Output string
	Reason string
}

func (e *MalformedDescribeOutputError) Error() string {
	return fmt.Sprintf("malformed describe output %q: %s", e.Output, e.Reason)
}

// NoVersionFoundError is returned when the installed package fallback finds nothing
type NoVersionFoundError struct {
	Path   string
	Reason string
}

func (e *NoVersionFoundError) Error() string {
	return fmt.Sprintf("no version found for %q: %s", e.Path, e.Reason)
}
