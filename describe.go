package gitver

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// DirtyMarker is appended by git describe --dirty and by Format
const DirtyMarker = "dirty"

// DefaultDescribeTimeout bounds a single git describe invocation
const DefaultDescribeTimeout = 30 * time.Second

// Describer produces git describe output for the repository rooted at root
type Describer interface {
	Describe(ctx context.Context, root string) (string, error)
}

// ExecDescriber runs the git binary
type ExecDescriber struct {
	// Command is the git executable (default: "git")
	Command string

	// Timeout bounds the invocation (default: DefaultDescribeTimeout)
	Timeout time.Duration

	// Match restricts candidate tags to a glob, passed as --match
	Match string
}

// Args returns the describe arguments, without the executable
func (d ExecDescriber) Args() []string {
	args := []string{"describe", "--dirty", "--long", "--always", "--tags"}
	if d.Match != "" {
		args = append(args, "--match", d.Match)
	}
	return args
}

// Describe runs git describe in root. Any failure is a *DescribeInvocationError.
func (d ExecDescriber) Describe(ctx context.Context, root string) (string, error) {
	command := d.Command
	if command == "" {
		command = "git"
	}
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = DefaultDescribeTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := d.Args()
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Dir = root

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = errors.Join(err, ctxErr)
		}
		return "", &DescribeInvocationError{
			Dir:    root,
			Args:   append([]string{command}, args...),
			Stderr: strings.TrimSpace(stderr.String()),
			Err:    err,
		}
	}

	return strings.TrimSpace(string(output)), nil
}

// ParseDescribe splits describe output of the form <tag>-<count>-g<hash>[-dirty].
//
// Tags that contain "-" and untagged output (a bare hash) do not split into
// exactly three fields and are rejected rather than guessed at.
func ParseDescribe(output string) (*Describe, error) {
	fields := strings.Split(output, "-")

	var dirty bool
	if strings.Contains(strings.ToLower(fields[len(fields)-1]), DirtyMarker) {
		dirty = true
		fields = fields[:len(fields)-1]
	}

	if len(fields) != 3 {
		return nil, &MalformedDescribeOutputError{
			Output: output,
			Reason: "expected <tag>-<count>-<object id>, got " + strconv.Itoa(len(fields)) + " fields",
		}
	}

	tag, count, objectID := fields[0], fields[1], fields[2]
	if tag == "" {
		return nil, &MalformedDescribeOutputError{Output: output, Reason: "empty tag"}
	}

	// ParseUint rejects signs, so negative counts cannot get through
	commits, err := strconv.ParseUint(count, 10, 64)
	if err != nil {
		return nil, &MalformedDescribeOutputError{
			Output: output,
			Reason: "commit count " + strconv.Quote(count) + " is not a non-negative integer",
		}
	}

	objectID = strings.TrimPrefix(objectID, "g")
	if !isHex(objectID) {
		return nil, &MalformedDescribeOutputError{
			Output: output,
			Reason: "object id " + strconv.Quote(objectID) + " is not hexadecimal",
		}
	}

	return &Describe{
		Tag:             tag,
		CommitsSinceTag: commits,
		ObjectID:        objectID,
		Dirty:           dirty,
	}, nil
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
