package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseErrorFormatsLine(t *testing.T) {
	t.Parallel()

	root := fmt.Errorf("unexpected node")
	err := NewParseError("plan.yaml", 12, root)

	require.EqualError(t, err, "parse error: plan.yaml:12: unexpected node")
	require.ErrorIs(t, err, root)
}

func TestParseErrorWithoutLine(t *testing.T) {
	t.Parallel()

	err := NewParseError("plan.yaml", 0, fmt.Errorf("boom"))
	require.EqualError(t, err, "parse error: plan.yaml: boom")
}

func TestValidationErrorIncludesField(t *testing.T) {
	t.Parallel()

	err := NewValidationError("steps[0].type", "unsupported step type", nil)
	require.EqualError(t, err, "validation error: steps[0].type: unsupported step type")
}

func TestNotFoundError(t *testing.T) {
	t.Parallel()

	err := NewNotFoundError("user", "alice")
	require.EqualError(t, err, "user alice not found")

	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	require.Equal(t, "alice", nf.Name)
}

func TestInvalidArgumentError(t *testing.T) {
	t.Parallel()

	err := NewInvalidArgumentError("mtu", "must be between 1280 and 9000")
	require.EqualError(t, err, "invalid argument mtu: must be between 1280 and 9000")

	ia, ok := AsInvalidArgument(err)
	require.True(t, ok)
	require.Equal(t, "mtu", ia.Argument)
}

func TestAsNotFoundUnwrapsRemoteOperationError(t *testing.T) {
	t.Parallel()

	wrapped := NewRemoteOperationError("remove user", "esx01.lab", NewNotFoundError("user", "alice"))

	nf, ok := AsNotFound(wrapped)
	require.True(t, ok)
	require.Equal(t, "user", nf.Kind)
	require.Equal(t, "alice", nf.Name)

	_, ok = AsNotFound(fmt.Errorf("connection refused"))
	require.False(t, ok)
}

func TestRemoteOperationErrorPreservesFaultText(t *testing.T) {
	t.Parallel()

	fault := fmt.Errorf("add error")
	err := NewRemoteOperationError("add user", "esx01.lab", fault)

	require.EqualError(t, err, "add user failed on esx01.lab: add error")
	require.ErrorIs(t, err, fault)

	var roe *RemoteOperationError
	require.True(t, errors.As(err, &roe))
	require.Equal(t, "add error", roe.Message)
}

func TestRemoteOperationErrorWithoutHost(t *testing.T) {
	t.Parallel()

	err := NewRemoteOperationError("update role", "", fmt.Errorf("update error"))
	require.EqualError(t, err, "update role failed: update error")
}
