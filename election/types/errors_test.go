package types

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"
)

func TestErrors_Messages(t *testing.T) {
	require.EqualError(t, NewValidationError("oops %d", 1), "validation error: oops 1")
	require.EqualError(t, NewStateError("oops"), "state error: oops")
	require.EqualError(t, NewNotFoundError("oops"), "not found: oops")
	require.EqualError(t, NewDuplicateSubmissionError("oops"), "duplicate submission: oops")
	require.EqualError(t, NewQuorumError("oops"), "quorum error: oops")
	require.EqualError(t, NewCryptoVerificationError("oops"), "crypto verification error: oops")
}

func TestErrors_MatchThroughWrapping(t *testing.T) {
	err := xerrors.Errorf("outer: %w",
		xerrors.Errorf("inner: %w", NewQuorumError("2 of 3")))

	var quorum QuorumError
	require.True(t, xerrors.As(err, &quorum))
	require.Equal(t, "2 of 3", quorum.Reason)

	var state StateError
	require.False(t, xerrors.As(err, &state))
}
