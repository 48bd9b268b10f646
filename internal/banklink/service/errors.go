package service

import "errors"

var (
	// ErrAuthRequired means there is no usable token and refresh could not
	// produce one. The UI should prompt the user to reconnect; services never
	// launch the interactive flow themselves.
	ErrAuthRequired = errors.New("authentication required")

	// ErrNotConnected means no bank connection exists at all.
	ErrNotConnected = errors.New("not connected")

	// ErrStateMismatch means the callback state did not match the one issued
	// at authorization start. The exchange is aborted before any request.
	ErrStateMismatch = errors.New("state parameter mismatch")

	// ErrNoPendingConnect means a callback arrived with no authorization in
	// progress.
	ErrNoPendingConnect = errors.New("no authorization in progress")

	// ErrCodeRejected means the aggregator refused the authorization code:
	// it expired or was already used.
	ErrCodeRejected = errors.New("authorization code expired or already used")

	// ErrRedirectMismatch means the aggregator refused the exchange because
	// the redirect URI did not byte-match the one used at authorization.
	ErrRedirectMismatch = errors.New("redirect URI mismatch")

	// ErrSyncInProgress means a sync run is already in flight; callers should
	// treat this as a no-op, not a failure.
	ErrSyncInProgress = errors.New("sync already in progress")

	// ErrUnavailable means the aggregator could not be reached and no cached
	// snapshot exists to fall back to.
	ErrUnavailable = errors.New("aggregator unavailable and no cached data")
)
