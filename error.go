package main

import "errors"

// ErrSignalStopped is the cancel cause when a signal stops the server.
var ErrSignalStopped = errors.New("signal stopped")
