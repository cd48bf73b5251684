package main

// Process exit codes. Automation branches on these values.
const (
	exitOK                = 0
	exitInternalFailure   = 1
	exitVerifyFailed      = 2
	exitConfigInvalid     = 3
	exitInvalidInput      = 6
	exitMissingDependency = 7
)
