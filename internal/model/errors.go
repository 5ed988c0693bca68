package model

import "errors"

var (
	// ErrNotFound is returned when a resource is not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when a resource already exists.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotValid is returned when a resource is not valid.
	ErrNotValid = errors.New("not valid")
	// ErrAlreadyRunning is returned when a task is requested while another one is running.
	ErrAlreadyRunning = errors.New("task already running")

	// ErrElementNotFound is returned when an index, selector or coordinate target
	// does not resolve to a live, visible element.
	ErrElementNotFound = errors.New("element not found")
	// ErrAttachment is returned when a debugging session could not be attached to a tab.
	ErrAttachment = errors.New("attachment failure")
	// ErrTransport is returned when the command channel or a provider call failed.
	ErrTransport = errors.New("transport error")
	// ErrDisconnected is returned to in-flight requests abandoned by a dropped connection.
	ErrDisconnected = errors.New("disconnected")
	// ErrProviderTask is returned when the remote agent reports failure or an ambiguous outcome.
	ErrProviderTask = errors.New("provider task failure")
	// ErrUnknownCommand is returned when a command type is not recognized.
	ErrUnknownCommand = errors.New("unknown command")
)
