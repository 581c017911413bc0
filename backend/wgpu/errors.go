package wgpu

import "errors"

var (
	// ErrNoAdapter is returned from Init when no usable GPU adapter exists.
	ErrNoAdapter = errors.New("wgpu: no GPU adapters found")

	// ErrNotImplemented is returned by operations whose hal path is not
	// complete yet.
	ErrNotImplemented = errors.New("wgpu: not implemented")
)
