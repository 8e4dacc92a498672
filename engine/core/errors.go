package core

import (
	"errors"

	"github.com/spaghettifunk/vecsandbox/engine/containers"
)

var (
	ErrSwapchainBooting   = errors.New("swapchain resized or recreated, booting")
	ErrArenaExhausted     = containers.ErrArenaExhausted
	ErrTableFull          = errors.New("resource table full")
	ErrInvalidKey         = errors.New("invalid resource key")
	ErrMeshTruncated      = errors.New("mesh asset truncated")
	ErrMeshMisaligned     = errors.New("mesh section not a whole number of elements")
	ErrShaderNotFound     = errors.New("shader binary not found")
	ErrUnknownVertexInput = errors.New("unknown vertex input kind")
	ErrBackend            = errors.New("graphics backend failure")
	ErrUpdateOutOfRange   = errors.New("update outside of resource bounds")
)
