package script

import (
	engineTypes "github.com/bpcreech/http-eval/engines/types"
)

// ExecutableContent represents validated script content that is ready for execution.
// It provides access to the script's source code and its compiled bytecode.
type ExecutableContent interface {
	// GetSource returns the original script content as a string.
	// This is the source code before any compilation or execution.
	GetSource() string

	// GetByteCode returns the compiled bytecode of the script in an engine-specific format.
	// This bytecode object is asserted into the type the target engine requires. If the
	// target engine is unable to assert the bytecode into the correct type, it will return
	// an error at runtime, so the EngineType and ByteCode must be compatible.
	GetByteCode() any

	// GetEngineType returns the engine type this script is intended to run on.
	GetEngineType() engineTypes.Type

	// GetMode returns the evaluation mode the script was compiled for.
	GetMode() Mode
}
