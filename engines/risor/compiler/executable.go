package compiler

import (
	risorCompiler "github.com/risor-io/risor/compiler"

	engineTypes "github.com/bpcreech/http-eval/engines/types"
	"github.com/bpcreech/http-eval/platform/script"
)

// Executable is a compiled Risor snippet.
type Executable struct {
	source   string
	mode     script.Mode
	ByteCode *risorCompiler.Code
}

func (e *Executable) GetSource() string {
	return e.source
}

func (e *Executable) GetByteCode() any {
	return e.ByteCode
}

func (e *Executable) GetRisorByteCode() *risorCompiler.Code {
	return e.ByteCode
}

func (e *Executable) GetEngineType() engineTypes.Type {
	return engineTypes.Risor
}

// GetMode reports the requested mode; Risor runs both the same way.
func (e *Executable) GetMode() script.Mode {
	return e.mode
}
