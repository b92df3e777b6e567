package compiler

import (
	starlarkLib "go.starlark.net/starlark"

	engineTypes "github.com/bpcreech/http-eval/engines/types"
	"github.com/bpcreech/http-eval/platform/script"
)

// Executable represents a compiled Starlark snippet
type Executable struct {
	scriptBodyBytes []byte
	mode            script.Mode
	ByteCode        *starlarkLib.Program
}

func newExecutable(scriptBodyBytes []byte, mode script.Mode, byteCode *starlarkLib.Program) *Executable {
	if len(scriptBodyBytes) == 0 || byteCode == nil {
		return nil
	}

	return &Executable{
		scriptBodyBytes: scriptBodyBytes,
		mode:            mode,
		ByteCode:        byteCode,
	}
}

func (e *Executable) GetSource() string {
	return string(e.scriptBodyBytes)
}

func (e *Executable) GetByteCode() any {
	return e.ByteCode
}

func (e *Executable) GetStarlarkByteCode() *starlarkLib.Program {
	return e.ByteCode
}

func (e *Executable) GetEngineType() engineTypes.Type {
	return engineTypes.Starlark
}

// GetMode reports the requested mode. Starlark has no suspension points, so
// both modes run the same way.
func (e *Executable) GetMode() script.Mode {
	return e.mode
}
