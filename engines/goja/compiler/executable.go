package compiler

import (
	"github.com/dop251/goja"

	engineTypes "github.com/bpcreech/http-eval/engines/types"
	"github.com/bpcreech/http-eval/platform/script"
)

// Executable is a compiled snippet. Running its program yields the wrapper
// function, which the evaluator then calls with the execution context as this.
type Executable struct {
	scriptBodyBytes []byte
	mode            script.Mode
	ByteCode        *goja.Program
}

func newExecutable(scriptBodyBytes []byte, mode script.Mode, byteCode *goja.Program) *Executable {
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

func (e *Executable) GetGojaByteCode() *goja.Program {
	return e.ByteCode
}

func (e *Executable) GetEngineType() engineTypes.Type {
	return engineTypes.Goja
}

func (e *Executable) GetMode() script.Mode {
	return e.mode
}
