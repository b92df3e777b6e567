package script

import (
	"io"

	engineTypes "github.com/bpcreech/http-eval/engines/types"
	"github.com/stretchr/testify/mock"
)

// MockCompiler is a mock implementation of the Compiler interface.
type MockCompiler struct {
	mock.Mock
}

func (m *MockCompiler) Compile(scriptReader io.ReadCloser) (ExecutableContent, error) {
	args := m.Called(scriptReader)
	content, _ := args.Get(0).(ExecutableContent)
	return content, args.Error(1)
}

// MockExecutableContent is a mock implementation of the ExecutableContent interface.
type MockExecutableContent struct {
	mock.Mock
}

func (m *MockExecutableContent) GetSource() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockExecutableContent) GetByteCode() any {
	args := m.Called()
	return args.Get(0)
}

func (m *MockExecutableContent) GetEngineType() engineTypes.Type {
	args := m.Called()
	return args.Get(0).(engineTypes.Type)
}

func (m *MockExecutableContent) GetMode() Mode {
	args := m.Called()
	return args.Get(0).(Mode)
}
