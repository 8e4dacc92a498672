package loaders

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spaghettifunk/vecsandbox/engine/core"
)

// SPIRVMagic is the first word of every SPIR-V module.
const SPIRVMagic uint32 = 0x07230203

type ShaderLoader struct{}

// Load reads a compiled SPIR-V module. A missing file is reported as core.ErrShaderNotFound.
func (sl *ShaderLoader) Load(path string) ([]uint32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("shader `%s`: %w", path, core.ErrShaderNotFound)
		}
		return nil, err
	}
	code, err := bytesToBytecode(data)
	if err != nil {
		return nil, fmt.Errorf("shader `%s`: %w", path, err)
	}
	return code, nil
}

func bytesToBytecode(b []byte) ([]uint32, error) {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil, fmt.Errorf("SPIR-V size %d is not a multiple of 4", len(b))
	}
	byteCode := make([]uint32, len(b)/4)
	for i := 0; i < len(byteCode); i++ {
		byteIndex := i * 4
		byteCode[i] = 0
		byteCode[i] |= uint32(b[byteIndex])
		byteCode[i] |= uint32(b[byteIndex+1]) << 8
		byteCode[i] |= uint32(b[byteIndex+2]) << 16
		byteCode[i] |= uint32(b[byteIndex+3]) << 24
	}
	if byteCode[0] != SPIRVMagic {
		return nil, fmt.Errorf("bad SPIR-V magic %#08x", byteCode[0])
	}
	return byteCode, nil
}
