package utils

import (
	"path/filepath"
	"strings"
)

// BytecodeExt is the conventional extension of assembled programs.
const BytecodeExt = ".smbc"

func GetPathInfo(relPath string) (fullPath string, parentDir string, err error) {
	fullPath, err = filepath.Abs(relPath)
	if err != nil {
		return "", "", err
	}

	parentDir = filepath.Dir(fullPath)

	return fullPath, parentDir, nil
}

// DefaultOutputPath swaps the extension of inPath for the bytecode extension.
func DefaultOutputPath(inPath string) string {
	ext := filepath.Ext(inPath)
	if ext == "" {
		return inPath + BytecodeExt
	}
	return strings.TrimSuffix(inPath, ext) + BytecodeExt
}
