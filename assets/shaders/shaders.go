// Package shaders compiles the GLSL stages of the deferred pipeline to
// SPIR-V at startup and exposes their source for inspection.
package shaders

import (
	"encoding/binary"
	"fmt"
	"os"
	"os/exec"
)

// Stage names glslangValidator's -S flag / glslc's filename-suffix detection.
type Stage string

const (
	StageVertex   Stage = "vert"
	StageFragment Stage = "frag"
	StageCompute  Stage = "comp"
)

// Compile invokes an external GLSL-to-SPIR-V compiler (glslc, falling back
// to glslangValidator) and returns the resulting words. Neither compiler
// ships with this module; one of them must be on PATH at runtime.
func Compile(source string, stage Stage) ([]uint32, error) {
	tempSrc, err := os.CreateTemp("", "photon-*."+string(stage))
	if err != nil {
		return nil, fmt.Errorf("shaders: create temp source: %w", err)
	}
	defer os.Remove(tempSrc.Name())
	if _, err := tempSrc.WriteString(source); err != nil {
		tempSrc.Close()
		return nil, fmt.Errorf("shaders: write temp source: %w", err)
	}
	tempSrc.Close()

	outputPath := tempSrc.Name() + ".spv"
	defer os.Remove(outputPath)

	var cmd *exec.Cmd
	if _, err := exec.LookPath("glslc"); err == nil {
		cmd = exec.Command("glslc", tempSrc.Name(), "-o", outputPath, "-O")
	} else if _, err := exec.LookPath("glslangValidator"); err == nil {
		cmd = exec.Command("glslangValidator", "-V", "-S", string(stage), tempSrc.Name(), "-o", outputPath)
	} else {
		return nil, fmt.Errorf("shaders: no SPIR-V compiler found (glslc or glslangValidator)")
	}

	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("shaders: compilation failed: %w\n%s", err, output)
	}

	data, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, fmt.Errorf("shaders: read compiled SPIR-V: %w", err)
	}
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("shaders: SPIR-V output is not word-aligned (%d bytes)", len(data))
	}

	words := make([]uint32, len(data)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	return words, nil
}

// MustCompile is Compile for callers willing to panic during startup.
func MustCompile(source string, stage Stage) []uint32 {
	words, err := Compile(source, stage)
	if err != nil {
		panic(err)
	}
	return words
}
