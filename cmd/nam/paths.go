package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/samcharles93/namcore/internal/api"
	"github.com/samcharles93/namcore/internal/namfile"
)

// stdinIsTTY is a small seam for tests.
var stdinIsTTY = isTTY

// resolveModelsDir returns the --models-path value or NAM_MODELS_DIR.
func resolveModelsDir(modelsPath string) string {
	if dir := strings.TrimSpace(modelsPath); dir != "" {
		return dir
	}
	return strings.TrimSpace(os.Getenv(api.EnvModelsDir))
}

func resolveModelPath(modelFlag string, modelsPath string, stdin io.Reader, stderr io.Writer) (string, error) {
	modelFlag = strings.TrimSpace(modelFlag)
	modelsDir := resolveModelsDir(modelsPath)
	if modelFlag != "" {
		if !strings.ContainsRune(modelFlag, filepath.Separator) && modelsDir != "" {
			for _, cand := range []string{modelFlag, modelFlag + namfile.Ext} {
				p := filepath.Join(modelsDir, cand)
				if st, err := os.Stat(p); err == nil && st.Mode().IsRegular() {
					return p, nil
				}
			}
		}
		return filepath.Clean(modelFlag), nil
	}

	if modelsDir == "" {
		return "", fmt.Errorf("--model or --models-path is required unless %s is set", api.EnvModelsDir)
	}

	models, err := namfile.Discover(modelsDir)
	if err != nil {
		return "", err
	}
	switch len(models) {
	case 0:
		return "", fmt.Errorf("no %s models found in %s", namfile.Ext, modelsDir)
	case 1:
		_, _ = fmt.Fprintf(stderr, "nam: using model %s\n", models[0])
		return models[0], nil
	default:
		if !stdinIsTTY() {
			return "", fmt.Errorf(
				"multiple models found in %s but stdin is not interactive; set --model",
				modelsDir,
			)
		}
		return selectModelInteractively(modelsDir, models, stdin, stderr)
	}
}

func selectModelInteractively(modelsDir string, models []string, stdin io.Reader, stderr io.Writer) (string, error) {
	if len(models) == 0 {
		return "", fmt.Errorf("no models available in %s", modelsDir)
	}

	_, _ = fmt.Fprintf(stderr, "nam: select a model from %s\n", modelsDir)
	for i, m := range models {
		_, _ = fmt.Fprintf(stderr, "%d. %s\n", i+1, modelDisplayName(modelsDir, m))
	}

	reader := bufio.NewReader(stdin)
	for {
		_, _ = fmt.Fprintf(stderr, "nam: enter selection [1-%d]: ", len(models))
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			if errors.Is(err, io.EOF) {
				return "", errors.New("no selection provided on stdin; set --model")
			}
			continue
		}

		idx, convErr := strconv.Atoi(line)
		if convErr != nil || idx < 1 || idx > len(models) {
			_, _ = fmt.Fprintf(stderr, "nam: invalid selection %q\n", line)
			if errors.Is(err, io.EOF) {
				return "", errors.New("invalid selection provided on stdin; set --model")
			}
			continue
		}
		return models[idx-1], nil
	}
}

func modelDisplayName(modelsDir, modelPath string) string {
	rel, err := filepath.Rel(modelsDir, modelPath)
	if err != nil || rel == "." {
		return filepath.Base(modelPath)
	}
	return rel
}

// defaultOutputPath puts the rendered file next to the input:
// "di.wav" becomes "di_nam.wav".
func defaultOutputPath(input string) string {
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + "_nam.wav"
}

func isTTY() bool {
	st, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (st.Mode() & os.ModeCharDevice) != 0
}
