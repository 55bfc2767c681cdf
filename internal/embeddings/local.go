package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Local runs an embedding command on this machine. The command receives the
// model path as its last argument and the text on stdin, and prints a JSON
// array of numbers.
type Local struct {
	command   []string
	modelPath string
}

// NewLocal checks that the model and command are available.
func NewLocal(command, modelPath string) (*Local, error) {
	if modelPath == "" {
		return nil, fmt.Errorf("%w: local model path is not set", ErrBackend)
	}
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("%w: local model not found at %s; download it or use --model mock|remote", ErrBackend, modelPath)
	}
	args := strings.Fields(command)
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: no local embedding command configured (--local-command)", ErrBackend)
	}
	return &Local{command: args, modelPath: modelPath}, nil
}

func (l *Local) Embed(ctx context.Context, text string) ([]float64, error) {
	args := append(append([]string{}, l.command[1:]...), l.modelPath)
	cmd := exec.CommandContext(ctx, l.command[0], args...)
	cmd.Stdin = strings.NewReader(text)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s", ErrTimeout, l.command[0])
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s: %v: %s", ErrBackend, l.command[0], err, strings.TrimSpace(stderr.String()))
	}

	var vec []float64
	if err := json.Unmarshal(stdout.Bytes(), &vec); err != nil {
		return nil, fmt.Errorf("%w: invalid output from %s: %v", ErrBackend, l.command[0], err)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: empty embedding from %s", ErrBackend, l.command[0])
	}
	return Normalize(vec), nil
}
