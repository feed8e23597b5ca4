package commands

import (
	"context"
	"fmt"
	"io"
	"os"
)

// RunSend posts the envelope in path as action and writes the raw
// response. A fault response is written before its error is returned.
func RunSend(ctx context.Context, d Doer, action, path string, w io.Writer) error {
	env, err := readEnvelope(path)
	if err != nil {
		return err
	}
	resp, err := d.Do(ctx, action, env)
	if len(resp) > 0 {
		w.Write(resp)
		fmt.Fprintln(w)
	}
	return err
}

// readEnvelope reads path, or stdin when path is "-".
func readEnvelope(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read envelope: %w", err)
	}
	return data, nil
}
