package server

import (
	"bufio"
	"context"
	"os/exec"
)

// tailFile follows the log file with one subordinate tail process and
// sends each new line on the channel. Cancelling the context kills the
// process; the channel is closed when following ends.
func tailFile(ctx context.Context, path string, lines chan<- string) error {
	defer close(lines)

	cmd := exec.CommandContext(ctx, "tail", "-n", "0", "-F", path)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return err
	}
	defer cmd.Wait()

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		select {
		case lines <- scanner.Text():
		case <-ctx.Done():
			return nil
		}
	}
	return scanner.Err()
}
