package executor

import (
	"bufio"
	"io"
	"os/exec"
)

// runShellStreaming spawns command under the platform shell (sh -c) and
// streams its combined stdout+stderr line by line to onLine as they
// arrive, prefixing happens at the caller. Grounded on the teacher's
// internalexec.RunStreaming, adapted here for line-granularity streaming
// instead of whole-buffer capture (§4.5 step 2).
func runShellStreaming(command string, onLine func(string)) error {
	cmd := exec.Command("sh", "-c", command)

	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	done := make(chan struct{})
	go func() {
		defer close(done)
		scanner := bufio.NewScanner(pr)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			onLine(scanner.Text())
		}
	}()

	runErr := cmd.Run()
	pw.Close()
	<-done

	return runErr
}
