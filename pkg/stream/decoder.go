package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
)

// maxLineSize bounds a single streamed record; deltas are small but
// code-interpreter output can carry whole files
const maxLineSize = 1024 * 1024

// Decode consumes a newline-delimited JSON stream and returns a channel of
// typed chunks. Each complete line is parsed as one record; a malformed record
// yields an error chunk without aborting the rest of the stream. The channel
// closes when the body is exhausted, a terminal chunk arrives, or ctx is
// cancelled. Decode takes ownership of body and closes it.
func Decode(ctx context.Context, body io.ReadCloser) <-chan Chunk {
	chunks := make(chan Chunk, 16)

	go func() {
		defer close(chunks)
		defer body.Close()

		scanner := bufio.NewScanner(body)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

		for scanner.Scan() {
			select {
			case <-ctx.Done():
				return
			default:
			}

			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}

			var chunk Chunk
			if err := json.Unmarshal(line, &chunk); err != nil {
				select {
				case chunks <- Chunk{
					Kind: KindError,
					Err:  fmt.Errorf("failed to parse stream record: %w", err),
				}:
				case <-ctx.Done():
					return
				}
				continue
			}

			select {
			case chunks <- chunk:
			case <-ctx.Done():
				return
			}

			if chunk.Terminal() {
				return
			}
		}

		if err := scanner.Err(); err != nil {
			// Guarded like every other send; an abandoned consumer must not
			// leave this goroutine blocked holding the body open
			select {
			case chunks <- Chunk{
				Kind: KindError,
				Err:  fmt.Errorf("stream reading error: %w", err),
			}:
			case <-ctx.Done():
			}
		}
	}()

	return chunks
}
