package httpparser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/currentframework/bricks/internal/brickserr"
)

// readFixedLengthBody consumes exactly length bytes from st (which must
// already hold any body bytes read along with the headers) and delivers
// them as one chunk.
func readFixedLengthBody(st *parseState, length int, deliver func([]byte)) error {
	body, err := consumeN(st, length)
	if err != nil {
		return err
	}
	deliver(body)
	return nil
}

// readChunkedBody decodes a Transfer-Encoding: chunked body: repeatedly a
// hex length on its own CRLF-terminated line, then that many bytes, then a
// trailing CRLF, stopping at a zero-length chunk followed by CRLF.
func readChunkedBody(st *parseState, deliver func([]byte)) error {
	for {
		line, err := consumeLine(st)
		if err != nil {
			return err
		}

		sizeToken := strings.TrimSpace(line)
		if i := strings.IndexByte(sizeToken, ';'); i >= 0 {
			sizeToken = sizeToken[:i] // chunk extensions are ignored
		}
		size, err := strconv.ParseInt(sizeToken, 16, 64)
		if err != nil {
			return fmt.Errorf("%w: %q", brickserr.ErrChunkSizeNotAValidHexValue, line)
		}
		if size == 0 {
			// Consume the trailing CRLF after the zero chunk.
			_, err := consumeLine(st)
			return err
		}

		chunk, err := consumeN(st, int(size))
		if err != nil {
			return err
		}
		deliver(chunk)

		// Consume the CRLF following the chunk body.
		if _, err := consumeLine(st); err != nil {
			return err
		}
	}
}

// consumeN removes and returns exactly n bytes from the front of st's
// pending buffer, pulling further reads from the connection via st.fill as
// needed. The buffer is compacted (the consumed prefix dropped) each time
// it is drained, the Go-slice equivalent of the memmove the original
// implementation performs when a chunk would otherwise straddle the
// buffer's tail.
func consumeN(st *parseState, n int) ([]byte, error) {
	for len(st.buf) < n {
		if err := st.fill(); err != nil {
			return nil, err
		}
	}
	out := make([]byte, n)
	copy(out, st.buf[:n])
	st.compact(n)
	return out, nil
}

// consumeLine removes and returns the next CRLF-terminated line (without
// the CRLF) from the front of st's pending buffer.
func consumeLine(st *parseState) (string, error) {
	for {
		if idx := indexCRLF(st.buf); idx >= 0 {
			line := string(st.buf[:idx])
			st.compact(idx + 2)
			return line, nil
		}
		if err := st.fill(); err != nil {
			return "", err
		}
	}
}

func indexCRLF(b []byte) int {
	for i := 0; i+2 <= len(b); i++ {
		if b[i] == '\r' && b[i+1] == '\n' {
			return i
		}
	}
	return -1
}
