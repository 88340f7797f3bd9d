package chunked

import (
	"bufio"
	"io"
	"strconv"
)

const maxChunk = 32 << 10

// Copy writes body to w in chunked transfer coding, one chunk per read,
// and terminates it with the last chunk. w is flushed after every chunk
// so a slow body is streamed as it arrives. Trailers are never written.
func Copy(w *bufio.Writer, body io.Reader) (written int64, err error) {
	buf := make([]byte, maxChunk)
	for {
		n, rerr := body.Read(buf)
		if n > 0 {
			w.WriteString(strconv.FormatInt(int64(n), 16))
			w.WriteString("\r\n")
			w.Write(buf[:n])
			if _, err = w.WriteString("\r\n"); err != nil {
				return written, err
			}
			written += int64(n)
			if err = w.Flush(); err != nil {
				return written, err
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return written, rerr
		}
	}
	_, err = w.WriteString("0\r\n\r\n")
	return written, err
}
