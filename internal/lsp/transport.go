package lsp

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
)

// ReadMessage reads one Content-Length framed message body. It returns
// io.EOF when the stream ends between messages.
func ReadMessage(r *bufio.Reader) ([]byte, error) {
	contentLen := -1
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			if err == io.EOF && line == "" && contentLen < 0 {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("lsp: read header: %w", err)
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		if i := strings.IndexByte(line, ':'); i >= 0 {
			key := strings.ToLower(strings.TrimSpace(line[:i]))
			val := strings.TrimSpace(line[i+1:])
			if key == "content-length" {
				n, err := strconv.Atoi(val)
				if err != nil || n < 0 {
					return nil, fmt.Errorf("lsp: bad Content-Length %q", val)
				}
				contentLen = n
			}
		}
	}
	if contentLen < 0 {
		return nil, fmt.Errorf("lsp: missing Content-Length")
	}
	buf := make([]byte, contentLen)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("lsp: read body: %w", err)
	}
	return buf, nil
}

// WriteMessage frames v as JSON with a Content-Length header.
func WriteMessage(w io.Writer, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("lsp: encode: %w", err)
	}
	var b bytes.Buffer
	fmt.Fprintf(&b, "Content-Length: %d\r\n\r\n", len(body))
	b.Write(body)
	_, err = w.Write(b.Bytes())
	return err
}

// conn serializes writes from the read loop and from analysis workers.
type conn struct {
	mu  sync.Mutex
	out io.Writer
}

func (c *conn) write(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return WriteMessage(c.out, v)
}

func (c *conn) reply(id json.RawMessage, result any, respErr *ResponseError) error {
	if respErr == nil && result == nil {
		result = json.RawMessage("null")
	}
	return c.write(Response{JSONRPC: "2.0", ID: id, Result: result, Error: respErr})
}

func (c *conn) notify(method string, params any) error {
	return c.write(Notification{JSONRPC: "2.0", Method: method, Params: params})
}
