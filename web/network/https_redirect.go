// Package network wraps the server listener so plain HTTP requests arriving on the TLS
// port are answered with a redirect to https.
package network

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"
)

// recordTypeHandshake is the first byte of every TLS ClientHello.
const recordTypeHandshake = 0x16

// HTTPSRedirectListener hands out connections that redirect plain HTTP clients.
type HTTPSRedirectListener struct {
	net.Listener
}

// NewHTTPSRedirectListener wraps listener. Put it below tls.NewListener.
func NewHTTPSRedirectListener(listener net.Listener) net.Listener {
	return &HTTPSRedirectListener{Listener: listener}
}

func (l *HTTPSRedirectListener) Accept() (net.Conn, error) {
	conn, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}
	return &redirectConn{Conn: conn, reader: bufio.NewReader(conn)}, nil
}

// redirectConn looks at the first byte sent by the client. TLS traffic passes through
// untouched; anything else is parsed as an HTTP request and answered with 307.
type redirectConn struct {
	net.Conn

	reader *bufio.Reader
	once   sync.Once
	err    error
}

func (c *redirectConn) Read(buf []byte) (int, error) {
	c.once.Do(c.sniff)
	if c.err != nil {
		return 0, c.err
	}
	return c.reader.Read(buf)
}

func (c *redirectConn) sniff() {
	first, err := c.reader.Peek(1)
	if err != nil {
		c.err = err
		return
	}
	if first[0] == recordTypeHandshake {
		return
	}

	_ = c.Conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	request, err := http.ReadRequest(c.reader)
	if err != nil {
		c.err = err
		_ = c.Conn.Close()
		return
	}
	resp := http.Response{
		StatusCode: http.StatusTemporaryRedirect,
		ProtoMajor: 1,
		ProtoMinor: 1,
		Header:     http.Header{},
		Close:      true,
	}
	resp.Header.Set("Location", fmt.Sprintf("https://%s%s", request.Host, request.RequestURI))
	_ = resp.Write(c.Conn)
	_ = c.Conn.Close()
	c.err = net.ErrClosed
}
