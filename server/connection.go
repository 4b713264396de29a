package server

import (
	"bufio"
	"errors"
	"io"
	"net"
	"strings"
	"time"

	"go.uber.org/zap"

	"blockwal/protocol"
)

/*
Timeouts protect the server from slow or stalled clients.
They are used as resource-guardrails, not client semantics.
*/
const (
	readTimeout  = time.Minute
	writeTimeout = time.Minute

	maxLineSize  = 4 * 1024 // 4KB
)

/*
handleConnection owns the full lifecycle of a single client connection.
It is responsible for:
- IO deadlines
- Framing (line-based reads)
- Protocol parsing
- Writing responses
*/
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReaderSize(conn, maxLineSize)
	remote := conn.RemoteAddr().String()

	for {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		buf, err := reader.ReadSlice('\n')
		if err != nil {

			// Line too large (memory protection)
			if errors.Is(err, bufio.ErrBufferFull) {
				s.logger.Warn("line too long", zap.String("remote", remote))
				return
			}

			// Client closed connection
			if errors.Is(err, io.EOF) {
				return
			}

			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				s.logger.Warn("read timeout", zap.String("remote", remote))
				return
			}

			s.logger.Error("read error", zap.String("remote", remote), zap.Error(err))
			return
		}

		line := strings.TrimSpace(string(buf))

		// Parse command according to protocol rules
		cmd, err := protocol.ParseLine(line)
		if err != nil {
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			writeLine(conn, "ERR "+err.Error())
			continue
		}

		// Execute against the query backend
		resp := s.executeCommand(cmd, s.backend)

		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := writeLine(conn, resp.String()); err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				s.logger.Warn("write timeout", zap.String("remote", remote))
				return
			}
			return
		}
	}
}

func writeLine(w io.Writer, line string) error {
	_, err := w.Write([]byte(line + "\n"))
	return err
}
