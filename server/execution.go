package server

import (
	"encoding/hex"
	"strconv"
	"strings"

	"blockwal/protocol"
	"blockwal/wal"
)

/*
executeCommand maps a validated protocol command to QueryBackend calls.
Note: It contains no networking logic and no concurrency concerns.
*/
func (s *Server) executeCommand(cmd protocol.Command, backend QueryBackend) Response {
	switch cmd.Name {
	case protocol.CommandLookup:
		receiverID := cmd.Args[0]
		timestampMillis, _ := strconv.ParseInt(cmd.Args[1], 10, 64)

		segs, ok := backend.Lookup(receiverID, timestampMillis)
		if !ok {
			return Response{Kind: ResponseNil}
		}
		return Response{Kind: ResponseValue, Value: formatSegments(segs)}

	case protocol.CommandRead:
		path := cmd.Args[0]
		offset, _ := strconv.ParseInt(cmd.Args[1], 10, 64)
		length, _ := strconv.ParseInt(cmd.Args[2], 10, 32)

		data, err := backend.ReadSegment(wal.FileSegment{Path: path, Offset: offset, Length: int32(length)})
		if err != nil {
			return Response{Kind: ResponseServerError}
		}
		return Response{Kind: ResponseValue, Value: hex.EncodeToString(data)}

	default:
		return Response{Kind: ResponseServerError}
	}
}

// formatSegments renders the one or more FileSegments recorded for a
// block as a single response line, one "path offset length" group per
// segment, in write order, separated by ";". A block written as several
// source records resolves to several segments here, not one.
func formatSegments(segs []wal.FileSegment) string {
	groups := make([]string, len(segs))
	for i, seg := range segs {
		groups[i] = seg.Path + " " + strconv.FormatInt(seg.Offset, 10) + " " + strconv.Itoa(int(seg.Length))
	}
	return strings.Join(groups, ";")
}
