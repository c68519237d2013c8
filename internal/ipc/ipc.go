package ipc

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	log "log/slog"

	"sage/internal/config"
)

const DefaultSocketPath = "/tmp/sage.sock"

const (
	CmdTrigger  = "trigger"   // record from the microphone, explicit
	CmdAsk      = "ask"       // typed text, explicit
	CmdHear     = "hear"      // typed text, passive
	CmdFile     = "file"      // transcribe an audio file, explicit
	CmdSettings = "settings"  // apply a settings patch
	CmdClearKey = "clear-key" // forget the API key
	CmdStatus   = "status"
)

// ControlMessage is one request on the control socket.
type ControlMessage struct {
	Cmd      string        `json:"cmd"`
	Text     string        `json:"text,omitempty"`
	Path     string        `json:"path,omitempty"`
	Settings *config.Patch `json:"settings,omitempty"`
}

// ControlReply answers a ControlMessage. Kind carries the completion
// outcome for ask-like commands.
type ControlReply struct {
	OK   bool   `json:"ok"`
	Kind string `json:"kind,omitempty"`
	Text string `json:"text,omitempty"`
}

type Handler func(ControlMessage) ControlReply

// StartServer listens on path and serves each connection on its own
// goroutine. Closing the returned listener stops the accept loop.
func StartServer(path string, handler Handler) (net.Listener, error) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("remove stale socket: %w", err)
	}

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}

	go func() {
		for {
			conn, err := ln.Accept()
			if errors.Is(err, net.ErrClosed) {
				return
			}
			if err != nil {
				log.Warn("Accept failed", "err", err)
				continue
			}
			go handleConn(conn, handler)
		}
	}()

	return ln, nil
}

func handleConn(conn net.Conn, handler Handler) {
	defer conn.Close()

	var msg ControlMessage
	if err := json.NewDecoder(conn).Decode(&msg); err != nil {
		log.Warn("Bad control message", "err", err)
		_ = json.NewEncoder(conn).Encode(ControlReply{Text: "bad request: " + err.Error()})
		return
	}

	log.Debug("Control message", "cmd", msg.Cmd)

	if err := json.NewEncoder(conn).Encode(handler(msg)); err != nil {
		log.Warn("Failed to write control reply", "cmd", msg.Cmd, "err", err)
	}
}

// SendCommand sends msg and waits up to timeout for the reply. A zero
// timeout waits indefinitely.
func SendCommand(path string, msg ControlMessage, timeout time.Duration) (ControlReply, error) {
	conn, err := net.Dial("unix", path)
	if err != nil {
		return ControlReply{}, err
	}
	defer conn.Close()

	if timeout > 0 {
		if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
			return ControlReply{}, err
		}
	}

	if err := json.NewEncoder(conn).Encode(msg); err != nil {
		return ControlReply{}, fmt.Errorf("send: %w", err)
	}

	var reply ControlReply
	if err := json.NewDecoder(conn).Decode(&reply); err != nil {
		return ControlReply{}, fmt.Errorf("read reply: %w", err)
	}
	return reply, nil
}
