package protocol

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
)

var ErrMessageTooLarge = errors.New("message too large")

// DefaultSocketPath is where the daemon listens unless configured otherwise.
const DefaultSocketPath = "/run/zingd.sock"

// Send delivers one command to the daemon listening on socketPath. Delivery
// is fire-and-forget: the daemon never answers, so a nil error only means the
// bytes were written.
func Send(ctx context.Context, socketPath string, cmd Command) error {
	msg, err := Encode(cmd)
	if err != nil {
		return err
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return fmt.Errorf("connect to daemon: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetWriteDeadline(deadline); err != nil {
			return fmt.Errorf("set write deadline: %w", err)
		}
	}
	if _, err := conn.Write(msg); err != nil {
		return fmt.Errorf("write command: %w", err)
	}
	return nil
}

// ReadCommand reads r to EOF and decodes the single command it carries.
// Messages longer than maxBytes are rejected without being decoded.
func ReadCommand(r io.Reader, maxBytes int64) (Command, error) {
	b, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return Command{}, fmt.Errorf("read command: %w", err)
	}
	if int64(len(b)) > maxBytes {
		return Command{}, fmt.Errorf("%w: more than %d bytes", ErrMessageTooLarge, maxBytes)
	}
	return Decode(b)
}
