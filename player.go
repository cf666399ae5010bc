package zing

import (
	"context"
	"time"

	"github.com/zing-audio/zing/internal/config"
	"github.com/zing-audio/zing/internal/protocol"
)

type PlayerOption func(*playerConfig)

type playerConfig struct {
	socketPath    string
	chordDuration time.Duration
}

func defaultPlayerConfig() playerConfig {
	return playerConfig{socketPath: config.SocketPath(), chordDuration: DefaultChordDuration}
}

// WithSocket points the player at a daemon socket other than the default.
func WithSocket(path string) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.socketPath = path
	}
}

func WithChordDuration(d time.Duration) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.chordDuration = d
	}
}

// Player is a remote control for a zingd daemon. Every call opens a fresh
// connection; the daemon sends nothing back.
type Player struct {
	socketPath    string
	chordDuration time.Duration
}

func NewPlayer(opts ...PlayerOption) *Player {
	cfg := defaultPlayerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Player{socketPath: cfg.socketPath, chordDuration: cfg.chordDuration}
}

func (p *Player) SocketPath() string { return p.socketPath }

// PlayNotemap compiles text with the player's chord duration and starts it,
// replacing whatever the daemon is playing.
func (p *Player) PlayNotemap(ctx context.Context, text string) error {
	data, err := Compile(text, p.chordDuration)
	if err != nil {
		return err
	}
	return p.Play(ctx, data)
}

func (p *Player) Play(ctx context.Context, data PlayData) error {
	return Send(ctx, p.socketPath, protocol.Play(data))
}

func (p *Player) Stop(ctx context.Context) error {
	return Send(ctx, p.socketPath, protocol.Stop())
}

func (p *Player) Pause(ctx context.Context) error {
	return Send(ctx, p.socketPath, protocol.Pause())
}

func (p *Player) Resume(ctx context.Context) error {
	return Send(ctx, p.socketPath, protocol.Resume())
}
