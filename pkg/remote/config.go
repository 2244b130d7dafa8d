package remote

import "time"

// Config holds per-session settings.
type Config struct {
	// ReadTimeout is the maximum time to wait for a message from the
	// client. Pongs count as messages.
	ReadTimeout time.Duration

	// WriteTimeout is the maximum time to wait when sending a frame.
	WriteTimeout time.Duration

	// HeartbeatInterval is the time between pings. Zero disables them.
	HeartbeatInterval time.Duration

	// MaxMessageSize is the maximum size of an incoming message.
	MaxMessageSize int64

	// FrameInterval is the render frame interval.
	FrameInterval time.Duration

	// QueueSize is the task buffer of the session loop.
	QueueSize int

	// ReadBufferSize and WriteBufferSize size the websocket buffers.
	ReadBufferSize  int
	WriteBufferSize int
}

// DefaultConfig returns the default session settings.
func DefaultConfig() *Config {
	return &Config{
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		HeartbeatInterval: 30 * time.Second,
		MaxMessageSize:    64 * 1024,
		FrameInterval:     time.Second / 60,
		ReadBufferSize:    4096,
		WriteBufferSize:   4096,
	}
}

// Clone returns a copy of the config.
func (c *Config) Clone() *Config {
	cc := *c
	return &cc
}
