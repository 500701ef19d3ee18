package domain

import "context"

// Delivery is a rendered export ready to leave the process.
type Delivery struct {
	Payload     []byte
	Filename    string
	ContentType string
	// Summary is a short human readable description used by messaging sinks.
	Summary string
}

// Sink is an export channel: local file, messaging app or cloud bucket.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, d Delivery) (location string, err error)
	// Destination is the page a user can open to attach a file manually.
	Destination() string
}
