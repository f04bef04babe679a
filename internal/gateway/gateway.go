package gateway

// Gateway is a communication front end for the assistant (Slack today;
// the interface keeps room for others).
type Gateway interface {
	// Start begins serving platform events; blocks until the server stops.
	Start() error
	// Stop gracefully shuts down the gateway
	Stop() error
}
