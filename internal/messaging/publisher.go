package messaging

// PlayerSubject is the fan-out subject for one player's events. Each
// process subscribes it for its locally connected players, so a
// broadcast reaches every room member no matter which process holds the
// connection.
func PlayerSubject(playerID string) string {
	return "player." + playerID
}

// NatsPublisher delivers router events to per-player NATS subjects.
type NatsPublisher struct {
	server *NatsServer
}

// NewNatsPublisher wraps a NatsServer for per-player event delivery.
func NewNatsPublisher(server *NatsServer) *NatsPublisher {
	return &NatsPublisher{server: server}
}

func (p *NatsPublisher) PublishToPlayer(playerID string, data []byte) error {
	return p.server.Publish(PlayerSubject(playerID), data)
}
