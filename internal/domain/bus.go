package domain

// OutboundBus queues messages for delivery to a destination network.
// Sends are fire-and-forget: a failed or dropped delivery is logged by
// the implementation and never surfaced back to the publisher.
type OutboundBus interface {
	Publish(msg OutboundMessage)
	OnOutbound(network string, handler func(OutboundMessage))
	Close()
}
