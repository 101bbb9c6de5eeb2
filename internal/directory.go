package internal

// DirectoryPublisher pushes the online-user directory to the admin group.
// Every publish is a full snapshot, never a delta, so admin-side state is
// always "replace, don't merge".
type DirectoryPublisher struct {
	registry *Registry
	fanout   *Fanout
}

func NewDirectoryPublisher(registry *Registry, fanout *Fanout) *DirectoryPublisher {
	return &DirectoryPublisher{registry: registry, fanout: fanout}
}

// Publish sends the current directory to every admin connection.
func (publisher *DirectoryPublisher) Publish() {
	publisher.fanout.Deliver(AdminScope(), EventOnlineUsers, publisher.registry.ActiveUsers(), NoExclude)
}

// PublishTo sends the current directory to one sink, so a newly joined admin
// sees presence immediately instead of waiting for the next membership change.
func (publisher *DirectoryPublisher) PublishTo(sink Sink) {
	publisher.fanout.Unicast(sink, EventOnlineUsers, publisher.registry.ActiveUsers())
}
