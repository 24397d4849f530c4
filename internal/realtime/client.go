package realtime

// Client is one live connection as seen by the realtime layer. UserID and
// Username are fixed at admission and never change for the connection's life.
type Client struct {
	ID       string
	UserID   int64
	Username string
	Events   chan *Event
}

// NewClient constructs a client with a buffered event channel. The transport
// drains Events; the dispatcher never blocks on a slow consumer.
func NewClient(id string, userID int64, username string) *Client {
	return &Client{
		ID:       id,
		UserID:   userID,
		Username: username,
		Events:   make(chan *Event, 32),
	}
}
