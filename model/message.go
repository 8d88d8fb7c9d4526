package model

/*

Message is a single direct message under `messages/{conversationId}/{id}`.

The sender's public fields are denormalized into the record at write time, so
a later profile edit does not retroactively change how historic messages
render. This is the one place the system deliberately does NOT live-join.

Id: store key (push id)
Sender: sender snapshot frozen at send time
Text: message body
Timestamp: server-assigned epoch millis; message lists sort ascending by it
*/
type Message struct {
	Id        string        `json:"-" mapstructure:"-"`
	Sender    MessageSender `json:"sender"`
	Text      string        `json:"text"`
	Timestamp int64         `json:"timestamp"`
}

// MessageSender is the subset of User copied into each message at send time.
type MessageSender struct {
	Id       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}
