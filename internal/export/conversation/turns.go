package conversation

// Turn pairs a user message with the assistant reply that follows it
type Turn struct {
	User string `json:"user"`
	AI   string `json:"ai"`
}

// Pair groups messages into turns. Each user message opens a turn; the next
// assistant message fills it. An assistant message with no open turn gets a
// turn of its own with an empty user side.
func Pair(messages []Message) []Turn {
	turns := make([]Turn, 0, (len(messages)+1)/2)
	open := false

	for _, m := range messages {
		switch m.Role {
		case RoleUser:
			turns = append(turns, Turn{User: m.Content})
			open = true
		case RoleAssistant:
			if open {
				turns[len(turns)-1].AI = m.Content
				open = false
				continue
			}
			turns = append(turns, Turn{AI: m.Content})
		}
	}

	return turns
}
