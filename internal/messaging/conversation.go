package messaging

import (
	"sort"
	"strings"
	"time"
)

// idSeparator joins the pair. User ids (uuids and Google subjects) never
// contain it, and ids that do are refused by checkPair.
const idSeparator = "_"

// ConversationID derives the id of the thread between two users. Both
// argument orders produce the same id.
func ConversationID(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return strings.Join(pair, idSeparator)
}

// checkPair rejects pairs whose conversation id would be ambiguous
func checkPair(a, b string) error {
	if a == "" || b == "" || strings.Contains(a, idSeparator) || strings.Contains(b, idSeparator) {
		return ErrInvalidUserID
	}
	if a == b {
		return ErrSelfMessage
	}
	return nil
}

func newConversation(a, b string) *Conversation {
	pair := []string{a, b}
	sort.Strings(pair)
	return &Conversation{
		ID:           ConversationID(a, b),
		Participants: [2]string{pair[0], pair[1]},
		UnreadBy:     []string{},
	}
}

// NewPlaceholder returns an unpersisted conversation for a pair that has
// not exchanged any message yet.
func NewPlaceholder(viewer, other string) *Conversation {
	c := newConversation(viewer, other)
	c.Placeholder = true
	return c
}

func (c *Conversation) HasParticipant(userID string) bool {
	return c.Participants[0] == userID || c.Participants[1] == userID
}

// Other returns the participant that is not userID
func (c *Conversation) Other(userID string) string {
	if c.Participants[0] == userID {
		return c.Participants[1]
	}
	return c.Participants[0]
}

// MarkSent records a new message from senderID. The recipient joins the
// unread set; the sender's own unread flag is left untouched.
func (c *Conversation) MarkSent(senderID, text string, at time.Time) {
	c.LastMessage = text
	c.LastMessageAt = &at
	c.LastSenderID = senderID
	c.Placeholder = false

	recipient := c.Other(senderID)
	if !c.UnreadFor(recipient) {
		c.UnreadBy = append(c.UnreadBy, recipient)
	}
}

// MarkOpened removes only the viewer from the unread set
func (c *Conversation) MarkOpened(viewerID string) {
	kept := c.UnreadBy[:0]
	for _, id := range c.UnreadBy {
		if id != viewerID {
			kept = append(kept, id)
		}
	}
	c.UnreadBy = kept
}

func (c *Conversation) UnreadFor(userID string) bool {
	for _, id := range c.UnreadBy {
		if id == userID {
			return true
		}
	}
	return false
}

// SeenBy reports whether the other participant has opened the thread
// since senderID last wrote.
func (c *Conversation) SeenBy(senderID string) bool {
	return !c.UnreadFor(c.Other(senderID))
}

// View annotates the conversation for viewer
func (c *Conversation) View(viewer string, other Peer) *ConversationView {
	v := &ConversationView{
		Conversation: c,
		Other:        other,
		HasUnread:    c.UnreadFor(viewer),
	}
	if c.LastSenderID == viewer && c.SeenBy(viewer) {
		v.Status = SeenLabel
	}
	return v
}

func (c *Conversation) clone() *Conversation {
	cp := *c
	cp.UnreadBy = append([]string{}, c.UnreadBy...)
	if c.LastMessageAt != nil {
		at := *c.LastMessageAt
		cp.LastMessageAt = &at
	}
	return &cp
}
