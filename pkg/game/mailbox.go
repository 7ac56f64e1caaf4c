package game

import "github.com/cfoust/tiltrun/pkg/gesture"

// Mailbox holds at most one pending jump. Offers made while a jump is pending
// are dropped.
type Mailbox struct {
	slot chan gesture.JumpCommand
}

func NewMailbox() *Mailbox {
	return &Mailbox{
		slot: make(chan gesture.JumpCommand, 1),
	}
}

func (m *Mailbox) Offer(command gesture.JumpCommand) bool {
	select {
	case m.slot <- command:
		return true
	default:
		return false
	}
}

func (m *Mailbox) Take() (gesture.JumpCommand, bool) {
	select {
	case command := <-m.slot:
		return command, true
	default:
		return gesture.JumpCommand{}, false
	}
}

func (m *Mailbox) Clear() {
	m.Take()
}
