package server

import (
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/halloffame12/NexusChat/internal/types"
	"github.com/teris-io/shortid"
)

var (
	// ErrMessageNotFound is returned for mutations against an unknown
	// message id. Callers relay nothing to the client in this case.
	ErrMessageNotFound = errors.New("message not found")
	// ErrNotOwner is returned when a requester edits a message they did
	// not send. The wire protocol stays silent on it.
	ErrNotOwner = errors.New("requester is not the message owner")
)

// MessageStore owns every message for the lifetime of the process: the
// single global sequence plus one sequence per private pair, created
// lazily. Nothing survives a restart.
type MessageStore struct {
	mu      sync.RWMutex
	sid     *shortid.Shortid
	global  []*types.Message
	private map[string][]*types.Message
}

func NewMessageStore() *MessageStore {
	return &MessageStore{
		sid:     shortid.MustNew(1, shortid.DefaultABC, uint64(time.Now().UnixNano())),
		private: make(map[string][]*types.Message),
	}
}

// ChannelKey derives the canonical key of the private channel between two
// users. The result does not depend on argument order.
func ChannelKey(idA, idB string) string {
	if idA > idB {
		idA, idB = idB, idA
	}

	return idA + ":" + idB
}

// CreateMessage allocates an id and timestamp for a new message and
// appends it to the channel named by recipientId.
func (ms *MessageStore) CreateMessage(senderId, recipientId, text, senderUsername string) *types.Message {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	msg := &types.Message{
		Id:             ms.sid.MustGenerate(),
		SenderId:       senderId,
		RecipientId:    recipientId,
		Text:           text,
		Timestamp:      time.Now().UnixMilli(),
		SenderUsername: senderUsername,
		ReadBy:         []string{},
		Reactions:      make(map[string][]string),
	}

	if recipientId == types.GlobalChannelId {
		ms.global = append(ms.global, msg)
	} else {
		key := ChannelKey(senderId, recipientId)
		ms.private[key] = append(ms.private[key], msg)
	}

	return cloneMessage(msg)
}

// FindById scans the global sequence and then every private sequence and
// returns a copy of the first match along with its channel key.
func (ms *MessageStore) FindById(messageId string) (*types.Message, string, bool) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	msg, key, ok := ms.locate(messageId)
	if !ok {
		return nil, "", false
	}

	return cloneMessage(msg), key, true
}

// locate returns the live record. Callers must hold ms.mu.
func (ms *MessageStore) locate(messageId string) (*types.Message, string, bool) {
	for _, m := range ms.global {
		if m.Id == messageId {
			return m, types.GlobalChannelId, true
		}
	}

	for key, seq := range ms.private {
		for _, m := range seq {
			if m.Id == messageId {
				return m, key, true
			}
		}
	}

	return nil, "", false
}

// EditText replaces the text of a message and flags it edited. Only the
// original sender may edit; anyone else gets ErrNotOwner and the record
// is left untouched.
func (ms *MessageStore) EditText(messageId, newText, requesterId string) (*types.Message, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	msg, _, ok := ms.locate(messageId)
	if !ok {
		return nil, ErrMessageNotFound
	}

	if msg.SenderId != requesterId {
		return nil, ErrNotOwner
	}

	msg.Text = newText
	msg.IsEdited = true

	return cloneMessage(msg), nil
}

// MarkRead adds readerId to the message's read set. It reports false, and
// callers broadcast nothing, when the message is unknown, the reader is
// the sender, or the reader is already recorded. ReadBy only ever grows.
func (ms *MessageStore) MarkRead(messageId, readerId string) (*types.Message, bool) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	msg, _, ok := ms.locate(messageId)
	if !ok {
		return nil, false
	}

	if readerId == msg.SenderId || slices.Contains(msg.ReadBy, readerId) {
		return nil, false
	}

	msg.ReadBy = append(msg.ReadBy, readerId)

	return cloneMessage(msg), true
}

// ToggleReaction flips userId's membership in the emoji's reactor set:
// absent adds, present removes, and an emptied set deletes the emoji key.
// Applying it twice restores the prior state. Unlike MarkRead it reports
// true even when the toggle nets out to no visible reaction, so the
// update is always broadcast.
func (ms *MessageStore) ToggleReaction(messageId, emoji, userId string) (*types.Message, bool) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	msg, _, ok := ms.locate(messageId)
	if !ok {
		return nil, false
	}

	reactors := msg.Reactions[emoji]
	if i := slices.Index(reactors, userId); i >= 0 {
		reactors = slices.Delete(reactors, i, i+1)
		if len(reactors) == 0 {
			delete(msg.Reactions, emoji)
		} else {
			msg.Reactions[emoji] = reactors
		}
	} else {
		msg.Reactions[emoji] = append(reactors, userId)
	}

	return cloneMessage(msg), true
}

// GlobalSnapshot returns a copy of the global sequence in creation order.
func (ms *MessageStore) GlobalSnapshot() []*types.Message {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	return cloneSequence(ms.global)
}

// PrivateSnapshotFor returns the private conversations userId takes part
// in, keyed by the partner's user id. Sequences of other pairs are never
// included.
func (ms *MessageStore) PrivateSnapshotFor(userId string) map[string][]*types.Message {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	snapshot := make(map[string][]*types.Message)
	for key, seq := range ms.private {
		partner, ok := channelPartner(key, userId)
		if !ok {
			continue
		}

		snapshot[partner] = cloneSequence(seq)
	}

	return snapshot
}

// channelPartner extracts the other participant from a canonical channel
// key, reporting false when userId is not a participant.
func channelPartner(key, userId string) (string, bool) {
	idA, idB, ok := splitChannelKey(key)
	if !ok {
		return "", false
	}

	switch userId {
	case idA:
		return idB, true
	case idB:
		return idA, true
	default:
		return "", false
	}
}

func splitChannelKey(key string) (string, string, bool) {
	return strings.Cut(key, ":")
}

func cloneMessage(m *types.Message) *types.Message {
	c := *m
	c.ReadBy = slices.Clone(m.ReadBy)
	c.Reactions = make(map[string][]string, len(m.Reactions))
	for emoji, ids := range m.Reactions {
		c.Reactions[emoji] = slices.Clone(ids)
	}

	return &c
}

func cloneSequence(seq []*types.Message) []*types.Message {
	out := make([]*types.Message, len(seq))
	for i, m := range seq {
		out[i] = cloneMessage(m)
	}

	return out
}
