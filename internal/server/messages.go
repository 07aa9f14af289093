package server

import (
	"github.com/halloffame12/NexusChat/internal/types"
)

// ClientMessage is the tagged-variant envelope for everything a client may
// send. Exactly one request field is expected to be set; messages with no
// recognized variant are dropped.
type ClientMessage struct {
	Login    *Login    `json:"login,omitempty"`
	Publish  *Publish  `json:"publish,omitempty"`
	Edit     *Edit     `json:"edit,omitempty"`
	Read     *Read     `json:"read,omitempty"`
	Reaction *Reaction `json:"reaction,omitempty"`
	Typing   *Typing   `json:"typing,omitempty"`
	client   *Client
}

type Login struct {
	Username string       `json:"username"`
	Gender   types.Gender `json:"gender"`
	Age      int          `json:"age"`
}

type Publish struct {
	RecipientId string `json:"recipient_id"`
	Text        string `json:"text"`
}

type Edit struct {
	MessageId string `json:"message_id"`
	Text      string `json:"text"`
}

type Read struct {
	MessageId string `json:"message_id"`
}

type Reaction struct {
	MessageId string `json:"message_id"`
	Emoji     string `json:"emoji"`
}

type Typing struct {
	ChatId  string `json:"chat_id"`
	Started bool   `json:"started"`
}

// ServerMessage is the tagged-variant envelope for every event the server
// emits. Exactly one field is set per message.
type ServerMessage struct {
	LoginSuccess          *LoginSuccess  `json:"login_success,omitempty"`
	LoginError            *LoginError    `json:"login_error,omitempty"`
	UsersUpdate           *UsersUpdate   `json:"users_update,omitempty"`
	NewMessage            *types.Message `json:"new_message,omitempty"`
	MessageEdited         *types.Message `json:"message_edited,omitempty"`
	MessageReadUpdate     *types.Message `json:"message_read_update,omitempty"`
	MessageReactionUpdate *types.Message `json:"message_reaction_update,omitempty"`
	TypingStarted         *TypingEvent   `json:"typing_started,omitempty"`
	TypingStopped         *TypingEvent   `json:"typing_stopped,omitempty"`
}

// LoginSuccess is the authoritative state snapshot unicast to a client on
// successful login. PrivateMessages is keyed by the partner's user id and
// holds only conversations the new user participates in.
type LoginSuccess struct {
	User            types.User                  `json:"user"`
	Users           []types.User                `json:"users"`
	GlobalMessages  []*types.Message            `json:"global_messages"`
	PrivateMessages map[string][]*types.Message `json:"private_messages"`
}

type LoginError struct {
	Error string `json:"error"`
}

type UsersUpdate struct {
	Users []types.User `json:"users"`
}

type TypingEvent struct {
	ChatId   string `json:"chat_id"`
	Username string `json:"username"`
}

func NewLoginError(reason string) *ServerMessage {
	return &ServerMessage{LoginError: &LoginError{Error: reason}}
}

func NewUsersUpdate(users []types.User) *ServerMessage {
	return &ServerMessage{UsersUpdate: &UsersUpdate{Users: users}}
}
