package server

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/halloffame12/NexusChat/internal/stats"
	"github.com/halloffame12/NexusChat/internal/types"
)

type stopReq struct {
	done chan struct{}
}

// ChatServer owns all mutable chat state. Every request a client decodes
// is forwarded over clientMsgChan and applied by the single Run goroutine,
// so mutations of the registry, the store, and the typing tracker are
// serialized; fan-out never blocks on a slow connection because delivery
// goes through each client's buffered send channel.
type ChatServer struct {
	log            *log.Logger
	stats          stats.StatsProvider
	registry       *Registry
	store          *MessageStore
	typing         *TypingTracker
	clients        map[*Client]struct{}
	clientsLock    sync.Mutex
	RegisterChan   chan *Client
	deRegisterChan chan *Client
	clientMsgChan  chan *ClientMessage
	stop           chan stopReq
}

func NewChatServer(logger *log.Logger, su stats.StatsProvider) (*ChatServer, error) {
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	cs := &ChatServer{
		log:            logger,
		stats:          su,
		registry:       NewRegistry(),
		store:          NewMessageStore(),
		typing:         NewTypingTracker(),
		clients:        make(map[*Client]struct{}),
		RegisterChan:   make(chan *Client),
		deRegisterChan: make(chan *Client),
		clientMsgChan:  make(chan *ClientMessage, 256),
		stop:           make(chan stopReq),
	}

	for _, name := range []string{
		stats.MetricConnections,
		stats.MetricOnlineUsers,
		stats.MetricMessagesCreated,
		stats.MetricMessagesEdited,
		stats.MetricReactionsToggled,
	} {
		cs.stats.RegisterMetric(name)
	}

	return cs, nil
}

func (cs *ChatServer) Run() {
	for {
		select {
		case client := <-cs.RegisterChan:
			cs.addClient(client)
			cs.stats.Incr(stats.MetricConnections)
		case client := <-cs.deRegisterChan:
			cs.removeClient(client)
			cs.stats.Decr(stats.MetricConnections)
			cs.handleDisconnect(client)
		case msg := <-cs.clientMsgChan:
			cs.dispatch(msg)
		case req := <-cs.stop:
			cs.log.Println("stopping clients")
			cs.clientsLock.Lock()
			for c := range cs.clients {
				c.stopClient()
			}
			cs.clientsLock.Unlock()

			close(req.done)
			return
		}
	}
}

// RegisterClient hands a freshly upgraded, still unauthenticated
// connection to the run loop.
func (cs *ChatServer) RegisterClient(c *Client) {
	cs.RegisterChan <- c
}

func (cs *ChatServer) Shutdown(ctx context.Context) error {
	req := stopReq{done: make(chan struct{})}

	select {
	case cs.stop <- req:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-req.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (cs *ChatServer) addClient(c *Client) {
	cs.clientsLock.Lock()
	defer cs.clientsLock.Unlock()
	cs.clients[c] = struct{}{}
}

func (cs *ChatServer) removeClient(c *Client) {
	cs.clientsLock.Lock()
	defer cs.clientsLock.Unlock()
	delete(cs.clients, c)
}

// dispatch validates a request against the session state machine and
// applies it. Before login only the login variant is honored; anything
// else is dropped without an error on the wire.
func (cs *ChatServer) dispatch(msg *ClientMessage) {
	if msg.client == nil {
		return
	}

	if msg.Login != nil {
		cs.handleLogin(msg.client, msg.Login)
		return
	}

	user, ok := cs.registry.FindByClient(msg.client)
	if !ok {
		cs.log.Println("dropping request from unauthenticated connection")
		return
	}

	switch {
	case msg.Publish != nil:
		cs.handlePublish(user, msg.Publish)
	case msg.Edit != nil:
		cs.handleEdit(user, msg.Edit)
	case msg.Read != nil:
		cs.handleRead(user, msg.Read)
	case msg.Reaction != nil:
		cs.handleReaction(user, msg.Reaction)
	case msg.Typing != nil:
		cs.handleTyping(user, msg.Typing)
	default:
		cs.log.Println("dropping request with no recognized variant")
	}
}

func (cs *ChatServer) handleLogin(c *Client, login *Login) {
	if _, ok := cs.registry.FindByClient(c); ok {
		// one identity per connection lifetime
		cs.log.Println("dropping login from authenticated connection")
		return
	}

	user, err := cs.registry.Register(login.Username, login.Gender, login.Age, c)
	if err != nil {
		c.queueMessage(NewLoginError(err.Error()))
		return
	}

	cs.log.Printf("registered user %q", user.Username)
	cs.stats.Incr(stats.MetricOnlineUsers)

	c.queueMessage(&ServerMessage{
		LoginSuccess: &LoginSuccess{
			User:            user,
			Users:           cs.registry.Snapshot(),
			GlobalMessages:  cs.store.GlobalSnapshot(),
			PrivateMessages: cs.store.PrivateSnapshotFor(user.Id),
		},
	})

	cs.broadcastUsers()
}

func (cs *ChatServer) handleDisconnect(c *Client) {
	user, ok := cs.registry.Deregister(c)
	if !ok {
		// never logged in
		return
	}

	cs.log.Printf("deregistered user %q", user.Username)
	cs.stats.Decr(stats.MetricOnlineUsers)

	for _, chatId := range cs.typing.StopAll(user.Username) {
		cs.relayTyping(chatId, user, &ServerMessage{
			TypingStopped: &TypingEvent{ChatId: chatId, Username: user.Username},
		})
	}

	cs.broadcastUsers()
}

func (cs *ChatServer) handlePublish(user types.User, pub *Publish) {
	msg := cs.store.CreateMessage(user.Id, pub.RecipientId, pub.Text, user.Username)
	cs.stats.Incr(stats.MetricMessagesCreated)

	// sending implies the sender stopped typing in that channel
	chatId := chatIdFor(user.Id, pub.RecipientId)
	if cs.typing.Stop(chatId, user.Username) {
		cs.relayTyping(chatId, user, &ServerMessage{
			TypingStopped: &TypingEvent{ChatId: chatId, Username: user.Username},
		})
	}

	cs.routeToChannel(msg, &ServerMessage{NewMessage: msg})
}

func (cs *ChatServer) handleEdit(user types.User, edit *Edit) {
	msg, err := cs.store.EditText(edit.MessageId, edit.Text, user.Id)
	if err != nil {
		// silent on the wire for unknown ids and non-owners
		cs.log.Printf("edit %q by %q rejected: %v", edit.MessageId, user.Username, err)
		return
	}

	cs.stats.Incr(stats.MetricMessagesEdited)
	cs.routeToChannel(msg, &ServerMessage{MessageEdited: msg})
}

func (cs *ChatServer) handleRead(user types.User, read *Read) {
	msg, changed := cs.store.MarkRead(read.MessageId, user.Id)
	if !changed {
		return
	}

	// read receipts go to the original sender only
	if sender, ok := cs.registry.ClientFor(msg.SenderId); ok {
		sender.queueMessage(&ServerMessage{MessageReadUpdate: msg})
	}
}

func (cs *ChatServer) handleReaction(user types.User, reaction *Reaction) {
	msg, ok := cs.store.ToggleReaction(reaction.MessageId, reaction.Emoji, user.Id)
	if !ok {
		return
	}

	cs.stats.Incr(stats.MetricReactionsToggled)
	cs.routeToChannel(msg, &ServerMessage{MessageReactionUpdate: msg})
}

func (cs *ChatServer) handleTyping(user types.User, typing *Typing) {
	var changed bool
	ev := &TypingEvent{ChatId: typing.ChatId, Username: user.Username}

	var msg *ServerMessage
	if typing.Started {
		changed = cs.typing.Start(typing.ChatId, user.Username)
		msg = &ServerMessage{TypingStarted: ev}
	} else {
		changed = cs.typing.Stop(typing.ChatId, user.Username)
		msg = &ServerMessage{TypingStopped: ev}
	}

	// redundant events are tolerated but not re-relayed
	if changed {
		cs.relayTyping(typing.ChatId, user, msg)
	}
}

// routeToChannel delivers an event about msg to exactly the participant
// set of its channel: everyone registered for the global channel, only
// the two participants' connections for a private one.
func (cs *ChatServer) routeToChannel(msg *types.Message, ev *ServerMessage) {
	if msg.RecipientId == types.GlobalChannelId {
		cs.broadcastRegistered(ev)
		return
	}

	if c, ok := cs.registry.ClientFor(msg.SenderId); ok {
		c.queueMessage(ev)
	}

	if msg.RecipientId != msg.SenderId {
		if c, ok := cs.registry.ClientFor(msg.RecipientId); ok {
			c.queueMessage(ev)
		}
	}
}

// relayTyping delivers a typing event to the channel's other
// participants, never back to the originator.
func (cs *ChatServer) relayTyping(chatId string, from types.User, ev *ServerMessage) {
	if chatId == types.GlobalChannelId {
		origin, _ := cs.registry.ClientFor(from.Id)
		for _, c := range cs.registry.Clients() {
			if c == origin {
				continue
			}

			c.queueMessage(ev)
		}
		return
	}

	partner, ok := channelPartner(chatId, from.Id)
	if !ok {
		cs.log.Printf("dropping typing event for malformed chat id %q", chatId)
		return
	}

	if c, ok := cs.registry.ClientFor(partner); ok && partner != from.Id {
		c.queueMessage(ev)
	}
}

// broadcastRegistered queues an event on every registered connection.
// Unauthenticated connections receive nothing.
func (cs *ChatServer) broadcastRegistered(ev *ServerMessage) {
	for _, c := range cs.registry.Clients() {
		c.queueMessage(ev)
	}
}

func (cs *ChatServer) broadcastUsers() {
	cs.broadcastRegistered(NewUsersUpdate(cs.registry.Snapshot()))
}

// chatIdFor names the typing channel a message send belongs to.
func chatIdFor(senderId, recipientId string) string {
	if recipientId == types.GlobalChannelId {
		return types.GlobalChannelId
	}

	return ChannelKey(senderId, recipientId)
}
