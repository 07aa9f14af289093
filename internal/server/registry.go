package server

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/halloffame12/NexusChat/internal/types"
)

// ErrUsernameTaken is returned when a login collides case-insensitively
// with a currently registered username.
var ErrUsernameTaken = errors.New("username is already taken")

// Registry tracks the currently connected users and the binding between a
// user and their live connection. Records exist only while the connection
// does, so a name freed by a disconnect may be registered again.
type Registry struct {
	mu       sync.RWMutex
	users    map[string]types.User // user id -> record
	clients  map[string]*Client    // user id -> connection
	byClient map[*Client]string    // connection -> user id
}

func NewRegistry() *Registry {
	return &Registry{
		users:    make(map[string]types.User),
		clients:  make(map[string]*Client),
		byClient: make(map[*Client]string),
	}
}

// Register allocates a fresh user record bound to c. The only server-side
// validation is username uniqueness among registered users.
func (reg *Registry) Register(username string, gender types.Gender, age int, c *Client) (types.User, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	for _, u := range reg.users {
		if strings.EqualFold(u.Username, username) {
			return types.User{}, ErrUsernameTaken
		}
	}

	user := types.User{
		// The id is derived from the folded username so a user who logs
		// back in under the same name addresses the same private
		// sequences as before.
		Id:       uuid.NewSHA1(uuid.NameSpaceOID, []byte(strings.ToLower(username))).String(),
		Username: username,
		Gender:   gender,
		Age:      age,
		IsOnline: true,
	}

	reg.users[user.Id] = user
	reg.clients[user.Id] = c
	reg.byClient[c] = user.Id

	return user, nil
}

// Deregister removes the user bound to c. It is a no-op when c never
// logged in or was already removed.
func (reg *Registry) Deregister(c *Client) (types.User, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	id, ok := reg.byClient[c]
	if !ok {
		return types.User{}, false
	}

	user := reg.users[id]
	delete(reg.users, id)
	delete(reg.clients, id)
	delete(reg.byClient, c)

	return user, true
}

func (reg *Registry) Find(userId string) (types.User, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	u, ok := reg.users[userId]
	return u, ok
}

func (reg *Registry) FindByClient(c *Client) (types.User, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	id, ok := reg.byClient[c]
	if !ok {
		return types.User{}, false
	}

	return reg.users[id], true
}

// ClientFor returns the live connection of a registered user.
func (reg *Registry) ClientFor(userId string) (*Client, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	c, ok := reg.clients[userId]
	return c, ok
}

// Clients returns the connections of all registered users.
func (reg *Registry) Clients() []*Client {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	clients := make([]*Client, 0, len(reg.clients))
	for _, c := range reg.clients {
		clients = append(clients, c)
	}

	return clients
}

// Snapshot returns all registered users ordered by username.
func (reg *Registry) Snapshot() []types.User {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	users := make([]types.User, 0, len(reg.users))
	for _, u := range reg.users {
		users = append(users, u)
	}

	sort.Slice(users, func(i, j int) bool {
		return users[i].Username < users[j].Username
	})

	return users
}
