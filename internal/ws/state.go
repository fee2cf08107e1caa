package ws

import "sync"

// RoleInfo is the in-memory projection of a persisted role assignment,
// installed onto a session once its public key is known.
type RoleInfo struct {
	Role  string `json:"role"`
	Color string `json:"color,omitempty"`
}

// AppState aggregates every shared in-memory container the dispatch engine
// touches. Each container is guarded by its own mutex; code that must read
// or mutate more than one container in the same critical section acquires
// them in the fixed order users, known, statuses, roles, keys, voice to
// avoid deadlock. No I/O happens while any
// of these locks is held.
type AppState struct {
	usersMu sync.Mutex
	online  map[string]struct{}

	knownMu sync.Mutex
	known   map[string]struct{}

	statusMu sync.Mutex
	status   map[string]string

	rolesMu sync.Mutex
	roles   map[string]RoleInfo // keyed by user name

	keysMu sync.Mutex
	keys   map[string]string // user name -> base64 public key
}

func newAppState() *AppState {
	return &AppState{
		online: make(map[string]struct{}),
		known:  make(map[string]struct{}),
		status: make(map[string]string),
		roles:  make(map[string]RoleInfo),
		keys:   make(map[string]string),
	}
}

func (s *AppState) MarkOnline(user string) {
	s.usersMu.Lock()
	s.online[user] = struct{}{}
	s.usersMu.Unlock()

	s.knownMu.Lock()
	s.known[user] = struct{}{}
	s.knownMu.Unlock()
}

func (s *AppState) MarkOffline(user string) {
	s.usersMu.Lock()
	delete(s.online, user)
	s.usersMu.Unlock()
}

func (s *AppState) IsOnline(user string) bool {
	s.usersMu.Lock()
	defer s.usersMu.Unlock()
	_, ok := s.online[user]
	return ok
}

func (s *AppState) OnlineUsers() []string {
	s.usersMu.Lock()
	defer s.usersMu.Unlock()
	out := make([]string, 0, len(s.online))
	for u := range s.online {
		out = append(out, u)
	}
	return out
}

func (s *AppState) KnownUsers() []string {
	s.knownMu.Lock()
	defer s.knownMu.Unlock()
	out := make([]string, 0, len(s.known))
	for u := range s.known {
		out = append(out, u)
	}
	return out
}

func (s *AppState) SetStatus(user, status string) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	s.status[user] = status
}

func (s *AppState) Status(user string) string {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	return s.status[user]
}

func (s *AppState) AllStatuses() map[string]string {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	out := make(map[string]string, len(s.status))
	for u, st := range s.status {
		out[u] = st
	}
	return out
}

func (s *AppState) SetRole(user string, info RoleInfo) {
	s.rolesMu.Lock()
	defer s.rolesMu.Unlock()
	s.roles[user] = info
}

func (s *AppState) Role(user string) (RoleInfo, bool) {
	s.rolesMu.Lock()
	defer s.rolesMu.Unlock()
	info, ok := s.roles[user]
	return info, ok
}

func (s *AppState) AllRoles() map[string]RoleInfo {
	s.rolesMu.Lock()
	defer s.rolesMu.Unlock()
	out := make(map[string]RoleInfo, len(s.roles))
	for u, r := range s.roles {
		out[u] = r
	}
	return out
}

func (s *AppState) SetKey(user, key string) {
	s.keysMu.Lock()
	defer s.keysMu.Unlock()
	s.keys[user] = key
}

func (s *AppState) Key(user string) (string, bool) {
	s.keysMu.Lock()
	defer s.keysMu.Unlock()
	key, ok := s.keys[user]
	return key, ok
}

// UsersWithKey returns every known user whose recorded public key equals
// key, used by the admin role endpoint to fan a role update out to every
// session that key is currently attached to.
func (s *AppState) UsersWithKey(key string) []string {
	s.keysMu.Lock()
	defer s.keysMu.Unlock()
	var out []string
	for user, k := range s.keys {
		if k == key {
			out = append(out, user)
		}
	}
	return out
}

// CanManageChannels reports whether user may create/update/delete channels
// and voice channels, per §4.3: open to anyone authenticated when no admin
// token is configured, otherwise gated by role.
func (s *AppState) CanManageChannels(user string, adminTokenConfigured bool) bool {
	if !adminTokenConfigured {
		return true
	}
	info, ok := s.Role(user)
	if !ok {
		return false
	}
	return hasManageRole(info.Role)
}
