package ws

import (
	"sort"
	"sync"

	"murmer/internal/constants"
)

// voiceRoom is one entry of the voice channel -> {members, quality, bitrate}
// map described in §4.5.
type voiceRoom struct {
	members map[string]struct{}
	quality string
	bitrate int
}

// voiceRoomManager enforces at-most-one-room-per-user membership and
// produces the broadcast payloads the dispatch engine fans out on join,
// leave, and disconnect.
type voiceRoomManager struct {
	mu    sync.Mutex
	rooms map[string]*voiceRoom
}

func newVoiceRoomManager() *voiceRoomManager {
	return &voiceRoomManager{rooms: make(map[string]*voiceRoom)}
}

// join removes user from every room it currently occupies, creates channel
// with default quality/bitrate if absent, and adds user to it. Returns the
// member list of channel and whether the room was newly created.
func (m *voiceRoomManager) join(user, channel string) (members []string, created bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, room := range m.rooms {
		delete(room.members, user)
	}

	room, ok := m.rooms[channel]
	if !ok {
		room = &voiceRoom{
			members: make(map[string]struct{}),
			quality: constants.DefaultVoiceQuality,
			bitrate: constants.DefaultVoiceBitrate,
		}
		m.rooms[channel] = room
		created = true
	}
	room.members[user] = struct{}{}

	return sortedMembers(room.members), created
}

// leave removes user from channel, returning its remaining member list.
func (m *voiceRoomManager) leave(user, channel string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[channel]
	if !ok {
		return nil
	}
	delete(room.members, user)
	return sortedMembers(room.members)
}

// removeFromAll removes user from whatever room it occupies, returning the
// room name and remaining members so the caller can broadcast, or ("", nil)
// if the user was in no room.
func (m *voiceRoomManager) removeFromAll(user string) (channel string, members []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for name, room := range m.rooms {
		if _, ok := room.members[user]; ok {
			delete(room.members, user)
			return name, sortedMembers(room.members)
		}
	}
	return "", nil
}

func (m *voiceRoomManager) ensure(channel, quality string, bitrate int) (created bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.rooms[channel]; ok {
		return false
	}
	m.rooms[channel] = &voiceRoom{
		members: make(map[string]struct{}),
		quality: quality,
		bitrate: bitrate,
	}
	return true
}

func (m *voiceRoomManager) update(channel, quality string, bitrate int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[channel]
	if !ok {
		return false
	}
	room.quality = quality
	room.bitrate = bitrate
	return true
}

func (m *voiceRoomManager) remove(channel string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rooms, channel)
}

func (m *voiceRoomManager) get(channel string) (quality string, bitrate int, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[channel]
	if !ok {
		return "", 0, false
	}
	return room.quality, room.bitrate, true
}

type voiceRoomSnapshot struct {
	Name    string
	Quality string
	Bitrate int
	Members []string
}

func (m *voiceRoomManager) snapshot() []voiceRoomSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]voiceRoomSnapshot, 0, len(m.rooms))
	for name, room := range m.rooms {
		out = append(out, voiceRoomSnapshot{
			Name:    name,
			Quality: room.quality,
			Bitrate: room.bitrate,
			Members: sortedMembers(room.members),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func sortedMembers(members map[string]struct{}) []string {
	out := make([]string, 0, len(members))
	for u := range members {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}
