// Package placement is the winner assignment board: a shortlist plus one
// container per placement slot. It holds no pointer or gesture state; the
// HTTP layer translates drag events into MoveToSlot and ReorderWithinShortlist.
package placement

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Elizabethomito/talentbridge/backend/internal/apperr"
	"github.com/Elizabethomito/talentbridge/backend/internal/models"
)

// Entry is one submission on the board.
type Entry struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Rating int    `json:"rating"`
}

// Slot is one placement container. Entry is nil when the slot is empty.
type Slot struct {
	Place int    `json:"place"`
	Entry *Entry `json:"entry"`
}

// View is a snapshot of the board for rendering.
type View struct {
	Shortlist []Entry `json:"shortlist"`
	Slots     []Slot  `json:"slots"`
	Filled    bool    `json:"all_slots_filled"`
}

// Board partitions the reviewed submissions between the shortlist and the
// slots. Every entry is in exactly one container. Safe for concurrent use.
type Board struct {
	mu        sync.Mutex
	places    []int
	entries   map[string]*Entry
	shortlist []*Entry
	slots     map[int]*Entry
}

// NewBoard builds a board for the given placements. Only reviewed submissions
// enter the pool; the shortlist starts ordered by rating, highest first, with
// ties kept in input order. labels may be nil.
func NewBoard(places []int, subs []models.Submission, labels map[string]string) *Board {
	b := &Board{
		places:  append([]int(nil), places...),
		entries: make(map[string]*Entry),
		slots:   make(map[int]*Entry, len(places)),
	}
	for _, s := range subs {
		if s.Status != models.SubmissionReviewed {
			continue
		}
		label := labels[s.ID]
		if label == "" {
			label = s.ID
		}
		e := &Entry{ID: s.ID, Label: label, Rating: s.RatingValue()}
		b.entries[s.ID] = e
		b.shortlist = append(b.shortlist, e)
	}
	sort.SliceStable(b.shortlist, func(i, j int) bool {
		return b.shortlist[i].Rating > b.shortlist[j].Rating
	})
	return b
}

func (b *Board) hasPlace(place int) bool {
	for _, p := range b.places {
		if p == place {
			return true
		}
	}
	return false
}

// remove takes the entry out of whichever container holds it.
func (b *Board) remove(e *Entry) {
	for place, occ := range b.slots {
		if occ == e {
			delete(b.slots, place)
			return
		}
	}
	for i, occ := range b.shortlist {
		if occ == e {
			b.shortlist = append(b.shortlist[:i], b.shortlist[i+1:]...)
			return
		}
	}
}

// returnToShortlist inserts e before the first entry with a lower rating, so
// a displaced occupant lands where the rating order puts it without undoing
// manual reordering of the rest.
func (b *Board) returnToShortlist(e *Entry) {
	idx := len(b.shortlist)
	for i, occ := range b.shortlist {
		if occ.Rating < e.Rating {
			idx = i
			break
		}
	}
	b.shortlist = append(b.shortlist, nil)
	copy(b.shortlist[idx+1:], b.shortlist[idx:])
	b.shortlist[idx] = e
}

// MoveToSlot places a submission. An existing occupant of the target slot is
// sent back to the shortlist.
func (b *Board) MoveToSlot(id string, place int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[id]
	if !ok {
		return apperr.Validation("submission %s is not eligible for placement", id)
	}
	if !b.hasPlace(place) {
		return apperr.Validation("place %d is not offered", place)
	}
	if b.slots[place] == e {
		return nil
	}

	b.remove(e)
	if occ := b.slots[place]; occ != nil {
		delete(b.slots, place)
		b.returnToShortlist(occ)
	}
	b.slots[place] = e
	return nil
}

// MoveToShortlist takes a placed submission out of its slot.
func (b *Board) MoveToShortlist(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[id]
	if !ok {
		return apperr.Validation("submission %s is not on the board", id)
	}
	for place, occ := range b.slots {
		if occ == e {
			delete(b.slots, place)
			b.returnToShortlist(e)
			return nil
		}
	}
	return nil
}

// ReorderWithinShortlist moves a shortlisted submission to index, clamped to
// the shortlist bounds. Order has no effect on the final placements.
func (b *Board) ReorderWithinShortlist(id string, index int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	from := -1
	for i, e := range b.shortlist {
		if e.ID == id {
			from = i
			break
		}
	}
	if from < 0 {
		return apperr.Validation("submission %s is not on the shortlist", id)
	}
	e := b.shortlist[from]
	b.shortlist = append(b.shortlist[:from], b.shortlist[from+1:]...)
	if index < 0 {
		index = 0
	}
	if index > len(b.shortlist) {
		index = len(b.shortlist)
	}
	b.shortlist = append(b.shortlist, nil)
	copy(b.shortlist[index+1:], b.shortlist[index:])
	b.shortlist[index] = e
	return nil
}

// Finalize maps each occupied place to its submission id. Empty slots are
// omitted.
func (b *Board) Finalize() map[int]string {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make(map[int]string, len(b.slots))
	for place, e := range b.slots {
		out[place] = e.ID
	}
	return out
}

// AllSlotsFilled reports whether every offered place has an occupant.
func (b *Board) AllSlotsFilled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.slots) == len(b.places)
}

// Placements is Finalize guarded by the full-occupancy precondition.
func (b *Board) Placements() (map[int]string, error) {
	placements := b.Finalize()
	if err := RequireFull(b.places, placements); err != nil {
		return nil, err
	}
	return placements, nil
}

// Places returns the offered placements.
func (b *Board) Places() []int {
	return append([]int(nil), b.places...)
}

// Len counts every submission on the board.
func (b *Board) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.shortlist) + len(b.slots)
}

// View snapshots the board.
func (b *Board) View() View {
	b.mu.Lock()
	defer b.mu.Unlock()

	v := View{
		Shortlist: make([]Entry, 0, len(b.shortlist)),
		Slots:     make([]Slot, 0, len(b.places)),
		Filled:    len(b.slots) == len(b.places),
	}
	for _, e := range b.shortlist {
		v.Shortlist = append(v.Shortlist, *e)
	}
	for _, p := range b.places {
		s := Slot{Place: p}
		if e := b.slots[p]; e != nil {
			cp := *e
			s.Entry = &cp
		}
		v.Slots = append(v.Slots, s)
	}
	return v
}

// RequireFull checks that placements fill exactly the offered places, each
// with a distinct submission.
func RequireFull(places []int, placements map[int]string) error {
	seen := make(map[string]int, len(placements))
	for place, id := range placements {
		if id == "" {
			return apperr.Precondition("place %d has no submission", place)
		}
		if other, dup := seen[id]; dup {
			return apperr.Precondition("submission %s placed twice (%d and %d)", id, other, place)
		}
		seen[id] = place
	}
	offered := make(map[int]bool, len(places))
	var missing []int
	for _, p := range places {
		offered[p] = true
		if _, ok := placements[p]; !ok {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		return apperr.Precondition("placement slots not filled: %v", missing)
	}
	for place := range placements {
		if !offered[place] {
			return apperr.Precondition("place %d is not offered", place)
		}
	}
	return nil
}

// SessionIdle is how long an untouched board survives. Boards are a
// convenience for dragging entries around; placements only count once
// submitted, so losing an abandoned board costs nothing but the layout.
const SessionIdle = 24 * time.Hour

type session struct {
	board    *Board
	lastUsed time.Time
}

// Sessions keeps one board per evaluator and challenge. Boards are dropped
// when their challenge closes or after SessionIdle without use.
type Sessions struct {
	mu        sync.Mutex
	boards    map[string]*session
	lastSweep time.Time

	// Now is the clock; tests replace it.
	Now func() time.Time
}

func NewSessions() *Sessions {
	return &Sessions{boards: make(map[string]*session), Now: time.Now}
}

func sessionKey(challengeID, userID string) string {
	return fmt.Sprintf("%s/%s", challengeID, userID)
}

// touch looks up key, dropping it if it went idle, and sweeps the whole map
// at most once per SessionIdle. Callers hold s.mu.
func (s *Sessions) touch(key string) (*session, bool) {
	now := s.Now()
	if now.Sub(s.lastSweep) >= SessionIdle {
		for k, sess := range s.boards {
			if now.Sub(sess.lastUsed) >= SessionIdle {
				delete(s.boards, k)
			}
		}
		s.lastSweep = now
	}
	sess, ok := s.boards[key]
	if !ok {
		return nil, false
	}
	if now.Sub(sess.lastUsed) >= SessionIdle {
		delete(s.boards, key)
		return nil, false
	}
	sess.lastUsed = now
	return sess, true
}

// Get returns the evaluator's board, building it with build on first use.
func (s *Sessions) Get(challengeID, userID string, build func() *Board) *Board {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := sessionKey(challengeID, userID)
	if sess, ok := s.touch(key); ok {
		return sess.board
	}
	b := build()
	s.boards[key] = &session{board: b, lastUsed: s.Now()}
	return b
}

// Peek returns the board if one exists.
func (s *Sessions) Peek(challengeID, userID string) (*Board, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.touch(sessionKey(challengeID, userID))
	if !ok {
		return nil, false
	}
	return sess.board, true
}

// Len reports how many boards are held.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.boards)
}

// Reset drops the evaluator's board so the next Get rebuilds it.
func (s *Sessions) Reset(challengeID, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.boards, sessionKey(challengeID, userID))
}

// DropChallenge forgets every board of a challenge, used once it is closed.
func (s *Sessions) DropChallenge(challengeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefix := challengeID + "/"
	for key := range s.boards {
		if strings.HasPrefix(key, prefix) {
			delete(s.boards, key)
		}
	}
}
