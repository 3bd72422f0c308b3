package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/qldp/registry/common/filter"
	"github.com/qldp/registry/common/models"
)

// MemoryStore is an in-process Store used by tests and local runs.
// Transactions are serialized; each one works on a copy of the state that
// replaces the committed state only when fn returns nil.
type MemoryStore struct {
	mu    sync.Mutex
	state *memoryState
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemoryState()}
}

// RunInTx implements Store
func (s *MemoryStore) RunInTx(ctx context.Context, fn func(r *Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := s.state.clone()
	if err := fn(tx.repositories()); err != nil {
		return err
	}
	s.state = tx
	return nil
}

// AddPerson seeds a person, assigning an id when zero
func (s *MemoryStore) AddPerson(p models.Person) *models.Person {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == 0 {
		p.ID = s.state.nextID()
	}
	s.state.people[p.ID] = clonePerson(&p)
	return clonePerson(&p)
}

// AddIDCard seeds an identity card for an existing person
func (s *MemoryStore) AddIDCard(number string, personID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.idCards[number] = &models.IDCard{ID: s.state.nextID(), IDCardNumber: number, PersonID: personID}
}

// AddHousehold seeds a household, assigning an id when zero
func (s *MemoryStore) AddHousehold(h models.Household) *models.Household {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h.ID == 0 {
		h.ID = s.state.nextID()
	}
	stored := h
	s.state.households[h.ID] = &stored
	return &h
}

// AddFamilyMember seeds a membership link
func (s *MemoryStore) AddFamilyMember(m models.FamilyMember) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.Person = nil
	s.state.members = append(s.state.members, &m)
}

// AddUser seeds a user, assigning an id when zero
func (s *MemoryStore) AddUser(u models.User) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == 0 {
		u.ID = s.state.nextID()
	}
	stored := u
	s.state.users[u.ID] = &stored
	return &u
}

// AddPetition seeds a petition, assigning an id when zero
func (s *MemoryStore) AddPetition(p models.Petition) *models.Petition {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == 0 {
		p.ID = s.state.nextID()
	}
	stored := p
	s.state.petitions[p.ID] = &stored
	return &p
}

// AddTempAbsent seeds an absence record, assigning an id when zero
func (s *MemoryStore) AddTempAbsent(ta models.TempAbsent) *models.TempAbsent {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ta.ID == 0 {
		ta.ID = s.state.nextID()
	}
	ta.Person = nil
	stored := ta
	s.state.tempAbsents[ta.ID] = &stored
	return &ta
}

type memoryState struct {
	seq         int64
	people      map[int64]*models.Person
	idCards     map[string]*models.IDCard
	households  map[int64]*models.Household
	members     []*models.FamilyMember
	history     []*models.HouseholdHistory
	tempAbsents map[int64]*models.TempAbsent
	petitions   map[int64]*models.Petition
	replies     map[int64]*models.Reply
	users       map[int64]*models.User
}

func newMemoryState() *memoryState {
	return &memoryState{
		people:      make(map[int64]*models.Person),
		idCards:     make(map[string]*models.IDCard),
		households:  make(map[int64]*models.Household),
		tempAbsents: make(map[int64]*models.TempAbsent),
		petitions:   make(map[int64]*models.Petition),
		replies:     make(map[int64]*models.Reply),
		users:       make(map[int64]*models.User),
	}
}

func (m *memoryState) nextID() int64 {
	m.seq++
	return m.seq
}

func (m *memoryState) clone() *memoryState {
	c := newMemoryState()
	c.seq = m.seq
	for id, p := range m.people {
		c.people[id] = clonePerson(p)
	}
	for n, card := range m.idCards {
		v := *card
		c.idCards[n] = &v
	}
	for id, h := range m.households {
		v := *h
		c.households[id] = &v
	}
	for _, fm := range m.members {
		v := *fm
		c.members = append(c.members, &v)
	}
	for _, e := range m.history {
		v := *e
		c.history = append(c.history, &v)
	}
	for id, ta := range m.tempAbsents {
		v := *ta
		c.tempAbsents[id] = &v
	}
	for id, p := range m.petitions {
		v := *p
		c.petitions[id] = &v
	}
	for id, r := range m.replies {
		v := *r
		c.replies[id] = &v
	}
	for id, u := range m.users {
		v := *u
		c.users[id] = &v
	}
	return c
}

func (m *memoryState) repositories() *Repositories {
	return &Repositories{
		People:        &memoryPeople{m},
		IDCards:       &memoryIDCards{m},
		Households:    &memoryHouseholds{m},
		FamilyMembers: &memoryFamilyMembers{m},
		History:       &memoryHistory{m},
		TempAbsents:   &memoryTempAbsents{m},
		Petitions:     &memoryPetitions{m},
		Replies:       &memoryReplies{m},
		Users:         &memoryUsers{m},
	}
}

func clonePerson(p *models.Person) *models.Person {
	v := *p
	if p.Mobilization != nil {
		mob := *p.Mobilization
		v.Mobilization = &mob
	}
	return &v
}

type memoryPeople struct{ s *memoryState }

func (r *memoryPeople) GetByID(_ context.Context, id int64) (*models.Person, error) {
	p, ok := r.s.people[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", models.ErrPersonNotFound, id)
	}
	return clonePerson(p), nil
}

func (r *memoryPeople) Save(_ context.Context, person *models.Person) error {
	if _, ok := r.s.people[person.ID]; !ok {
		return fmt.Errorf("%w: id %d", models.ErrPersonNotFound, person.ID)
	}
	r.s.people[person.ID] = clonePerson(person)
	return nil
}

type memoryIDCards struct{ s *memoryState }

func (r *memoryIDCards) FindByIDCardNumber(_ context.Context, number string) (*models.IDCard, error) {
	card, ok := r.s.idCards[number]
	if !ok {
		return nil, fmt.Errorf("%w: id card %s", models.ErrPersonNotFound, number)
	}
	v := *card
	return &v, nil
}

type memoryHouseholds struct{ s *memoryState }

func (r *memoryHouseholds) GetByID(_ context.Context, id int64) (*models.Household, error) {
	h, ok := r.s.households[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", models.ErrHouseholdNotFound, id)
	}
	v := *h
	return &v, nil
}

type memoryFamilyMembers struct{ s *memoryState }

func (r *memoryFamilyMembers) Create(_ context.Context, member *models.FamilyMember) error {
	if _, ok := r.s.people[member.PersonID]; !ok {
		return fmt.Errorf("%w: id %d", models.ErrPersonNotFound, member.PersonID)
	}
	if _, ok := r.s.households[member.HouseholdID]; !ok {
		return fmt.Errorf("%w: id %d", models.ErrHouseholdNotFound, member.HouseholdID)
	}
	for _, fm := range r.s.members {
		if fm.PersonID == member.PersonID && fm.HouseholdID == member.HouseholdID {
			return fmt.Errorf("failed to create family member: duplicate key (%d, %d)", member.PersonID, member.HouseholdID)
		}
	}
	v := *member
	v.Person = nil
	r.s.members = append(r.s.members, &v)
	return nil
}

func (r *memoryFamilyMembers) ListByHousehold(_ context.Context, householdID int64) ([]*models.FamilyMember, error) {
	var members []*models.FamilyMember
	for _, fm := range r.s.members {
		if fm.HouseholdID != householdID {
			continue
		}
		v := *fm
		if p, ok := r.s.people[fm.PersonID]; ok {
			v.Person = clonePerson(p)
		}
		members = append(members, &v)
	}
	sort.Slice(members, func(i, j int) bool { return members[i].PersonID < members[j].PersonID })
	return members, nil
}

func (r *memoryFamilyMembers) FindByPerson(_ context.Context, personID int64) (*models.FamilyMember, error) {
	for _, fm := range r.s.members {
		if fm.PersonID == personID {
			v := *fm
			return &v, nil
		}
	}
	return nil, fmt.Errorf("%w: no household for person %d", models.ErrHouseholdNotFound, personID)
}

type memoryHistory struct{ s *memoryState }

func (r *memoryHistory) Append(_ context.Context, entry *models.HouseholdHistory) error {
	entry.ID = r.s.nextID()
	v := *entry
	r.s.history = append(r.s.history, &v)
	return nil
}

func (r *memoryHistory) ListByHousehold(_ context.Context, householdID int64) ([]*models.HouseholdHistory, error) {
	var entries []*models.HouseholdHistory
	for _, e := range r.s.history {
		if e.HouseholdID == householdID {
			v := *e
			entries = append(entries, &v)
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Date.Equal(entries[j].Date) {
			return entries[i].ID < entries[j].ID
		}
		return entries[i].Date.Before(entries[j].Date)
	})
	return entries, nil
}

type memoryTempAbsents struct{ s *memoryState }

func (r *memoryTempAbsents) Create(_ context.Context, absent *models.TempAbsent) error {
	for _, ta := range r.s.tempAbsents {
		if ta.Code == absent.Code {
			return fmt.Errorf("%w: %s", models.ErrDuplicateTempAbsentCode, absent.Code)
		}
	}
	if _, ok := r.s.people[absent.PersonID]; !ok {
		return fmt.Errorf("%w: id %d", models.ErrPersonNotFound, absent.PersonID)
	}
	absent.ID = r.s.nextID()
	v := *absent
	v.Person = nil
	r.s.tempAbsents[v.ID] = &v
	return nil
}

func (r *memoryTempAbsents) GetByID(_ context.Context, id int64) (*models.TempAbsent, error) {
	ta, ok := r.s.tempAbsents[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", models.ErrTempAbsentNotFound, id)
	}
	return r.load(ta), nil
}

func (r *memoryTempAbsents) FindByCode(_ context.Context, code string) (*models.TempAbsent, error) {
	for _, ta := range r.s.tempAbsents {
		if ta.Code == code {
			return r.load(ta), nil
		}
	}
	return nil, fmt.Errorf("%w: code %s", models.ErrTempAbsentNotFound, code)
}

func (r *memoryTempAbsents) List(_ context.Context, dates filter.DateRange) ([]*models.TempAbsent, error) {
	var absents []*models.TempAbsent
	for _, ta := range r.s.tempAbsents {
		if dates.Overlaps(ta.Interval) {
			absents = append(absents, r.load(ta))
		}
	}
	sort.Slice(absents, func(i, j int) bool {
		if absents[i].Interval.From.Equal(absents[j].Interval.From) {
			return absents[i].ID < absents[j].ID
		}
		return absents[i].Interval.From.Before(absents[j].Interval.From)
	})
	return absents, nil
}

func (r *memoryTempAbsents) load(ta *models.TempAbsent) *models.TempAbsent {
	v := *ta
	if p, ok := r.s.people[ta.PersonID]; ok {
		v.Person = clonePerson(p)
	}
	return &v
}

type memoryPetitions struct{ s *memoryState }

func (r *memoryPetitions) GetByID(_ context.Context, id int64) (*models.Petition, error) {
	p, ok := r.s.petitions[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", models.ErrPetitionNotFound, id)
	}
	v := *p
	return &v, nil
}

func (r *memoryPetitions) UpdateStatus(_ context.Context, id int64, status models.Status) error {
	p, ok := r.s.petitions[id]
	if !ok {
		return fmt.Errorf("%w: id %d", models.ErrPetitionNotFound, id)
	}
	p.Body.Status = status
	return nil
}

type memoryReplies struct{ s *memoryState }

func (r *memoryReplies) Create(_ context.Context, reply *models.Reply) error {
	if _, ok := r.s.petitions[reply.PetitionID]; !ok {
		return fmt.Errorf("%w: id %d", models.ErrPetitionNotFound, reply.PetitionID)
	}
	if _, ok := r.s.users[reply.ReplierID]; !ok {
		return fmt.Errorf("%w: id %d", models.ErrUserNotFound, reply.ReplierID)
	}
	reply.ID = r.s.nextID()
	v := *reply
	v.Petition, v.Replier = nil, nil
	r.s.replies[v.ID] = &v
	return nil
}

func (r *memoryReplies) GetByID(_ context.Context, id int64) (*models.Reply, error) {
	reply, ok := r.s.replies[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", models.ErrReplyNotFound, id)
	}
	v := *reply
	if p, ok := r.s.petitions[reply.PetitionID]; ok {
		pv := *p
		v.Petition = &pv
	}
	if u, ok := r.s.users[reply.ReplierID]; ok {
		uv := *u
		v.Replier = &uv
	}
	return &v, nil
}

func (r *memoryReplies) UpdateStatus(_ context.Context, id int64, from, to models.Status) error {
	reply, ok := r.s.replies[id]
	if !ok {
		return fmt.Errorf("%w: id %d", models.ErrReplyNotFound, id)
	}
	if reply.Body.Status != from {
		return &models.InvalidReplyUpdateStatusError{Status: reply.Body.Status}
	}
	reply.Body.Status = to
	return nil
}

type memoryUsers struct{ s *memoryState }

func (r *memoryUsers) GetByID(_ context.Context, id int64) (*models.User, error) {
	u, ok := r.s.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", models.ErrUserNotFound, id)
	}
	v := *u
	return &v, nil
}

func (r *memoryUsers) FindByIdentity(_ context.Context, identityUID string) (*models.User, error) {
	for _, u := range r.s.users {
		if u.IdentityUID == identityUID {
			v := *u
			return &v, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", models.ErrUserNotFound, identityUID)
}
