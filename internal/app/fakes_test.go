package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"ragchat/internal/model"
	"ragchat/internal/rank"
)

var errBoom = errors.New("boom")

var _ Store = (*memStore)(nil)

// memStore is an in-memory Store that counts calls and can be told to fail.
type memStore struct {
	mu sync.Mutex

	nextID     uint
	chunks     []model.Chunk
	docs       []model.Document
	chats      []model.ChatTurn
	templates  map[uint]string
	selections map[uint]string
	users      []model.User

	calls map[string]int

	failList   bool
	failAppend bool
	// failPutAfter makes PutChunk fail once this many chunks were written;
	// negative disables it.
	failPutAfter int
}

func newMemStore() *memStore {
	return &memStore{
		templates:    map[uint]string{},
		selections:   map[uint]string{},
		calls:        map[string]int{},
		failPutAfter: -1,
	}
}

func (m *memStore) count(name string) {
	m.calls[name]++
	m.nextID++
}

func (m *memStore) totalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		n += c
	}
	return n
}

func (m *memStore) PutChunk(ctx context.Context, chunk *model.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("PutChunk")
	if m.failPutAfter >= 0 && len(m.chunks) >= m.failPutAfter {
		return errBoom
	}
	for _, c := range m.chunks {
		if c.SourceChunkID == chunk.SourceChunkID {
			return fmt.Errorf("duplicate source_chunk_id %q", chunk.SourceChunkID)
		}
	}
	chunk.ID = m.nextID
	m.chunks = append(m.chunks, *chunk)
	return nil
}

func (m *memStore) ListChunks(ctx context.Context, ownerID uint) ([]model.Chunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("ListChunks")
	if m.failList {
		return nil, errBoom
	}
	var out []model.Chunk
	for _, c := range m.chunks {
		if c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memStore) DeleteChunks(ctx context.Context, ownerID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("DeleteChunks")
	kept := m.chunks[:0]
	for _, c := range m.chunks {
		if c.OwnerID != ownerID {
			kept = append(kept, c)
		}
	}
	m.chunks = kept
	return nil
}

func (m *memStore) CreateDocument(ctx context.Context, doc *model.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("CreateDocument")
	doc.ID = m.nextID
	m.docs = append(m.docs, *doc)
	return nil
}

func (m *memStore) SetChunkCount(ctx context.Context, ownerID, documentID uint, count int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("SetChunkCount")
	for i := range m.docs {
		if m.docs[i].ID == documentID && m.docs[i].OwnerID == ownerID {
			m.docs[i].ChunkCount = count
			return nil
		}
	}
	return errors.New("document not found")
}

func (m *memStore) ListDocuments(ctx context.Context, ownerID uint) ([]model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("ListDocuments")
	var out []model.Document
	for _, d := range m.docs {
		if d.OwnerID == ownerID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memStore) DeleteDocuments(ctx context.Context, ownerID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("DeleteDocuments")
	kept := m.docs[:0]
	for _, d := range m.docs {
		if d.OwnerID != ownerID {
			kept = append(kept, d)
		}
	}
	m.docs = kept
	return nil
}

func (m *memStore) GetTemplate(ctx context.Context, ownerID uint) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("GetTemplate")
	t, ok := m.templates[ownerID]
	return t, ok, nil
}

func (m *memStore) SetTemplate(ctx context.Context, ownerID uint, template string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("SetTemplate")
	m.templates[ownerID] = template
	return nil
}

func (m *memStore) GetModelSelection(ctx context.Context, ownerID uint) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("GetModelSelection")
	id, ok := m.selections[ownerID]
	return id, ok, nil
}

func (m *memStore) SetModelSelection(ctx context.Context, ownerID uint, modelID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("SetModelSelection")
	m.selections[ownerID] = modelID
	return nil
}

func (m *memStore) AppendChat(ctx context.Context, turn *model.ChatTurn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("AppendChat")
	if m.failAppend {
		return errBoom
	}
	turn.ID = m.nextID
	m.chats = append(m.chats, *turn)
	return nil
}

func (m *memStore) ListChat(ctx context.Context, ownerID uint) ([]model.ChatTurn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("ListChat")
	var out []model.ChatTurn
	for _, t := range m.chats {
		if t.OwnerID == ownerID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memStore) ClearChat(ctx context.Context, ownerID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("ClearChat")
	kept := m.chats[:0]
	for _, t := range m.chats {
		if t.OwnerID != ownerID {
			kept = append(kept, t)
		}
	}
	m.chats = kept
	return nil
}

func (m *memStore) CreateUser(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("CreateUser")
	user.ID = m.nextID
	m.users = append(m.users, *user)
	return nil
}

func (m *memStore) findUser(match func(model.User) bool) *model.User {
	for _, u := range m.users {
		if match(u) {
			u := u
			return &u
		}
	}
	return nil
}

func (m *memStore) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("GetUserByUsername")
	return m.findUser(func(u model.User) bool { return u.Username == username }), nil
}

func (m *memStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("GetUserByEmail")
	return m.findUser(func(u model.User) bool { return u.Email == email }), nil
}

func (m *memStore) GetUserByID(ctx context.Context, id uint) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("GetUserByID")
	return m.findUser(func(u model.User) bool { return u.ID == id }), nil
}

func (m *memStore) Ping(ctx context.Context) error { return nil }

// fakeGenerator records each call and the context it ran under.
type fakeGenerator struct {
	calls      int
	lastModel  string
	lastPrompt string
	ctxErr     error
	reply      string
	err        error
	models     []model.LLMModel
}

func (g *fakeGenerator) Generate(ctx context.Context, modelID, prompt string) (string, error) {
	g.calls++
	g.lastModel = modelID
	g.lastPrompt = prompt
	g.ctxErr = ctx.Err()
	if g.err != nil {
		return "", g.err
	}
	return g.reply, nil
}

func (g *fakeGenerator) ListModels(ctx context.Context) ([]model.LLMModel, error) {
	if g.err != nil {
		return nil, g.err
	}
	return g.models, nil
}

type fakeCache struct {
	history map[uint][]model.ChatTurn
	dirty   map[uint]bool
	deletes map[uint]int
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		history: map[uint][]model.ChatTurn{},
		dirty:   map[uint]bool{},
		deletes: map[uint]int{},
	}
}

func (c *fakeCache) Lookup(ctx context.Context, ownerID uint) ([]model.ChatTurn, bool, error) {
	if c.dirty[ownerID] {
		return nil, false, nil
	}
	h, ok := c.history[ownerID]
	return h, ok, nil
}

func (c *fakeCache) Fill(ctx context.Context, ownerID uint, turns []model.ChatTurn) error {
	if !c.dirty[ownerID] {
		c.history[ownerID] = turns
	}
	return nil
}

func (c *fakeCache) Invalidate(ctx context.Context, ownerID uint) error {
	c.dirty[ownerID] = true
	delete(c.history, ownerID)
	c.deletes[ownerID]++
	return nil
}

type memFiles struct {
	saved map[string][]byte
	err   error
}

func (f *memFiles) Save(ownerID uint, filename string, body []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.saved == nil {
		f.saved = map[string][]byte{}
	}
	path := fmt.Sprintf("/mem/%d/%d_%s", ownerID, len(f.saved), filename)
	f.saved[path] = body
	return path, nil
}

type fakePublisher struct {
	jobs []IngestJob
	err  error
}

func (p *fakePublisher) PublishIngest(ctx context.Context, job IngestJob) error {
	if p.err != nil {
		return p.err
	}
	p.jobs = append(p.jobs, job)
	return nil
}

func newRankerForTest(store *memStore) Retriever {
	return rank.NewRanker(store, nil)
}
