package api

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type documentRecord struct {
	Info    DocumentInfo
	Root    *TreeNode
	Strings []string
}

// DocumentStore holds parsed documents in memory. Records are fully
// rendered at creation, so readers share nothing mutable.
type DocumentStore struct {
	mu    sync.Mutex
	order []string
	docs  map[string]*documentRecord
}

func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		docs: make(map[string]*documentRecord),
	}
}

func (s *DocumentStore) Create(doc *parsedDocument, now time.Time) DocumentInfo {
	info := DocumentInfo{
		ID:        newDocumentID(),
		Object:    "document",
		CreatedAt: now.Unix(),
		Name:      doc.Name,
		Type:      doc.Type,
		Size:      doc.Size,
		Hash:      doc.Hash,
		Sections:  doc.Sections,
	}

	s.mu.Lock()
	s.docs[info.ID] = &documentRecord{
		Info:    info,
		Root:    doc.Root,
		Strings: doc.Strings,
	}
	s.order = append(s.order, info.ID)
	s.mu.Unlock()

	return info
}

func (s *DocumentStore) Get(id string) (*documentRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.docs[id]
	return rec, ok
}

// List returns document summaries in upload order.
func (s *DocumentStore) List() []DocumentInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]DocumentInfo, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.docs[id].Info)
	}
	return out
}

func (s *DocumentStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[id]; !ok {
		return false
	}
	delete(s.docs, id)
	for i, other := range s.order {
		if other == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

func newDocumentID() string {
	return "doc_" + uuid.NewString()
}
