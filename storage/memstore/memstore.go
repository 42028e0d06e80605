// Package memstore implements storage.Client in a purely in-memory manner.
// Documents survive for the lifetime of the store only; it exists for tests
// and for embedding docguard into tools that bring their own persistence.
package memstore

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/docguardhq/docguard/acl"
	"github.com/docguardhq/docguard/storage"
)

// New returns a client that provides transient, in-memory storage.
func New() storage.Client {
	return &store{
		data: map[string]map[string][]byte{},
	}
}

type store struct {
	// data[tableName][documentID] = JSON
	data map[string]map[string][]byte
	mu   sync.RWMutex

	// Allows time to be stubbed in tests.
	Now func() time.Time
}

func (s *store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *store) Get(ctx context.Context, typ, id string) (*storage.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.get(typ, id)
}

// get assumes the caller holds at least a read lock.
func (s *store) get(typ, id string) (*storage.Document, error) {
	table := s.data[storage.TableName(typ)]
	if table == nil || table[id] == nil {
		return nil, storage.ErrNotFound
	}
	doc := &storage.Document{}
	if err := json.Unmarshal(table[id], doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *store) put(doc *storage.Document) error {
	jsonBytes, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	n := storage.TableName(doc.Type)
	if s.data[n] == nil {
		s.data[n] = map[string][]byte{}
	}
	s.data[n][doc.ID] = jsonBytes
	return nil
}

func (s *store) BulkGet(ctx context.Context, refs []storage.DocumentRef) (*storage.BulkResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	resp := &storage.BulkResponse{Documents: make([]*storage.Document, 0, len(refs))}
	for _, ref := range refs {
		doc, err := s.get(ref.Type, ref.ID)
		if err != nil {
			doc = &storage.Document{ID: ref.ID, Type: ref.Type, Err: err}
		}
		resp.Documents = append(resp.Documents, doc)
	}
	return resp, nil
}

func (s *store) Create(ctx context.Context, doc *storage.Document, opts storage.CreateOptions) (*storage.Document, error) {
	if err := storage.ValidateDocument(doc); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.create(doc, opts)
}

// create assumes the caller holds the write lock.
func (s *store) create(doc *storage.Document, opts storage.CreateOptions) (*storage.Document, error) {
	if _, err := s.get(doc.Type, doc.ID); err == nil && !opts.Overwrite {
		return nil, storage.ErrAlreadyExists
	}

	stored := *doc
	if len(opts.Workspaces) > 0 {
		stored.Workspaces = append([]string(nil), opts.Workspaces...)
	}
	stored.UpdatedAt = s.now()
	if err := s.put(&stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

func (s *store) BulkCreate(ctx context.Context, docs []*storage.Document, opts storage.CreateOptions) (*storage.BulkResponse, error) {
	for _, doc := range docs {
		if err := storage.ValidateDocument(doc); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	resp := &storage.BulkResponse{Documents: make([]*storage.Document, 0, len(docs))}
	for _, doc := range docs {
		stored, err := s.create(doc, opts)
		if err != nil {
			stored = &storage.Document{ID: doc.ID, Type: doc.Type, Err: err}
		}
		resp.Documents = append(resp.Documents, stored)
	}
	return resp, nil
}

func (s *store) Update(ctx context.Context, typ, id string, attributes json.RawMessage) (*storage.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.get(typ, id)
	if err != nil {
		return nil, err
	}
	doc.Attributes = attributes
	doc.UpdatedAt = s.now()
	if err := s.put(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *store) BulkUpdate(ctx context.Context, docs []*storage.Document) (*storage.BulkResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resp := &storage.BulkResponse{Documents: make([]*storage.Document, 0, len(docs))}
	for _, doc := range docs {
		current, err := s.get(doc.Type, doc.ID)
		if err != nil {
			resp.Documents = append(resp.Documents, &storage.Document{ID: doc.ID, Type: doc.Type, Err: err})
			continue
		}
		current.Attributes = doc.Attributes
		if doc.Permissions != nil {
			current.Permissions = doc.Permissions
		}
		current.UpdatedAt = s.now()
		if err := s.put(current); err != nil {
			return nil, err
		}
		resp.Documents = append(resp.Documents, current)
	}
	return resp, nil
}

func (s *store) Delete(ctx context.Context, typ, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := storage.TableName(typ)
	if s.data[n] == nil || s.data[n][id] == nil {
		return storage.ErrNotFound
	}
	delete(s.data[n], id)
	return nil
}

func (s *store) Find(ctx context.Context, query storage.Query) (*storage.FindResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*storage.Document
	for _, table := range s.data {
		for _, raw := range table {
			doc := &storage.Document{}
			if err := json.Unmarshal(raw, doc); err != nil {
				return nil, err
			}
			if matches(doc, query) {
				matched = append(matched, doc)
			}
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Type != matched[j].Type {
			return matched[i].Type < matched[j].Type
		}
		return matched[i].ID < matched[j].ID
	})

	resp := &storage.FindResponse{
		Total:   len(matched),
		Page:    query.Page,
		PerPage: query.PerPage,
	}
	resp.Documents = paginate(matched, query.Page, query.PerPage)
	return resp, nil
}

func (s *store) AddToWorkspaces(ctx context.Context, typ, id string, workspaces []string) (*storage.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.get(typ, id)
	if err != nil {
		return nil, err
	}
	for _, ws := range workspaces {
		if !doc.InWorkspace(ws) {
			doc.Workspaces = append(doc.Workspaces, ws)
		}
	}
	doc.UpdatedAt = s.now()
	if err := s.put(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *store) DeleteByWorkspace(ctx context.Context, workspaceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for n, table := range s.data {
		for id, raw := range table {
			doc := &storage.Document{}
			if err := json.Unmarshal(raw, doc); err != nil {
				return err
			}
			if !doc.InWorkspace(workspaceID) {
				continue
			}
			remaining := doc.Workspaces[:0]
			for _, ws := range doc.Workspaces {
				if ws != workspaceID {
					remaining = append(remaining, ws)
				}
			}
			if len(remaining) == 0 {
				delete(s.data[n], id)
				continue
			}
			doc.Workspaces = remaining
			if err := s.put(doc); err != nil {
				return err
			}
		}
	}
	return nil
}

// matches applies the type, search, workspace, and ACL constraints of a query
// to a single document.
func matches(doc *storage.Document, query storage.Query) bool {
	if len(query.Types) > 0 && !contains(query.Types, doc.Type) {
		return false
	}
	if query.Search != "" && !searchMatch(doc, query.Search) {
		return false
	}

	hasWorkspaceFilter := len(query.Workspaces) > 0
	hasACLFilter := query.ACLSearchParams != nil

	if !hasWorkspaceFilter && !hasACLFilter {
		return true
	}

	inWorkspace := false
	if hasWorkspaceFilter {
		for _, ws := range query.Workspaces {
			if doc.InWorkspace(ws) {
				inWorkspace = true
				break
			}
		}
	}

	aclMatch := false
	if hasACLFilter && doc.HasACL() {
		p := query.ACLSearchParams
		aclMatch = acl.New(doc.Permissions).HasPermission(p.PermissionModes, p.Principals)
	}

	switch {
	case hasWorkspaceFilter && hasACLFilter && query.WorkspaceOperator == storage.OperatorOR:
		return inWorkspace || aclMatch
	case hasWorkspaceFilter && hasACLFilter:
		return inWorkspace && aclMatch
	case hasWorkspaceFilter:
		return inWorkspace
	default:
		return aclMatch
	}
}

func searchMatch(doc *storage.Document, search string) bool {
	if strings.Contains(strings.ToLower(doc.ID), strings.ToLower(search)) {
		return true
	}
	return bytes.Contains(bytes.ToLower(doc.Attributes), bytes.ToLower([]byte(search)))
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func paginate(docs []*storage.Document, page, perPage int) []*storage.Document {
	if perPage <= 0 {
		return docs
	}
	if page <= 0 {
		page = 1
	}
	start := (page - 1) * perPage
	if start >= len(docs) {
		return nil
	}
	end := start + perPage
	if end > len(docs) {
		end = len(docs)
	}
	return docs[start:end]
}
