package sqlstore

import (
	"context"
	"strings"

	"github.com/docguardhq/docguard/storage"
)

// Find compiles the query into SQL so the workspace filter and the ACL
// predicate execute inside the database.
func (s *store) Find(ctx context.Context, query storage.Query) (*storage.FindResponse, error) {
	where, args := s.compile(query)

	countSQL := `SELECT COUNT(*) FROM ` + s.documents() + ` d` + where
	var total int
	if err := s.db.QueryRowContext(ctx, s.rebind(countSQL), args...).Scan(&total); err != nil {
		return nil, translateError(err)
	}

	findSQL := `SELECT d.doc_type, d.id FROM ` + s.documents() + ` d` + where +
		` ORDER BY d.doc_type, d.id`
	findArgs := args
	if query.PerPage > 0 {
		page := query.Page
		if page <= 0 {
			page = 1
		}
		findSQL += ` LIMIT ? OFFSET ?`
		findArgs = append(append([]any{}, args...), query.PerPage, (page-1)*query.PerPage)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(findSQL), findArgs...)
	if err != nil {
		return nil, translateError(err)
	}
	var refs []storage.DocumentRef
	for rows.Next() {
		var ref storage.DocumentRef
		if err := rows.Scan(&ref.Type, &ref.ID); err != nil {
			rows.Close()
			return nil, err
		}
		refs = append(refs, ref)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	resp := &storage.FindResponse{
		Documents: make([]*storage.Document, 0, len(refs)),
		Total:     total,
		Page:      query.Page,
		PerPage:   query.PerPage,
	}
	for _, ref := range refs {
		doc, err := s.getTx(ctx, s.db, ref.Type, ref.ID)
		if err != nil {
			return nil, err
		}
		resp.Documents = append(resp.Documents, doc)
	}
	return resp, nil
}

// compile builds the WHERE clause for a query. Returned SQL uses ?-style
// placeholders; rebind converts them for postgres.
func (s *store) compile(query storage.Query) (string, []any) {
	var clauses []string
	var args []any

	if len(query.Types) > 0 {
		clauses = append(clauses, `d.doc_type IN (`+placeholders(len(query.Types))+`)`)
		for _, t := range query.Types {
			args = append(args, t)
		}
	}

	if query.Search != "" {
		clauses = append(clauses, `(LOWER(d.id) LIKE ? OR LOWER(d.attributes) LIKE ?)`)
		pattern := "%" + strings.ToLower(query.Search) + "%"
		args = append(args, pattern, pattern)
	}

	var access []string
	if len(query.Workspaces) > 0 {
		access = append(access,
			`EXISTS (SELECT 1 FROM `+s.workspaces()+` w
				WHERE w.doc_type = d.doc_type AND w.doc_id = d.id
				AND w.workspace_id IN (`+placeholders(len(query.Workspaces))+`))`)
		for _, ws := range query.Workspaces {
			args = append(args, ws)
		}
	}
	if p := query.ACLSearchParams; p != nil {
		grantClause, grantArgs := s.compileGrants(p)
		access = append(access, grantClause)
		args = append(args, grantArgs...)
	}

	if len(access) == 2 && query.WorkspaceOperator == storage.OperatorOR {
		clauses = append(clauses, `(`+access[0]+` OR `+access[1]+`)`)
	} else {
		clauses = append(clauses, access...)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return ` WHERE ` + strings.Join(clauses, ` AND `), args
}

func (s *store) compileGrants(p *storage.ACLSearchParams) (string, []any) {
	var kinds []string
	var args []any

	if len(p.Principals.Users) > 0 {
		kinds = append(kinds,
			`(g.principal_kind = 'users' AND g.principal IN (`+placeholders(len(p.Principals.Users))+`))`)
		for _, u := range p.Principals.Users {
			args = append(args, u)
		}
	}
	if len(p.Principals.Groups) > 0 {
		kinds = append(kinds,
			`(g.principal_kind = 'groups' AND g.principal IN (`+placeholders(len(p.Principals.Groups))+`))`)
		for _, g := range p.Principals.Groups {
			args = append(args, g)
		}
	}
	if len(kinds) == 0 || len(p.PermissionModes) == 0 {
		// No principals or no modes can never match a grant row.
		return `1 = 0`, nil
	}

	modeArgs := make([]any, 0, len(p.PermissionModes))
	for _, m := range p.PermissionModes {
		modeArgs = append(modeArgs, string(m))
	}
	clause := `EXISTS (SELECT 1 FROM ` + s.grants() + ` g
		WHERE g.doc_type = d.doc_type AND g.doc_id = d.id
		AND g.mode IN (` + placeholders(len(p.PermissionModes)) + `)
		AND (` + strings.Join(kinds, ` OR `) + `))`
	return clause, append(modeArgs, args...)
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
