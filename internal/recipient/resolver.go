// Package recipient expands a notification role and reference id into the
// concrete audience: employee ids for the in-app feed and realtime rooms,
// plus raw contact addresses for email/SMS.
package recipient

import (
	"context"
	"fmt"

	"github.com/dynaerp/notify-engine/internal/domain"
	"github.com/dynaerp/notify-engine/internal/normalize"
)

// Directory answers employee-scoping queries against the relational store.
// The pg implementation lives in internal/repository.
type Directory interface {
	EmployeesByCompany(ctx context.Context, companyID string) ([]string, error)
	// Department/branch lookups are additionally scoped by companyID when
	// it is non-empty.
	EmployeesByDepartment(ctx context.Context, departmentID, companyID string) ([]string, error)
	EmployeesByBranch(ctx context.Context, branchID, companyID string) ([]string, error)
}

// Audience is the resolved recipient set for one reference.
// All three lists may be empty; zero recipients is not an error.
type Audience struct {
	EmpIDs []string
	Emails []string
	Phones []string
}

type Resolver struct {
	dir Directory
}

func New(dir Directory) *Resolver {
	return &Resolver{dir: dir}
}

// Resolve expands role+referenceID into employee ids, then mines contact
// addresses from the reference row's configured email/phone fields. Contact
// mining happens for every role — an employee reference can still carry a
// notification email column.
func (r *Resolver) Resolve(ctx context.Context, role domain.Role, referenceID string, referenceRow domain.Row, companyID string, cfg *domain.NotificationConfig) (Audience, error) {
	var aud Audience
	var err error

	switch role {
	case domain.RoleEmployee:
		aud.EmpIDs = []string{referenceID}
	case domain.RoleCompany:
		aud.EmpIDs, err = r.dir.EmployeesByCompany(ctx, referenceID)
	case domain.RoleDepartment:
		aud.EmpIDs, err = r.dir.EmployeesByDepartment(ctx, referenceID, companyID)
	case domain.RoleBranch:
		aud.EmpIDs, err = r.dir.EmployeesByBranch(ctx, referenceID, companyID)
	case domain.RoleCustomer:
		// Contact extraction only; customers have no feed.
	default:
		return Audience{}, fmt.Errorf("unknown role %q", role)
	}
	if err != nil {
		return Audience{}, fmt.Errorf("expand role %s: %w", role, err)
	}
	aud.EmpIDs = dedupe(aud.EmpIDs)

	if cfg != nil && referenceRow != nil {
		for _, field := range cfg.EmailFields {
			aud.Emails = append(aud.Emails, normalize.ContactValues(referenceRow.Get(field), normalize.ContactEmail)...)
		}
		for _, field := range cfg.PhoneFields {
			aud.Phones = append(aud.Phones, normalize.ContactValues(referenceRow.Get(field), normalize.ContactPhone)...)
		}
		aud.Emails = dedupe(aud.Emails)
		aud.Phones = dedupe(aud.Phones)
	}

	return aud, nil
}

func dedupe(in []string) []string {
	if len(in) < 2 {
		return in
	}
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, v := range in {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
