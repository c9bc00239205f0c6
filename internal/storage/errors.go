package storage

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/lib/pq"
)

const (
	constraintUsersEmail = "users_email_key"
	constraintOrgDomain  = "organizations_domain_key"
)

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pgerrcode.UniqueViolation
	}
	return false
}

func constraintName(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Constraint
	}
	return ""
}

// mapWriteError turns unique violations on known constraints into sentinel errors.
func mapWriteError(err error) error {
	if err == nil || !isUniqueViolation(err) {
		return err
	}
	switch constraintName(err) {
	case constraintUsersEmail:
		return ErrEmailTaken
	case constraintOrgDomain:
		return ErrDomainTaken
	}
	return err
}
