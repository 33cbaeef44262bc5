package service

import (
	"sync"

	"github.com/civic-connect/civic-api/internal/models"
)

func strPtr(s string) *string { return &s }

func approvedInstitution(id string) *models.User {
	name := "Institution " + id
	return &models.User{ID: id, Name: id, Role: models.RoleInstitution, Status: models.StatusApproved, InstitutionName: &name}
}

func pendingInstitution(id string) *models.User {
	u := approvedInstitution(id)
	u.Status = models.StatusPending
	return u
}

func approvedUser(id string) *models.User {
	return &models.User{ID: id, Name: id, Role: models.RoleUser, Status: models.StatusApproved}
}

func pendingUser(id string) *models.User {
	u := approvedUser(id)
	u.Status = models.StatusPending
	return u
}

type recordedEvents struct {
	mu     sync.Mutex
	events []string
}

func (r *recordedEvents) RecordEvent(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}
