// Package submissions turns public form posts into pending records and
// applies admin decisions on adoption applications.
package submissions

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"shelterdb/internal/core"
	"shelterdb/pkg/domain"
)

var (
	// ErrInvalid wraps every form validation failure.
	ErrInvalid = errors.New("invalid submission")
	// ErrNotFound reports an unknown application or animal.
	ErrNotFound = errors.New("not found")
	// ErrAnimalUnavailable rejects applications for adopted animals.
	ErrAnimalUnavailable = errors.New("animal is not available for adoption")
	// ErrDecided rejects a second decision on the same application.
	ErrDecided = errors.New("application already decided")
)

// AdoptionForm is the adoption request form.
type AdoptionForm struct {
	AnimalID int64  `json:"animalId"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Message  string `json:"message"`
}

// DonationForm is the donation pledge form.
type DonationForm struct {
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	Purpose  string  `json:"purpose"`
	Method   string  `json:"method"`
}

// VolunteerForm is the volunteer sign-up form.
type VolunteerForm struct {
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	Phone        string   `json:"phone"`
	Skills       []string `json:"skills"`
	Availability string   `json:"availability"`
}

// Service writes submissions through the catalog's typed stores.
type Service struct {
	catalog *core.Catalog
	clock   core.Clock
	log     core.Logger
	newRef  func() string

	// mu serializes adoption submissions and decisions, which read one
	// store and then write another.
	mu sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the timestamp source.
func WithClock(c core.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l core.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithReferenceGenerator overrides the uuid reference generator.
func WithReferenceGenerator(f func() string) Option {
	return func(s *Service) {
		if f != nil {
			s.newRef = f
		}
	}
}

// New returns a Service over catalog.
func New(catalog *core.Catalog, opts ...Option) *Service {
	s := &Service{
		catalog: catalog,
		clock:   core.ClockFunc(time.Now),
		log:     core.NopLogger{},
		newRef:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) now() string { return s.clock.Now().UTC().Format(time.RFC3339) }

// SubmitAdoption stores a pending application for an animal that has not
// been adopted yet.
func (s *Service) SubmitAdoption(ctx context.Context, f AdoptionForm) (domain.Application, error) {
	if err := contact(f.Name, f.Email); err != nil {
		return domain.Application{}, err
	}
	if f.AnimalID <= 0 {
		return domain.Application{}, fmt.Errorf("%w: animalId is required", ErrInvalid)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	animal, ok := s.catalog.Animals.GetByID(ctx, f.AnimalID)
	if !ok {
		return domain.Application{}, fmt.Errorf("animal %d: %w", f.AnimalID, ErrNotFound)
	}
	if animal.Status == domain.AnimalAdopted {
		return domain.Application{}, fmt.Errorf("animal %d: %w", f.AnimalID, ErrAnimalUnavailable)
	}
	app := s.catalog.Applications.Add(ctx, domain.Application{
		AnimalID:    domain.Ptr(f.AnimalID),
		Name:        strings.TrimSpace(f.Name),
		Email:       strings.TrimSpace(f.Email),
		Phone:       strings.TrimSpace(f.Phone),
		Message:     f.Message,
		Status:      domain.StatusPending,
		Reference:   s.newRef(),
		SubmittedAt: s.now(),
	})
	s.log.Info("adoption application submitted", "application", app.ID, "animal", f.AnimalID, "reference", app.Reference)
	return app, nil
}

// SubmitDonation stores a pending donation pledge.
func (s *Service) SubmitDonation(ctx context.Context, f DonationForm) (domain.Donation, error) {
	if err := contact(f.Name, f.Email); err != nil {
		return domain.Donation{}, err
	}
	if f.Amount <= 0 {
		return domain.Donation{}, fmt.Errorf("%w: amount must be positive", ErrInvalid)
	}
	d := s.catalog.Donations.Add(ctx, domain.Donation{
		Name:      strings.TrimSpace(f.Name),
		Email:     strings.TrimSpace(f.Email),
		Amount:    domain.Ptr(f.Amount),
		Currency:  strings.ToUpper(strings.TrimSpace(f.Currency)),
		Purpose:   f.Purpose,
		Method:    f.Method,
		Status:    domain.StatusPending,
		Reference: s.newRef(),
		CreatedAt: s.now(),
	})
	s.log.Info("donation submitted", "donation", d.ID, "reference", d.Reference)
	return d, nil
}

// SubmitVolunteer stores a pending volunteer sign-up.
func (s *Service) SubmitVolunteer(ctx context.Context, f VolunteerForm) (domain.Volunteer, error) {
	if err := contact(f.Name, f.Email); err != nil {
		return domain.Volunteer{}, err
	}
	v := s.catalog.Volunteers.Add(ctx, domain.Volunteer{
		Name:         strings.TrimSpace(f.Name),
		Email:        strings.TrimSpace(f.Email),
		Phone:        strings.TrimSpace(f.Phone),
		Skills:       f.Skills,
		Availability: f.Availability,
		Status:       domain.StatusPending,
		Reference:    s.newRef(),
		JoinedAt:     s.now(),
	})
	s.log.Info("volunteer signed up", "volunteer", v.ID, "reference", v.Reference)
	return v, nil
}

// Approve marks the application approved and its animal adopted. Other
// pending applications for the same animal are rejected.
func (s *Service) Approve(ctx context.Context, applicationID int64) (domain.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, err := s.pending(ctx, applicationID)
	if err != nil {
		return app, err
	}
	if app.AnimalID != nil {
		if animal, ok := s.catalog.Animals.GetByID(ctx, *app.AnimalID); ok && animal.Status == domain.AnimalAdopted {
			return app, fmt.Errorf("animal %d: %w", *app.AnimalID, ErrAnimalUnavailable)
		}
	}
	app, err = s.setStatus(ctx, applicationID, domain.StatusApproved)
	if err != nil || app.AnimalID == nil {
		return app, err
	}
	animalID := *app.AnimalID
	if _, ok := s.catalog.Animals.Update(ctx, animalID, domain.Patch{"status": string(domain.AnimalAdopted)}); !ok {
		s.log.Warn("approved application references a missing animal", "application", app.ID, "animal", animalID)
	}
	for _, other := range s.catalog.Applications.GetAll(ctx) {
		if other.ID == app.ID || !other.ForAnimal(animalID) || other.Status != domain.StatusPending {
			continue
		}
		s.catalog.Applications.Update(ctx, other.ID, domain.Patch{"status": string(domain.StatusRejected)})
		s.log.Info("competing application rejected", "application", other.ID, "animal", animalID)
	}
	return app, nil
}

// Reject marks the application rejected.
func (s *Service) Reject(ctx context.Context, applicationID int64) (domain.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if app, err := s.pending(ctx, applicationID); err != nil {
		return app, err
	}
	return s.setStatus(ctx, applicationID, domain.StatusRejected)
}

// pending returns the application when no decision has been made on it yet.
func (s *Service) pending(ctx context.Context, id int64) (domain.Application, error) {
	app, ok := s.catalog.Applications.GetByID(ctx, id)
	if !ok {
		return domain.Application{}, fmt.Errorf("application %d: %w", id, ErrNotFound)
	}
	if app.Status != "" && app.Status != domain.StatusPending {
		return app, fmt.Errorf("application %d is %s: %w", id, app.Status, ErrDecided)
	}
	return app, nil
}

func (s *Service) setStatus(ctx context.Context, id int64, status domain.SubmissionStatus) (domain.Application, error) {
	updated, ok := s.catalog.Applications.Update(ctx, id, domain.Patch{"status": string(status)})
	if !ok {
		return domain.Application{}, fmt.Errorf("application %d: %w", id, ErrNotFound)
	}
	s.log.Info("application decided", "application", id, "status", string(status))
	return updated, nil
}

func contact(name, email string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(email)); err != nil {
		return fmt.Errorf("%w: email %q", ErrInvalid, email)
	}
	return nil
}
