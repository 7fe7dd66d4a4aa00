package submissions

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"shelterdb/internal/core"
	"shelterdb/internal/fixture"
	"shelterdb/internal/persistence"
	"shelterdb/pkg/domain"
)

var fixedNow = time.Date(2024, 10, 1, 9, 30, 0, 0, time.FixedZone("MSK", 3*3600))

func newService(t *testing.T) (*Service, *core.Catalog) {
	t.Helper()
	cat := core.NewCatalog(persistence.NewMemory(0), fixture.NewEmbedded())
	n := 0
	svc := New(cat,
		WithClock(core.ClockFunc(func() time.Time { return fixedNow })),
		WithReferenceGenerator(func() string { n++; return "ref-" + string(rune('0'+n)) }),
		WithLogger(nil),
	)
	return svc, cat
}

func TestSubmitAdoption(t *testing.T) {
	ctx := context.Background()
	svc, cat := newService(t)

	app, err := svc.SubmitAdoption(ctx, AdoptionForm{AnimalID: 1, Name: " Olga ", Email: "olga@example.org", Message: "Hi"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	want := domain.Application{
		ID: 3, AnimalID: domain.Ptr[int64](1), Name: "Olga", Email: "olga@example.org", Message: "Hi",
		Status: domain.StatusPending, Reference: "ref-1", SubmittedAt: "2024-10-01T06:30:00Z",
	}
	if diff := cmp.Diff(want, app); diff != "" {
		t.Fatalf("application mismatch (-want +got):\n%s", diff)
	}
	if got, ok := cat.Applications.GetByID(ctx, 3); !ok || got.Reference != "ref-1" {
		t.Fatalf("application not stored: %+v %v", got, ok)
	}
}

func TestSubmitAdoptionRejects(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	cases := []struct {
		name string
		form AdoptionForm
		want error
	}{
		{name: "missing name", form: AdoptionForm{AnimalID: 1, Email: "a@b.c"}, want: ErrInvalid},
		{name: "bad email", form: AdoptionForm{AnimalID: 1, Name: "A", Email: "nope"}, want: ErrInvalid},
		{name: "missing animal id", form: AdoptionForm{Name: "A", Email: "a@b.c"}, want: ErrInvalid},
		{name: "unknown animal", form: AdoptionForm{AnimalID: 99, Name: "A", Email: "a@b.c"}, want: ErrNotFound},
		{name: "adopted animal", form: AdoptionForm{AnimalID: 5, Name: "A", Email: "a@b.c"}, want: ErrAnimalUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.SubmitAdoption(ctx, tc.form); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestSubmitDonationAndVolunteer(t *testing.T) {
	ctx := context.Background()
	svc, cat := newService(t)

	if _, err := svc.SubmitDonation(ctx, DonationForm{Name: "A", Email: "a@b.c"}); !errors.Is(err, ErrInvalid) {
		t.Fatalf("zero amount should be invalid, got %v", err)
	}
	d, err := svc.SubmitDonation(ctx, DonationForm{Name: "Petr", Email: "petr@example.org", Amount: 500, Currency: "rub", Purpose: "food"})
	if err != nil {
		t.Fatalf("donation: %v", err)
	}
	if d.Status != domain.StatusPending || d.Currency != "RUB" || d.Reference == "" || d.CreatedAt == "" {
		t.Fatalf("unexpected donation %+v", d)
	}
	if _, ok := cat.Donations.GetByID(ctx, d.ID); !ok {
		t.Fatalf("donation not stored")
	}

	v, err := svc.SubmitVolunteer(ctx, VolunteerForm{Name: "Masha", Email: "masha@example.org", Skills: []string{"walking", "grooming"}})
	if err != nil {
		t.Fatalf("volunteer: %v", err)
	}
	if v.Status != domain.StatusPending || v.JoinedAt != "2024-10-01T06:30:00Z" {
		t.Fatalf("unexpected volunteer %+v", v)
	}
	if diff := cmp.Diff([]string{"walking", "grooming"}, v.Skills); diff != "" {
		t.Fatalf("skills mismatch: %s", diff)
	}
}

func TestApproveAdoptsAnimalAndRejectsCompetitors(t *testing.T) {
	ctx := context.Background()
	svc, cat := newService(t)

	// Application 2 (bundled) is pending for Murka; add a competing one.
	competitor, err := svc.SubmitAdoption(ctx, AdoptionForm{AnimalID: 2, Name: "Oleg", Email: "oleg@example.org"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	app, err := svc.Approve(ctx, 2)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if app.Status != domain.StatusApproved {
		t.Fatalf("expected approved, got %s", app.Status)
	}
	murka, _ := cat.Animals.GetByID(ctx, 2)
	if murka.Status != domain.AnimalAdopted {
		t.Fatalf("expected Murka adopted, got %s", murka.Status)
	}
	other, _ := cat.Applications.GetByID(ctx, competitor.ID)
	if other.Status != domain.StatusRejected {
		t.Fatalf("competing application should be rejected, got %s", other.Status)
	}
	if _, err := svc.Approve(ctx, 2); !errors.Is(err, ErrDecided) {
		t.Fatalf("second decision should fail, got %v", err)
	}
	if _, err := svc.SubmitAdoption(ctx, AdoptionForm{AnimalID: 2, Name: "Late", Email: "late@example.org"}); !errors.Is(err, ErrAnimalUnavailable) {
		t.Fatalf("adopted animal should refuse applications, got %v", err)
	}
}

func TestConcurrentApprovalsAdoptOnce(t *testing.T) {
	ctx := context.Background()
	for round := 0; round < 20; round++ {
		svc, cat := newService(t)
		competitor, err := svc.SubmitAdoption(ctx, AdoptionForm{AnimalID: 2, Name: "Oleg", Email: "oleg@example.org"})
		if err != nil {
			t.Fatalf("submit: %v", err)
		}

		ids := []int64{2, competitor.ID}
		errs := make([]error, len(ids))
		var wg sync.WaitGroup
		for i, id := range ids {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, errs[i] = svc.Approve(ctx, id)
			}()
		}
		wg.Wait()

		approved := 0
		for i, err := range errs {
			switch {
			case err == nil:
				approved++
			case !errors.Is(err, ErrDecided):
				t.Fatalf("approval of %d: unexpected error %v", ids[i], err)
			}
		}
		if approved != 1 {
			t.Fatalf("round %d: expected exactly one approval, got %d (%v)", round, approved, errs)
		}
		statuses := map[domain.SubmissionStatus]int{}
		for _, id := range ids {
			app, _ := cat.Applications.GetByID(ctx, id)
			statuses[app.Status]++
		}
		if statuses[domain.StatusApproved] != 1 || statuses[domain.StatusRejected] != 1 {
			t.Fatalf("round %d: unexpected statuses %v", round, statuses)
		}
	}
}

func TestApproveRefusesAdoptedAnimal(t *testing.T) {
	ctx := context.Background()
	svc, cat := newService(t)
	if _, ok := cat.Animals.Update(ctx, 2, domain.Patch{"status": string(domain.AnimalAdopted)}); !ok {
		t.Fatalf("seed adopted status")
	}
	if _, err := svc.Approve(ctx, 2); !errors.Is(err, ErrAnimalUnavailable) {
		t.Fatalf("expected unavailable animal, got %v", err)
	}
	if app, _ := cat.Applications.GetByID(ctx, 2); app.Status != domain.StatusPending {
		t.Fatalf("refused approval must leave the application pending, got %s", app.Status)
	}
}

func TestReject(t *testing.T) {
	ctx := context.Background()
	svc, cat := newService(t)

	app, err := svc.Reject(ctx, 2)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if app.Status != domain.StatusRejected {
		t.Fatalf("expected rejected, got %s", app.Status)
	}
	murka, _ := cat.Animals.GetByID(ctx, 2)
	if murka.Status != domain.AnimalAvailable {
		t.Fatalf("rejection must not touch the animal, got %s", murka.Status)
	}
	if _, err := svc.Reject(ctx, 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.Reject(ctx, 1); !errors.Is(err, ErrDecided) {
		t.Fatalf("bundled approved application cannot be rejected, got %v", err)
	}
}

func TestDefaultReferencesAreUUIDs(t *testing.T) {
	ctx := context.Background()
	svc := New(core.NewCatalog(persistence.NewMemory(0), fixture.NewEmbedded()))
	a, err := svc.SubmitVolunteer(ctx, VolunteerForm{Name: "A", Email: "a@example.org"})
	if err != nil {
		t.Fatal(err)
	}
	b, err := svc.SubmitVolunteer(ctx, VolunteerForm{Name: "B", Email: "b@example.org"})
	if err != nil {
		t.Fatal(err)
	}
	if len(a.Reference) != 36 || a.Reference == b.Reference {
		t.Fatalf("expected distinct uuids, got %q %q", a.Reference, b.Reference)
	}
	if diff := cmp.Diff(a, b, cmpopts.IgnoreFields(domain.Volunteer{}, "ID", "Name", "Email", "Reference", "JoinedAt")); diff != "" {
		t.Fatalf("unexpected field differences: %s", diff)
	}
}
