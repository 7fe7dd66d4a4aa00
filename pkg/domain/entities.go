package domain

// AnimalStatus enumerates the adoption states shown on animal listings.
type AnimalStatus string

// Canonical animal statuses.
const (
	AnimalAvailable AnimalStatus = "available"
	AnimalReserved  AnimalStatus = "reserved"
	AnimalAdopted   AnimalStatus = "adopted"
	AnimalTreatment AnimalStatus = "treatment"
)

// SubmissionStatus tracks the review state of user-submitted forms.
type SubmissionStatus string

// Canonical submission statuses shared by applications, donations and volunteers.
const (
	StatusPending  SubmissionStatus = "pending"
	StatusApproved SubmissionStatus = "approved"
	StatusRejected SubmissionStatus = "rejected"
	StatusReceived SubmissionStatus = "received"
)

// Ptr returns a pointer to v, for filling the optional numeric and boolean
// fields of records. A nil field is absent from the stored document; a
// non-nil one is written even when it holds zero or false.
func Ptr[T any](v T) *T { return &v }

// Animal is a shelter resident listed for adoption.
type Animal struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name,omitempty"`
	Species     string       `json:"species,omitempty"`
	Breed       string       `json:"breed,omitempty"`
	Age         *int         `json:"age,omitempty"`
	Gender      string       `json:"gender,omitempty"`
	Size        string       `json:"size,omitempty"`
	Status      AnimalStatus `json:"status,omitempty"`
	Description string       `json:"description,omitempty"`
	Image       string       `json:"image,omitempty"`
	RoomID      *int64       `json:"roomId,omitempty"`
	ArrivalDate string       `json:"arrivalDate,omitempty"`
	Vaccinated  *bool        `json:"vaccinated,omitempty"`
	Sterilized  *bool        `json:"sterilized,omitempty"`
	Extra       Extra        `json:"-"`
}

// RecordID implements Record.
func (a Animal) RecordID() int64 { return a.ID }

// MarshalJSON preserves unmodelled fields.
func (a Animal) MarshalJSON() ([]byte, error) {
	type plain Animal
	return marshalWithExtra(plain(a), a.Extra)
}

// UnmarshalJSON captures unmodelled fields into Extra.
func (a *Animal) UnmarshalJSON(data []byte) error {
	type plain Animal
	var p plain
	extra, err := unmarshalWithExtra(data, &p)
	if err != nil {
		return err
	}
	*a = Animal(p)
	a.Extra = extra
	return nil
}

// Application is an adoption request submitted for one animal.
type Application struct {
	ID          int64            `json:"id"`
	AnimalID    *int64           `json:"animalId,omitempty"`
	Name        string           `json:"name,omitempty"`
	Email       string           `json:"email,omitempty"`
	Phone       string           `json:"phone,omitempty"`
	Message     string           `json:"message,omitempty"`
	Status      SubmissionStatus `json:"status,omitempty"`
	Reference   string           `json:"reference,omitempty"`
	SubmittedAt string           `json:"submittedAt,omitempty"`
	Extra       Extra            `json:"-"`
}

// RecordID implements Record.
func (a Application) RecordID() int64 { return a.ID }

// ForAnimal reports whether the application asks for the animal with id.
func (a Application) ForAnimal(id int64) bool { return a.AnimalID != nil && *a.AnimalID == id }

// MarshalJSON preserves unmodelled fields.
func (a Application) MarshalJSON() ([]byte, error) {
	type plain Application
	return marshalWithExtra(plain(a), a.Extra)
}

// UnmarshalJSON captures unmodelled fields into Extra.
func (a *Application) UnmarshalJSON(data []byte) error {
	type plain Application
	var p plain
	extra, err := unmarshalWithExtra(data, &p)
	if err != nil {
		return err
	}
	*a = Application(p)
	a.Extra = extra
	return nil
}

// Donation records a pledge made through the donation form. No payment is
// processed; Status only reflects what the form layer reported.
type Donation struct {
	ID        int64            `json:"id"`
	Name      string           `json:"name,omitempty"`
	Email     string           `json:"email,omitempty"`
	Amount    *float64         `json:"amount,omitempty"`
	Currency  string           `json:"currency,omitempty"`
	Purpose   string           `json:"purpose,omitempty"`
	Method    string           `json:"method,omitempty"`
	Status    SubmissionStatus `json:"status,omitempty"`
	Reference string           `json:"reference,omitempty"`
	CreatedAt string           `json:"createdAt,omitempty"`
	Extra     Extra            `json:"-"`
}

// RecordID implements Record.
func (d Donation) RecordID() int64 { return d.ID }

// MarshalJSON preserves unmodelled fields.
func (d Donation) MarshalJSON() ([]byte, error) {
	type plain Donation
	return marshalWithExtra(plain(d), d.Extra)
}

// UnmarshalJSON captures unmodelled fields into Extra.
func (d *Donation) UnmarshalJSON(data []byte) error {
	type plain Donation
	var p plain
	extra, err := unmarshalWithExtra(data, &p)
	if err != nil {
		return err
	}
	*d = Donation(p)
	d.Extra = extra
	return nil
}

// Event is a public shelter event (open day, fair, fundraiser).
type Event struct {
	ID          int64  `json:"id"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Date        string `json:"date,omitempty"`
	Location    string `json:"location,omitempty"`
	Image       string `json:"image,omitempty"`
	Extra       Extra  `json:"-"`
}

// RecordID implements Record.
func (e Event) RecordID() int64 { return e.ID }

// MarshalJSON preserves unmodelled fields.
func (e Event) MarshalJSON() ([]byte, error) {
	type plain Event
	return marshalWithExtra(plain(e), e.Extra)
}

// UnmarshalJSON captures unmodelled fields into Extra.
func (e *Event) UnmarshalJSON(data []byte) error {
	type plain Event
	var p plain
	extra, err := unmarshalWithExtra(data, &p)
	if err != nil {
		return err
	}
	*e = Event(p)
	e.Extra = extra
	return nil
}

// NewsItem is an article on the shelter news page.
type NewsItem struct {
	ID      int64  `json:"id"`
	Title   string `json:"title,omitempty"`
	Content string `json:"content,omitempty"`
	Date    string `json:"date,omitempty"`
	Image   string `json:"image,omitempty"`
	Author  string `json:"author,omitempty"`
	Extra   Extra  `json:"-"`
}

// RecordID implements Record.
func (n NewsItem) RecordID() int64 { return n.ID }

// MarshalJSON preserves unmodelled fields.
func (n NewsItem) MarshalJSON() ([]byte, error) {
	type plain NewsItem
	return marshalWithExtra(plain(n), n.Extra)
}

// UnmarshalJSON captures unmodelled fields into Extra.
func (n *NewsItem) UnmarshalJSON(data []byte) error {
	type plain NewsItem
	var p plain
	extra, err := unmarshalWithExtra(data, &p)
	if err != nil {
		return err
	}
	*n = NewsItem(p)
	n.Extra = extra
	return nil
}

// Room is an enclosure or ward housing animals.
type Room struct {
	ID          int64  `json:"id"`
	Name        string `json:"name,omitempty"`
	Type        string `json:"type,omitempty"`
	Capacity    *int   `json:"capacity,omitempty"`
	Occupied    *int   `json:"occupied,omitempty"`
	Description string `json:"description,omitempty"`
	Extra       Extra  `json:"-"`
}

// RecordID implements Record.
func (r Room) RecordID() int64 { return r.ID }

// MarshalJSON preserves unmodelled fields.
func (r Room) MarshalJSON() ([]byte, error) {
	type plain Room
	return marshalWithExtra(plain(r), r.Extra)
}

// UnmarshalJSON captures unmodelled fields into Extra.
func (r *Room) UnmarshalJSON(data []byte) error {
	type plain Room
	var p plain
	extra, err := unmarshalWithExtra(data, &p)
	if err != nil {
		return err
	}
	*r = Room(p)
	r.Extra = extra
	return nil
}

// Volunteer is a person signed up through the volunteer form.
type Volunteer struct {
	ID           int64            `json:"id"`
	Name         string           `json:"name,omitempty"`
	Email        string           `json:"email,omitempty"`
	Phone        string           `json:"phone,omitempty"`
	Skills       []string         `json:"skills,omitempty"`
	Availability string           `json:"availability,omitempty"`
	Status       SubmissionStatus `json:"status,omitempty"`
	Reference    string           `json:"reference,omitempty"`
	JoinedAt     string           `json:"joinedAt,omitempty"`
	Extra        Extra            `json:"-"`
}

// RecordID implements Record.
func (v Volunteer) RecordID() int64 { return v.ID }

// MarshalJSON preserves unmodelled fields.
func (v Volunteer) MarshalJSON() ([]byte, error) {
	type plain Volunteer
	return marshalWithExtra(plain(v), v.Extra)
}

// UnmarshalJSON captures unmodelled fields into Extra.
func (v *Volunteer) UnmarshalJSON(data []byte) error {
	type plain Volunteer
	var p plain
	extra, err := unmarshalWithExtra(data, &p)
	if err != nil {
		return err
	}
	*v = Volunteer(p)
	v.Extra = extra
	return nil
}
