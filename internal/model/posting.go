package model

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Category is the kind of opening a subscriber is looking for.
type Category string

const (
	CategoryJob        Category = "Job"
	CategoryInternship Category = "Internship"
)

// Categories lists every valid category in display order.
var Categories = []Category{CategoryInternship, CategoryJob}

// Mode is where the work happens.
type Mode string

const (
	ModeRemote Mode = "Remote"
	ModeOnsite Mode = "Onsite"
	// ModeHybrid is the wildcard mode: it matches any mode on the other side.
	ModeHybrid Mode = "Hybrid"
)

// WildcardMode is the mode that matches every other mode.
const WildcardMode = ModeHybrid

// Modes lists every valid mode in display order.
var Modes = []Mode{ModeRemote, ModeOnsite, ModeHybrid}

// ParseCategory resolves a category name case-insensitively.
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if strings.EqualFold(s, string(c)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: category %q", ErrUnknownValue, s)
}

// ParseMode resolves a mode name case-insensitively.
func ParseMode(s string) (Mode, error) {
	for _, m := range Modes {
		if strings.EqualFold(s, string(m)) {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: mode %q", ErrUnknownValue, s)
}

// ModeMatches reports whether a subscriber mode accepts a posting mode.
// Equal modes match, and the wildcard mode on either side matches anything.
func ModeMatches(want, got Mode) bool {
	return want == got || want == WildcardMode || got == WildcardMode
}

// Posting is a single job or internship listing normalized from a source.
// (Title, Organization, Source) identifies a posting.
type Posting struct {
	ID           int64
	Title        string   `validate:"required,max=500"`
	Organization string   `validate:"required,max=255"`
	Location     string   `validate:"max=255"`
	Category     Category `validate:"required,oneof=Job Internship"`
	Mode         Mode     `validate:"required,oneof=Remote Onsite Hybrid"`
	Topic        string   `validate:"required,max=255"`
	URL          string   `validate:"omitempty,url,max=1000"`
	Description  string
	Source       string `validate:"required,max=50"`
	Freshness    string `validate:"max=100"` // as reported by the source, e.g. "Recently"
	AcquiredAt   time.Time
}

// Key returns the uniqueness key of the posting.
func (p Posting) Key() string {
	return p.Title + "\x00" + p.Organization + "\x00" + p.Source
}

// Subscriber is a user with persisted preferences.
type Subscriber struct {
	ID        int64 // chat id on the messaging gateway
	Username  string
	FirstName string
	Category  Category
	Mode      Mode
	Topics    []string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MaxTopics is the largest number of topics a subscriber may follow.
const MaxTopics = 3

// Validate checks the subscriber's preferences.
func (s Subscriber) Validate() error {
	if s.ID == 0 {
		return fmt.Errorf("%w: subscriber id is required", ErrInvalidSubscriber)
	}
	if !slices.Contains(Categories, s.Category) {
		return fmt.Errorf("%w: category %q", ErrInvalidSubscriber, s.Category)
	}
	if !slices.Contains(Modes, s.Mode) {
		return fmt.Errorf("%w: mode %q", ErrInvalidSubscriber, s.Mode)
	}
	if len(s.Topics) == 0 || len(s.Topics) > MaxTopics {
		return fmt.Errorf("%w: need 1-%d topics, got %d", ErrInvalidSubscriber, MaxTopics, len(s.Topics))
	}
	seen := make(map[string]bool, len(s.Topics))
	for _, t := range s.Topics {
		if strings.TrimSpace(t) == "" {
			return fmt.Errorf("%w: empty topic", ErrInvalidSubscriber)
		}
		if seen[t] {
			return fmt.Errorf("%w: duplicate topic %q", ErrInvalidSubscriber, t)
		}
		seen[t] = true
	}
	return nil
}

// DeliveryKey identifies a (subscriber, posting) pair in the sent ledger.
type DeliveryKey struct {
	SubscriberID int64
	PostingID    int64
}

// Combination is a derived preference group: one per (category, mode) of
// active subscribers with the union of their topics.
type Combination struct {
	Category Category
	Mode     Mode
	Topics   []string
}

func (c Combination) String() string {
	return fmt.Sprintf("%s/%s [%s]", c.Category, c.Mode, strings.Join(c.Topics, ", "))
}

// MessageKind distinguishes the messages a Gateway renders.
type MessageKind int

const (
	MessageSummary MessageKind = iota
	MessagePosting
	MessageText // operator broadcast
)

// Message is handed to a Gateway. Rendering is the gateway's concern.
type Message struct {
	Kind    MessageKind
	Count   int      // number of postings announced, for summaries
	Posting *Posting // set for posting messages
	Text    string   // set for text messages
}

// Harvester acquires postings for one (category, mode, topic) request.
type Harvester interface {
	Fetch(ctx context.Context, category Category, mode Mode, topic string) ([]Posting, error)
}

// Gateway delivers a message to a subscriber.
type Gateway interface {
	Send(ctx context.Context, subscriberID int64, msg Message) error
}
