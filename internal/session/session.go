// Package session owns the page state of each browser session.
package session

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"expensetracker/internal/cache"
	"expensetracker/internal/collection"
	"expensetracker/internal/form"
	"expensetracker/internal/remote"
)

// CookieName is the cookie carrying the session id.
const CookieName = "expense_session"

// Page is the state behind one open expense page: the form and the list.
type Page struct {
	ID         string
	Form       *form.Controller
	Collection *collection.Controller

	loaded atomic.Bool
}

// ClaimInitialLoad reports true exactly once per page. The caller that gets
// true performs the initial refresh.
func (p *Page) ClaimInitialLoad() bool {
	return p.loaded.CompareAndSwap(false, true)
}

// Store keeps pages in an LRU cache keyed by session id.
type Store struct {
	api      remote.ExpenseAPI
	sink     collection.EventSink
	pages    *cache.LRUCache[*Page]
	ttl      time.Duration
	secure   bool
	onChange func(active int)
	newID    func() string
}

type options struct {
	ttl      time.Duration
	max      int
	sink     collection.EventSink
	secure   bool
	onChange func(active int)
}

// Option configures a Store.
type Option func(*options)

// WithTTL sets the idle lifetime of a session.
func WithTTL(d time.Duration) Option {
	return func(o *options) { o.ttl = d }
}

// WithMaxSessions bounds the number of live sessions; the least recently used
// session is dropped first.
func WithMaxSessions(n int) Option {
	return func(o *options) { o.max = n }
}

// WithEventSink forwards confirmed mutations of every page to sink.
func WithEventSink(sink collection.EventSink) Option {
	return func(o *options) { o.sink = sink }
}

// WithSecureCookie marks the session cookie Secure.
func WithSecureCookie(secure bool) Option {
	return func(o *options) { o.secure = secure }
}

// WithActiveObserver calls fn with the live session count after it changes.
func WithActiveObserver(fn func(active int)) Option {
	return func(o *options) { o.onChange = fn }
}

func NewStore(api remote.ExpenseAPI, opts ...Option) *Store {
	o := options{ttl: 12 * time.Hour, max: 1000}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Store{
		api:      api,
		sink:     o.sink,
		ttl:      o.ttl,
		secure:   o.secure,
		onChange: o.onChange,
		newID:    func() string { return uuid.NewString() },
	}
	s.pages = cache.NewLRUCache(o.max, o.ttl, cache.WithEvictHandler(func(string, *Page) {
		s.notify()
	}))
	return s
}

// Get returns the page for id, creating it when id is unknown or expired.
func (s *Store) Get(id string) (page *Page, created bool) {
	page, created = s.pages.GetOrCreate(id, func() *Page { return s.newPage(id) })
	if created {
		s.notify()
	}
	return page, created
}

// Resolve returns the page of the request's session. A missing, malformed or
// expired session id starts a new session and sets its cookie on w.
func (s *Store) Resolve(w http.ResponseWriter, r *http.Request) *Page {
	if c, err := r.Cookie(CookieName); err == nil {
		if _, perr := uuid.Parse(c.Value); perr == nil {
			if page, ok := s.pages.Get(c.Value); ok {
				return page
			}
		}
	}

	page, _ := s.Get(s.newID())
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    page.ID,
		Path:     "/",
		MaxAge:   int(s.ttl.Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return page
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	return s.pages.Size()
}

// Cleaner exposes the underlying cache for periodic expiry sweeps.
func (s *Store) Cleaner() cache.Cleaner {
	return s.pages
}

func (s *Store) newPage(id string) *Page {
	var opts []collection.Option
	if s.sink != nil {
		opts = append(opts, collection.WithEventSink(s.sink))
	}
	return &Page{
		ID:         id,
		Form:       form.New(),
		Collection: collection.New(s.api, opts...),
	}
}

func (s *Store) notify() {
	if s.onChange != nil {
		s.onChange(s.pages.Size())
	}
}
