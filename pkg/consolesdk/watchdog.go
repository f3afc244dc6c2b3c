package consolesdk

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"time"
)

const (
	// DefaultPollInterval is how often the watchdog re-observes the session.
	DefaultPollInterval = 30 * time.Second

	// DefaultLoginPath is where unauthenticated users are redirected.
	DefaultLoginPath = "/login"
)

// State classifies the observed session for rendering purposes.
type State int

const (
	// StateNormal renders children unmodified.
	StateNormal State = iota
	// StateRefreshing shows a non-blocking indicator while the console
	// refreshes the backend access token; children keep rendering.
	StateRefreshing
	// StateExpired blocks the view until the user re-authenticates. Sticky
	// failures never auto-recover.
	StateExpired
	// StateUnauthenticated redirects to the login view, unless the user is
	// already on it.
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateNormal:
		return "normal"
	case StateRefreshing:
		return "refreshing"
	case StateExpired:
		return "expired"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// Snapshot is one observation of the session.
type Snapshot struct {
	// State drives what the dashboard renders around its children.
	State State

	// Session is the observation the state was derived from.
	Session Session

	// RedirectURL is the login redirect carrying the origin path as a
	// callbackUrl parameter. Set only when State is StateUnauthenticated
	// and the user is not already on the login view.
	RedirectURL string

	// ExpiresIn is the remaining token lifetime at observation time; zero
	// for anonymous sessions, negative once past expiry.
	ExpiresIn time.Duration

	// ObservedAt is when this observation was taken.
	ObservedAt time.Time
}

// Source yields the current session; *Client satisfies it. A nil session
// without an error is treated as a poll failure.
type Source interface {
	GetSession(ctx context.Context) (*Session, error)
}

// Watchdog polls the session on a fixed interval and classifies every
// observation onto the {Normal, Refreshing, Expired, Unauthenticated} state
// machine. Its lifetime is bound to the context given to Run: cancelling
// the owning view's context stops the polling with no dangling timers.
type Watchdog struct {
	// Source yields session observations; a *Client is the usual source.
	Source Source

	// Interval between polls; zero means DefaultPollInterval.
	Interval time.Duration

	// CurrentPath reports the view the user is on, used to build the login
	// redirect and to suppress it on the login view itself. Nil omits the
	// callbackUrl parameter.
	CurrentPath func() string

	// LoginPath is where unauthenticated users are sent; zero means
	// DefaultLoginPath.
	LoginPath string

	// OnUpdate receives every successful observation. Called from the
	// polling goroutine; keep it fast or hand off.
	OnUpdate func(Snapshot)

	// OnError receives poll failures. The previous snapshot stays current,
	// so a transient console outage does not bounce the rendered state.
	OnError func(error)

	mu   sync.Mutex
	last Snapshot
	seen bool
}

// Run observes the session once immediately and then on every tick until
// ctx is cancelled. Polls run serially on this goroutine and the ticker
// drops ticks while a slow poll is in flight, so checks never overlap.
func (w *Watchdog) Run(ctx context.Context) error {
	if w.Source == nil {
		return errors.New("consolesdk: watchdog requires a Source")
	}

	ticker := time.NewTicker(w.interval())
	defer ticker.Stop()

	w.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

// Last returns the most recent snapshot and whether one exists yet.
func (w *Watchdog) Last() (Snapshot, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last, w.seen
}

func (w *Watchdog) poll(ctx context.Context) {
	sess, err := w.Source.GetSession(ctx)
	if err == nil && sess == nil {
		// A Source yields a session or an error, never neither.
		err = errors.New("consolesdk: Source returned a nil session")
	}
	if err != nil {
		if ctx.Err() != nil {
			// Shutting down, not a poll failure.
			return
		}
		if w.OnError != nil {
			w.OnError(err)
		}
		return
	}

	snap := w.classify(*sess)

	w.mu.Lock()
	w.last = snap
	w.seen = true
	w.mu.Unlock()

	if w.OnUpdate != nil {
		w.OnUpdate(snap)
	}
}

// classify maps one observation onto the state machine. A sticky failure
// outranks the refreshing indicator; no session at all outranks both.
func (w *Watchdog) classify(sess Session) Snapshot {
	snap := Snapshot{
		Session:    sess,
		ObservedAt: time.Now(),
	}

	if sess.Authenticated {
		snap.ExpiresIn = time.Until(sess.ExpiresAt)
	}

	switch {
	case !sess.Authenticated:
		snap.State = StateUnauthenticated
		snap.RedirectURL = w.redirectURL()
	case sess.Failed():
		snap.State = StateExpired
	case sess.Refreshing:
		snap.State = StateRefreshing
	default:
		snap.State = StateNormal
	}

	return snap
}

// redirectURL builds the login redirect for the current view. Empty when
// the user is already on the login view.
func (w *Watchdog) redirectURL() string {
	path := ""
	if w.CurrentPath != nil {
		path = w.CurrentPath()
	}

	login := w.loginPath()
	switch path {
	case login:
		return ""
	case "":
		return login
	default:
		return login + "?callbackUrl=" + url.QueryEscape(path)
	}
}

func (w *Watchdog) interval() time.Duration {
	if w.Interval > 0 {
		return w.Interval
	}
	return DefaultPollInterval
}

func (w *Watchdog) loginPath() string {
	if w.LoginPath != "" {
		return w.LoginPath
	}
	return DefaultLoginPath
}
