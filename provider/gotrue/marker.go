package gotrue

import (
	"net/url"
	"strings"

	"github.com/goliatone/go-session"
)

// fragment keys that mean a provider callback is waiting to be consumed.
var callbackKeys = []string{"access_token", "refresh_token", "error_code", "type"}

// FragmentMarker detects provider callback tokens in a URL fragment
// (e.g. https://app.example.com/#access_token=...&type=signup). Strip invokes
// the supplied callback so the host application can rewrite the visible
// location and avoid re-processing the tokens on reload.
type FragmentMarker struct {
	pending bool
	strip   func()
}

var _ session.CallbackMarker = (*FragmentMarker)(nil)

// NewFragmentMarker inspects rawURL for callback tokens.
func NewFragmentMarker(rawURL string, strip func()) *FragmentMarker {
	return &FragmentMarker{
		pending: fragmentHasCallback(rawURL),
		strip:   strip,
	}
}

func (m *FragmentMarker) Pending() bool {
	return m != nil && m.pending
}

func (m *FragmentMarker) Strip() {
	if m == nil {
		return
	}
	m.pending = false
	if m.strip != nil {
		m.strip()
	}
}

func fragmentHasCallback(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	fragment := parsed.Fragment
	if fragment == "" {
		return false
	}

	values, err := url.ParseQuery(fragment)
	if err != nil {
		// Fall back to substring checks for fragments that are not
		// well-formed query strings.
		for _, key := range callbackKeys {
			if strings.Contains(fragment, key+"=") {
				return true
			}
		}
		return false
	}

	for _, key := range callbackKeys {
		if values.Get(key) != "" {
			return true
		}
	}

	return false
}
