package app

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"github.com/dkeye/chatroom/internal/domain"
)

var (
	emailRe = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	// ten or more digits with at most two separators between neighbours
	phoneRe = regexp.MustCompile(`\+?\d(?:[\s.\-()]{0,2}\d){9,}`)

	// scheme or www prefix, or a bare host ending in an alphabetic TLD
	urlRe = regexp.MustCompile(`(?i)\b(?:https?://|www\.)[^\s<>"']+` +
		`|\b(?:[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?\.)+[a-z]{2,24}\b(?:[/?#][^\s<>"']*)?`)
)

type compiledPolicy struct {
	policy   domain.ModerationPolicy
	words    []string
	patterns []*regexp.Regexp
	domains  []string
}

func compilePolicy(p domain.ModerationPolicy) (*compiledPolicy, error) {
	c := &compiledPolicy{policy: p}
	for _, w := range p.BannedWords {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			c.words = append(c.words, w)
		}
	}
	for _, raw := range p.BannedPatterns {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		re, err := regexp.Compile("(?i)" + raw)
		if err != nil {
			return nil, fmt.Errorf("banned pattern %q: %w", raw, err)
		}
		c.patterns = append(c.patterns, re)
	}
	for _, d := range p.BlockedDomains {
		if d = strings.Trim(strings.ToLower(strings.TrimSpace(d)), "."); d != "" {
			c.domains = append(c.domains, d)
		}
	}
	return c, nil
}

// Moderator applies the content checks of the current policy. Swap replaces
// policy and derived matchers in one pointer store.
type Moderator struct {
	cur atomic.Pointer[compiledPolicy]
}

func NewModerator(p domain.ModerationPolicy) (*Moderator, error) {
	m := &Moderator{}
	if err := m.Swap(p); err != nil {
		return nil, err
	}
	return m, nil
}

// Swap publishes p. On error the previous policy stays in effect.
func (m *Moderator) Swap(p domain.ModerationPolicy) error {
	c, err := compilePolicy(p)
	if err != nil {
		return err
	}
	m.cur.Store(c)
	return nil
}

func (m *Moderator) Policy() domain.ModerationPolicy {
	return m.cur.Load().policy
}

// Check runs, in order: length, personal info, banned terms, url count,
// blocked domains. The first failing check wins.
func (m *Moderator) Check(text string) (domain.ModerationReason, bool) {
	c := m.cur.Load()
	p := c.policy

	if p.MaxLength > 0 && utf8.RuneCountInString(text) > p.MaxLength {
		return domain.ReasonTooLong, false
	}
	if p.BlockPII && containsPII(text) {
		return domain.ReasonPersonalInfo, false
	}
	if c.matchesBanned(text) {
		return domain.ReasonBannedTerm, false
	}
	urls := urlRe.FindAllString(text, -1)
	if p.MaxURLs >= 0 && len(urls) > p.MaxURLs {
		return domain.ReasonTooManyURLs, false
	}
	for _, u := range urls {
		if c.blockedHost(u) {
			return domain.ReasonBlockedDomain, false
		}
	}
	return "", true
}

func containsPII(text string) bool {
	return emailRe.MatchString(text) || phoneRe.MatchString(text)
}

func (c *compiledPolicy) matchesBanned(text string) bool {
	lower := strings.ToLower(text)
	for _, w := range c.words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	for _, re := range c.patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

func (c *compiledPolicy) blockedHost(raw string) bool {
	if len(c.domains) == 0 {
		return false
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	for _, d := range c.domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}
