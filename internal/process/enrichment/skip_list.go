package enrichment

import (
	"github.com/lueurxax/feed-digest/internal/core/links"
)

// defaultSkipHosts render their content with JavaScript, so a plain fetch
// returns an empty shell or a login wall. Items from them keep their snippet.
var defaultSkipHosts = []string{
	// Twitter/X
	"twitter.com",
	"x.com",
	"t.co",

	// Facebook/Meta
	"facebook.com",
	"fb.com",
	"instagram.com",
	"threads.net",

	// Video platforms
	"youtube.com",
	"youtu.be",
	"tiktok.com",
	"vimeo.com",

	// Professional/Business social
	"linkedin.com",

	// Messaging platforms
	"t.me",
	"discord.com",
}

// SkipList matches URLs whose hosts are never fetched.
type SkipList struct {
	hosts []string
}

// NewSkipList returns the default skip-list extended with extra hosts.
func NewSkipList(extra []string) *SkipList {
	hosts := make([]string, 0, len(defaultSkipHosts)+len(extra))
	hosts = append(hosts, defaultSkipHosts...)

	for _, host := range extra {
		if host != "" {
			hosts = append(hosts, host)
		}
	}

	return &SkipList{hosts: hosts}
}

// Skips reports whether rawURL points at a skipped host or one of its subdomains.
func (s *SkipList) Skips(rawURL string) bool {
	host := links.Host(rawURL)
	if host == "" {
		return false
	}

	for _, skipped := range s.hosts {
		if links.HostMatches(host, skipped) {
			return true
		}
	}

	return false
}
