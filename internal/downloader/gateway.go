package downloader

import (
	"sync"

	"github.com/sirupsen/logrus"

	"linkgarden/internal/domain"
)

// LimitKind names the resource ceiling that was breached.
type LimitKind string

const (
	LimitTimeout    LimitKind = "timeout"
	LimitImageCount LimitKind = "image_count"
	LimitFileSize   LimitKind = "file_size"
)

// Resolver answers a limit breach: true continues the item, false skips it.
type Resolver func(link *domain.Link, kind LimitKind) bool

// Gateway is the arbitration point for limit breaches. The worker is the
// only caller of Decide, so at most one decision is outstanding at a time;
// Decide blocks the worker until the resolver returns.
type Gateway struct {
	log logrus.FieldLogger

	mu       sync.Mutex
	resolver Resolver
}

// NewGateway creates a gateway with no resolver registered.
func NewGateway(logger logrus.FieldLogger) *Gateway {
	return &Gateway{log: logger.WithField("component", "gateway")}
}

// SetResolver registers the decision callback. Single-valued: the last
// registration wins. A nil resolver restores the default-deny behavior.
func (g *Gateway) SetResolver(r Resolver) {
	g.mu.Lock()
	g.resolver = r
	g.mu.Unlock()
}

// Decide asks the resolver whether to continue past a breach. With no
// resolver registered the answer is always skip. A panicking resolver is
// logged and treated as skip.
func (g *Gateway) Decide(link *domain.Link, kind LimitKind) (cont bool) {
	g.mu.Lock()
	resolver := g.resolver
	g.mu.Unlock()

	log := g.log.WithFields(logrus.Fields{"url": link.URL, "limit": kind})
	if resolver == nil {
		log.Warn("Limit exceeded with no resolver registered, skipping by default")
		return false
	}

	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("Resolver panicked, treating as skip")
			cont = false
		}
	}()
	return resolver(link, kind)
}
