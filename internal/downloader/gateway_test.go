package downloader

import (
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"linkgarden/internal/domain"
)

func testLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.ErrorLevel)
	return log
}

func TestGateway_DefaultsToSkip(t *testing.T) {
	g := NewGateway(testLogger())
	link := domain.NewLink("https://example.com/a", "manual", "")

	assert.False(t, g.Decide(link, LimitTimeout))
	assert.False(t, g.Decide(link, LimitImageCount))
}

func TestGateway_ResolverAnswers(t *testing.T) {
	g := NewGateway(testLogger())
	link := domain.NewLink("https://example.com/a", "manual", "")

	var gotKind LimitKind
	g.SetResolver(func(l *domain.Link, kind LimitKind) bool {
		gotKind = kind
		return true
	})

	assert.True(t, g.Decide(link, LimitFileSize))
	assert.Equal(t, LimitFileSize, gotKind)
}

func TestGateway_LastRegistrationWins(t *testing.T) {
	g := NewGateway(testLogger())
	link := domain.NewLink("https://example.com/a", "manual", "")

	g.SetResolver(func(*domain.Link, LimitKind) bool { return true })
	g.SetResolver(func(*domain.Link, LimitKind) bool { return false })
	assert.False(t, g.Decide(link, LimitTimeout))

	g.SetResolver(nil)
	assert.False(t, g.Decide(link, LimitTimeout))
}

func TestGateway_PanickingResolverMeansSkip(t *testing.T) {
	g := NewGateway(testLogger())
	link := domain.NewLink("https://example.com/a", "manual", "")

	g.SetResolver(func(*domain.Link, LimitKind) bool {
		panic("resolver broke")
	})

	assert.NotPanics(t, func() {
		assert.False(t, g.Decide(link, LimitTimeout))
	})
}
