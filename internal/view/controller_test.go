package view

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"teamdir.dev/internal/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type stubSource struct {
	dataset *models.Dataset
	err     error
	calls   int
}

func (s *stubSource) Load(ctx context.Context, source string) (*models.Dataset, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.dataset, nil
}

func acme() *models.Dataset {
	return &models.Dataset{
		Project: models.Project{Name: "Acme", Description: "Rockets"},
		Collaborators: []models.Collaborator{
			{
				Name:   "Ada",
				Role:   "Engineer",
				Bio:    "Writes compilers",
				Avatar: "ada.png",
				Skills: []string{"Go", "Rust"},
				Social: models.Social{GitHub: "g", LinkedIn: "l", Twitter: "t"},
			},
		},
	}
}

func team() *models.Dataset {
	return &models.Dataset{
		Project: models.Project{Name: "Acme"},
		Collaborators: []models.Collaborator{
			{Name: "Ada", Role: "Engineer", Skills: []string{"Go", "Go"}},
			{Name: "Grace", Role: "Designer"},
			{Name: "Linus", Role: "Senior Engineer"},
		},
	}
}

func started(t *testing.T, ds *models.Dataset, mutate func(*Options)) (*Controller, *ManualScheduler) {
	t.Helper()
	opts := DefaultOptions()
	if mutate != nil {
		mutate(&opts)
	}
	sched := NewManualScheduler()
	c := NewController(opts, sched, nil)
	require.NoError(t, c.Start(context.Background(), &stubSource{dataset: ds}, "data.json"))
	return c, sched
}

func TestStart_AcmeScenario(t *testing.T) {
	c, _ := started(t, acme(), nil)
	v := c.Snapshot()

	assert.Equal(t, StatusReady, v.Status)
	assert.Equal(t, "Acme", v.Project.Name)
	require.Len(t, v.Cards, 1)

	card := v.Cards[0]
	assert.Equal(t, "Ada", card.Name)
	assert.Equal(t, "engineer", card.DataRole)
	assert.Equal(t, []string{"Go", "Rust"}, card.Skills)
	assert.Equal(t, []SocialLink{
		{Network: "github", Title: "GitHub", URL: "g"},
		{Network: "linkedin", Title: "LinkedIn", URL: "l"},
		{Network: "twitter", Title: "Twitter", URL: "t"},
	}, card.Social)
}

func TestStart_LoadFailure(t *testing.T) {
	src := &stubSource{err: errors.New("boom")}
	c := NewController(DefaultOptions(), NewManualScheduler(), nil)

	err := c.Start(context.Background(), src, "data.json")
	require.Error(t, err)

	v := c.Snapshot()
	assert.Equal(t, StatusFailed, v.Status)
	assert.Equal(t, LoadErrorMessage, v.Message)
	assert.Empty(t, v.Cards)
	assert.Empty(t, v.Controls)
	assert.ErrorIs(t, c.Activate(FilterAll), ErrNotReady)
}

func TestRenderAll_OneCardPerCollaboratorInOrder(t *testing.T) {
	c, _ := started(t, team(), nil)
	v := c.Snapshot()

	require.Len(t, v.Cards, 3)
	for i, name := range []string{"Ada", "Grace", "Linus"} {
		assert.Equal(t, name, v.Cards[i].Name)
		assert.Equal(t, i, v.Cards[i].Index)
		assert.Equal(t, time.Duration(i)*100*time.Millisecond, v.Cards[i].AnimationDelay)
		assert.Equal(t, restingStyle(), v.Cards[i].Style)
	}
	assert.Equal(t, []string{"Go", "Go"}, v.Cards[0].Skills)
}

func TestRenderAll_Rebuilds(t *testing.T) {
	c, sched := started(t, team(), nil)
	require.NoError(t, c.Activate("designer"))

	c.RenderAll(acme().Collaborators)
	sched.Advance(time.Second)

	v := c.Snapshot()
	require.Len(t, v.Cards, 1)
	assert.Equal(t, restingStyle(), v.Cards[0].Style)
	assert.Zero(t, sched.Pending())
}

func TestRenderAll_Empty(t *testing.T) {
	c, _ := started(t, &models.Dataset{}, nil)
	v := c.Snapshot()

	assert.Equal(t, StatusReady, v.Status)
	assert.Empty(t, v.Cards)
	assert.NoError(t, c.Activate(FilterAll))
}

func TestWireFilters(t *testing.T) {
	t.Run("derived from observed roles", func(t *testing.T) {
		c, _ := started(t, team(), nil)
		v := c.Snapshot()

		var values []string
		for _, ctl := range v.Controls {
			values = append(values, ctl.Value)
		}
		assert.Equal(t, []string{"all", "engineer", "designer", "senior engineer"}, values)
		assert.True(t, v.Controls[0].Active)
		assert.Equal(t, FilterAll, v.Filter)
	})

	t.Run("configured values are lower-cased and deduplicated", func(t *testing.T) {
		c, _ := started(t, team(), func(o *Options) {
			o.Filters = []string{"All", "Engin", "engin", " Designer "}
		})
		v := c.Snapshot()

		require.Len(t, v.Controls, 3)
		assert.Equal(t, "engin", v.Controls[1].Value)
		assert.Equal(t, "Engin", v.Controls[1].Label)
		assert.Equal(t, "designer", v.Controls[2].Value)
	})

	t.Run("labels keep multi-byte first letters intact", func(t *testing.T) {
		ds := &models.Dataset{Collaborators: []models.Collaborator{
			{Name: "Amélie", Role: "Éditeur"},
			{Name: "Chen", Role: "ürün"},
		}}
		c, _ := started(t, ds, nil)
		v := c.Snapshot()

		require.Len(t, v.Controls, 3)
		assert.Equal(t, "éditeur", v.Controls[1].Value)
		assert.Equal(t, "Éditeur", v.Controls[1].Label)
		assert.Equal(t, "Ürün", v.Controls[2].Label)
		assert.True(t, utf8.ValidString(v.Controls[1].Label))
	})
}

func TestCardJSON(t *testing.T) {
	c, _ := started(t, team(), nil)
	card := c.Snapshot().Cards[2]

	data, err := json.Marshal(card)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"animation_delay_ms":200`)
	assert.Contains(t, string(data), `"data_role":"senior engineer"`)

	var decoded Card
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, 200*time.Millisecond, decoded.AnimationDelay)
	assert.Equal(t, card, decoded)
}

func TestActivate_SubstringMatch(t *testing.T) {
	c, sched := started(t, team(), func(o *Options) {
		o.Filters = []string{"engin", "designer"}
	})

	require.NoError(t, c.Activate("engin"))

	v := c.Snapshot()
	assert.Equal(t, "engin", v.Filter)
	assert.False(t, v.Controls[0].Active)
	assert.True(t, v.Controls[1].Active)
	assert.False(t, v.Controls[2].Active)

	// Grace fades out first but still occupies layout
	assert.Equal(t, 0.0, v.Cards[1].Style.Opacity)
	assert.Equal(t, 20, v.Cards[1].Style.TranslateY)
	assert.Equal(t, DisplayBlock, v.Cards[1].Style.Display)

	sched.Advance(300 * time.Millisecond)
	v = c.Snapshot()

	assert.Equal(t, DisplayBlock, v.Cards[0].Style.Display)
	assert.Equal(t, DisplayNone, v.Cards[1].Style.Display)
	assert.Equal(t, DisplayBlock, v.Cards[2].Style.Display)
	assert.Equal(t, 2, v.VisibleCount())
	assert.Len(t, v.Cards, 3)
}

func TestActivate_AllRestoresEveryCard(t *testing.T) {
	c, sched := started(t, team(), nil)

	require.NoError(t, c.Activate("designer"))
	sched.Advance(time.Second)
	require.Equal(t, 1, c.Snapshot().VisibleCount())

	require.NoError(t, c.Activate(FilterAll))
	v := c.Snapshot()
	assert.Equal(t, 3, v.VisibleCount())

	sched.Advance(10 * time.Millisecond)
	for _, card := range c.Snapshot().Cards {
		assert.Equal(t, restingStyle(), card.Style)
	}
}

func TestActivate_NewerShowWinsOverPendingHide(t *testing.T) {
	c, sched := started(t, team(), nil)

	require.NoError(t, c.Activate("designer"))
	sched.Advance(100 * time.Millisecond)
	require.NoError(t, c.Activate(FilterAll))
	sched.Advance(time.Second)

	for _, card := range c.Snapshot().Cards {
		assert.Equal(t, DisplayBlock, card.Style.Display, card.Name)
		assert.Equal(t, 1.0, card.Style.Opacity, card.Name)
	}
	assert.Zero(t, sched.Pending())
}

func TestActivate_Errors(t *testing.T) {
	c, _ := started(t, team(), nil)

	err := c.Activate("astronaut")
	assert.ErrorIs(t, err, ErrUnknownFilter)
	assert.Equal(t, FilterAll, c.Snapshot().Filter)

	fresh := NewController(DefaultOptions(), NewManualScheduler(), nil)
	assert.ErrorIs(t, fresh.Activate(FilterAll), ErrNotReady)
}

func TestPress(t *testing.T) {
	c, sched := started(t, team(), nil)

	require.NoError(t, c.Press(1))
	assert.Equal(t, 0.98, c.Snapshot().Cards[1].Style.Scale)

	sched.Advance(150 * time.Millisecond)
	require.NoError(t, c.Press(1))
	sched.Advance(100 * time.Millisecond)
	assert.Equal(t, 0.98, c.Snapshot().Cards[1].Style.Scale, "second press restarts the revert")

	sched.Advance(100 * time.Millisecond)
	assert.Equal(t, 1.0, c.Snapshot().Cards[1].Style.Scale)

	assert.ErrorIs(t, c.Press(3), ErrNoSuchCard)
	assert.ErrorIs(t, c.Press(-1), ErrNoSuchCard)
}

func TestPress_IndependentOfFilter(t *testing.T) {
	c, sched := started(t, team(), nil)

	require.NoError(t, c.Press(0))
	require.NoError(t, c.Activate("designer"))
	sched.Advance(time.Second)

	card := c.Snapshot().Cards[0]
	assert.Equal(t, 1.0, card.Style.Scale)
	assert.Equal(t, DisplayNone, card.Style.Display)
}

func TestScrollTo(t *testing.T) {
	c, _ := started(t, team(), nil)

	intent, ok := c.ScrollTo("#team")
	require.True(t, ok)
	assert.Equal(t, ScrollIntent{Target: "team", Behavior: "smooth", Block: "start"}, intent)

	for _, href := range []string{"#nowhere", "#", "team", ""} {
		_, ok := c.ScrollTo(href)
		assert.False(t, ok, href)
	}
}

func TestClose_IgnoresPendingEffects(t *testing.T) {
	c, sched := started(t, team(), nil)

	require.NoError(t, c.Activate("designer"))
	c.Close()
	sched.Advance(time.Second)

	assert.Equal(t, DisplayBlock, c.Snapshot().Cards[0].Style.Display)
}

func TestTimerScheduler(t *testing.T) {
	c := NewController(DefaultOptions(), TimerScheduler, nil)
	require.NoError(t, c.Start(context.Background(), &stubSource{dataset: team()}, "data.json"))
	require.NoError(t, c.Activate("designer"))

	require.Eventually(t, func() bool {
		return c.Snapshot().VisibleCount() == 1
	}, 2*time.Second, 10*time.Millisecond)
	c.Close()
}

func TestMatches(t *testing.T) {
	assert.True(t, Matches("engineer", "engin"))
	assert.True(t, Matches("designer", FilterAll))
	assert.False(t, Matches("designer", "engin"))
}

func TestRenderPage(t *testing.T) {
	c, _ := started(t, acme(), nil)

	var buf bytes.Buffer
	require.NoError(t, RenderPage(&buf, c.Snapshot()))
	html := buf.String()

	assert.Contains(t, html, `<h1 id="projectName">Acme</h1>`)
	assert.Contains(t, html, `data-role="engineer"`)
	assert.Contains(t, html, `<h5 class="card-title">Ada</h5>`)
	assert.Equal(t, 1, strings.Count(html, `class="card collaborator-card"`))
	assert.Equal(t, 2, strings.Count(html, `class="skill-badge"`))

	gh := strings.Index(html, `class="social-github"`)
	li := strings.Index(html, `class="social-linkedin"`)
	tw := strings.Index(html, `class="social-twitter"`)
	assert.True(t, gh > 0 && gh < li && li < tw)
	assert.Contains(t, html, `style="display: none;"`)
}

func TestRenderPage_Failed(t *testing.T) {
	c := NewController(DefaultOptions(), NewManualScheduler(), nil)
	_ = c.Start(context.Background(), &stubSource{err: fmt.Errorf("nope")}, "data.json")

	var buf bytes.Buffer
	require.NoError(t, RenderPage(&buf, c.Snapshot()))
	assert.Contains(t, buf.String(), LoadErrorMessage)
	assert.NotContains(t, buf.String(), "collaborator-card")
}

func TestRenderPage_EscapesText(t *testing.T) {
	ds := acme()
	ds.Collaborators[0].Name = "<script>x</script>"

	c, _ := started(t, ds, nil)
	var buf bytes.Buffer
	require.NoError(t, RenderPage(&buf, c.Snapshot()))
	assert.NotContains(t, buf.String(), "<script>x</script>")
}
