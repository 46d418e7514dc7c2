package detect

import (
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagecopy/internal/tester"
	"pagecopy/internal/types"
)

const landingPage = `
<nav><a href="/">Home</a></nav>
<header><h1>Site name</h1></header>
<main>
  <h1>Meal planning made simple</h1>
  <h2>Save hours every week</h2>
  <p>Short</p>
  <p>MealMap plans your week of dinners in minutes.</p>
  <ul><li>Fast</li><li>Cheap</li></ul>
  <img src="/img/hero-shot.png?v=2" alt="">
  <a href="#signup">Start free</a>
  <a>No href</a>
  <div class="card"><h3>Plans</h3><p>Weekly plans tailored to you.</p><p>Swap any meal.</p></div>
  <section><div><p>One paragraph here that is long.</p><p>Second paragraph is long too.</p></div></section>
  <div class="cookie-banner"><p>We use cookies to improve things.</p></div>
  <h4>Questions</h4>
  <h4>Questions</h4>
</main>
<footer><p>Copyright notice for the company.</p></footer>
`

func TestDetect_LandingPage(t *testing.T) {
	res, err := New(Classifier{}).Detect(landingPage)
	require.NoError(t, err)

	want := []types.ContentRegion{
		{ID: "meal-planning-made-simple", SemanticType: types.Headline, Label: "Primary Headline 1"},
		{ID: "save-hours-every-week", SemanticType: types.Subheadline, Label: "Subheadline 1"},
		{ID: "mealmap-plans-your-week-of-dinners-in", SemanticType: types.Paragraph, Label: "Mealmap Plans Your Week Of Dinners In"},
		{ID: "fast-cheap", SemanticType: types.List, Label: "Fast Cheap"},
		{ID: "hero-shot", SemanticType: types.Image, Label: "Hero Shot"},
		{ID: "start-free", SemanticType: types.CTA, Label: "Start Free"},
		{ID: "plans-weekly-plans-tailored-to-you-swap", SemanticType: types.Paragraph, Label: "Content Block 1"},
		{ID: "one-paragraph-here-that-is-long-second", SemanticType: types.Paragraph, Label: "Content Block 2"},
		{ID: "questions", SemanticType: types.Subheadline, Label: "Minor Header 1"},
		{ID: "questions-1", SemanticType: types.Subheadline, Label: "Minor Header 2"},
	}
	assert.Equal(t, want, res.Slots)
	tester.Eq(t, strings.Count(res.MarkedHTML, AttrSlot+`="`), len(want))
	assert.NotContains(t, res.MarkedHTML, "<body")
	assert.Contains(t, res.MarkedHTML, `<div class="card" data-slot="plans-weekly-plans-tailored-to-you-swap" data-slot-type="paragraph">`)
}

func TestDetect_AdBannerScenario(t *testing.T) {
	src := `<div class="ad-banner"><p>Buy now</p></div><p>This is long enough real content to qualify.</p>`
	res, err := New(DefaultClassifier()).Detect(src)
	require.NoError(t, err)
	require.Len(t, res.Slots, 1)
	tester.Eq(t, res.Slots[0].SemanticType, types.Paragraph)
	tester.Eq(t, res.Slots[0].ID, "this-is-long-enough-real-content-to")
}

func TestDetect_IsIdempotent(t *testing.T) {
	d := New(DefaultClassifier())
	first, err := d.Detect(landingPage)
	require.NoError(t, err)
	second, err := d.Detect(first.MarkedHTML)
	require.NoError(t, err)

	assert.Equal(t, first.Slots, second.Slots)
	assert.Equal(t, first.MarkedHTML, second.MarkedHTML)
	tester.Eq(t, strings.Count(second.MarkedHTML, AttrSlot+`="`), len(second.Slots), "no duplicate markers")
}

func TestDetect_ClearsStaleMarkers(t *testing.T) {
	src := `<p data-slot="old" data-slot-type="headline">Tiny</p><p data-slot="x">A paragraph that qualifies.</p>`
	res, err := New(DefaultClassifier()).Detect(src)
	require.NoError(t, err)
	require.Len(t, res.Slots, 1)
	assert.NotContains(t, res.MarkedHTML, `"old"`)
	assert.Contains(t, res.MarkedHTML, `data-slot="a-paragraph-that-qualifies"`)
}

func TestDetect_FullDocumentRendersWhole(t *testing.T) {
	src := `<!DOCTYPE html><html><head><title>x</title></head><body><h1>Hello there</h1></body></html>`
	res, err := New(DefaultClassifier()).Detect(src)
	require.NoError(t, err)
	assert.Contains(t, res.MarkedHTML, "<html>")
	assert.Contains(t, res.MarkedHTML, `<h1 data-slot="hello-there" data-slot-type="headline">`)
}

var reMarkers = regexp.MustCompile(` data-slot(?:-type)?="[^"]*"`)

func TestDetect_FragmentKeepsHeadBoundTags(t *testing.T) {
	src := `<style>.hero{color:red}</style><link rel="stylesheet" href="x.css"/>` +
		`<h1 class="hero">Cook less, live more</h1>` +
		`<p>This paragraph is long enough to count as body copy.</p>`
	res, err := New(DefaultClassifier()).Detect(src)
	require.NoError(t, err)

	assert.Contains(t, res.MarkedHTML, `<h1 class="hero" data-slot="cook-less-live-more" data-slot-type="headline">`)
	tester.Eq(t, reMarkers.ReplaceAllString(res.MarkedHTML, ""), src)
}

func TestDetect_DocumentWithoutHTMLTagKeepsHead(t *testing.T) {
	src := `<!DOCTYPE html><head><title>Menu</title><meta charset="utf-8"/></head><body><h1>Hello there</h1></body>`
	res, err := New(DefaultClassifier()).Detect(src)
	require.NoError(t, err)
	assert.Contains(t, res.MarkedHTML, `<title>Menu</title><meta charset="utf-8"/>`)
	assert.Contains(t, res.MarkedHTML, `data-slot="hello-there"`)
}

func TestDetect_EmptyInput(t *testing.T) {
	_, err := New(DefaultClassifier()).Detect("  \n ")
	tester.True(t, errors.Is(err, ErrEmptyDocument))
}

func TestSlugify(t *testing.T) {
	tester.Eq(t, slugify("  Hello, World!  "), "hello-world")
	tester.Eq(t, slugify("Café Olé"), "café-olé")
	tester.Eq(t, slugify("***"), "")
}

func TestIDAllocator(t *testing.T) {
	a := newIDAllocator()
	tester.Eq(t, a.next("x"), "x")
	tester.Eq(t, a.next("x"), "x-1")
	tester.Eq(t, a.next("x"), "x-2")
	tester.Eq(t, a.next("x-1"), "x-1-1")
}

func TestCachedDetector(t *testing.T) {
	c, err := NewCached(New(DefaultClassifier()), 8)
	require.NoError(t, err)

	a, err := c.Detect(landingPage)
	require.NoError(t, err)
	a.Slots[0].ID = "mutated"

	b, err := c.Detect(landingPage)
	require.NoError(t, err)
	tester.Eq(t, c.Len(), 1)
	tester.Eq(t, b.Slots[0].ID, "meal-planning-made-simple", "cached result is not shared")

	_, err = c.Detect("")
	tester.True(t, errors.Is(err, ErrEmptyDocument))
	tester.Eq(t, c.Len(), 1, "errors are not cached")
}
