package packet

import (
	"testing"

	"github.com/joomcode/errorx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	t.Run("Multiple lines", func(t *testing.T) {
		assert.Equal(t, []string{"a:1|c", "b:2|c"}, Split([]byte("a:1|c\nb:2|c")))
	})

	t.Run("Surrounding whitespace", func(t *testing.T) {
		assert.Equal(t, []string{"a:1|c", "b:2|c"}, Split([]byte("\n a:1|c\nb:2|c\n\n")))
	})

	t.Run("Internal empty lines are kept", func(t *testing.T) {
		assert.Equal(t, []string{"a:1|c", "", "b:2|c"}, Split([]byte("a:1|c\n\nb:2|c")))
	})

	t.Run("CRLF", func(t *testing.T) {
		assert.Equal(t, []string{"a:1|c", "b:2|c"}, Split([]byte("a:1|c\r\nb:2|c\r\n")))
	})

	t.Run("Blank packet", func(t *testing.T) {
		assert.Empty(t, Split([]byte(" \n ")))
	})
}

func TestParser_WithoutNamespace(t *testing.T) {
	p := NewParser(&Config{})

	for _, str := range []string{"requests:1|c", "app.db.latency:42|ms", "temp:-3.5|g"} {
		t.Run(str, func(t *testing.T) {
			name := before(str, ":")

			assert.Equal(t, name, p.Service(str))
			assert.Equal(t, name, p.Description(str))
		})
	}

	metric, err := p.Metric("app.db.latency:42|ms")
	require.NoError(t, err)
	assert.Equal(t, "42", metric)
}

func TestParser_WithNamespace(t *testing.T) {
	p := NewParser(&Config{ParseNamespace: true})

	str := "app.db.latency:42|ms"

	assert.Equal(t, "app", p.Service(str))
	assert.Equal(t, "db.latency", p.Description(str))

	metric, err := p.Metric(str)
	require.NoError(t, err)
	assert.Equal(t, "42", metric)

	t.Run("Name without dots", func(t *testing.T) {
		assert.Equal(t, "", p.Description("app:42|ms"))
	})
}

func TestParser_Metric(t *testing.T) {
	p := NewParser(&Config{})

	cases := map[string]string{
		"a:1|c":        "1",
		"a:0.25|ms":    "0.25",
		"a:+4|g":       "+4",
		"a:1|c|@0.1":   "1",
		"a:12":         "12",
		"a:7:8|c":      "7",
		"a.b.c:100|ms": "100",
	}

	for str, expected := range cases {
		metric, err := p.Metric(str)
		require.NoError(t, err, str)
		assert.Equal(t, expected, metric, str)
	}
}

func TestParser_MetricMalformed(t *testing.T) {
	p := NewParser(&Config{})

	for _, str := range []string{"requests", "", ":1|c"} {
		_, err := p.Metric(str)
		require.Error(t, err, str)
		assert.True(t, errorx.IsOfType(err, ErrMalformed), str)
	}
}

func TestParser_Tags(t *testing.T) {
	t.Run("Static tags and event parts", func(t *testing.T) {
		p := NewParser(&Config{Tags: []string{"prod"}, TagWithEventParts: true})
		assert.Equal(t, []string{"prod", "app", "db"}, p.Tags("app.db:5|ms"))
	})

	t.Run("No duplicates removal", func(t *testing.T) {
		p := NewParser(&Config{Tags: []string{"app", "app"}, TagWithEventParts: true})
		assert.Equal(t, []string{"app", "app", "app", "app"}, p.Tags("app.app:5|ms"))
	})

	t.Run("Static tags only", func(t *testing.T) {
		p := NewParser(&Config{Tags: []string{"prod", "eu"}})
		assert.Equal(t, []string{"prod", "eu"}, p.Tags("app.db:5|ms"))
	})

	t.Run("No tags", func(t *testing.T) {
		p := NewParser(&Config{})
		assert.Empty(t, p.Tags("app.db:5|ms"))
	})

	t.Run("Config is copied", func(t *testing.T) {
		c := Config{Tags: []string{"prod"}}
		p := NewParser(&c)
		c.Tags[0] = "dev"

		tags := p.Tags("a:1|c")
		assert.Equal(t, []string{"prod"}, tags)

		tags[0] = "changed"
		assert.Equal(t, []string{"prod"}, p.Tags("a:1|c"))
	})
}

func TestParser_Parse(t *testing.T) {
	p := NewParser(&Config{ParseNamespace: true, TagWithEventParts: true, Tags: []string{"prod"}, TTL: 30})

	ev, err := p.Parse("app.db.latency:42|ms")
	require.NoError(t, err)

	assert.Equal(t, &Event{
		Service:     "app",
		State:       "ok",
		Description: "db.latency",
		Tags:        []string{"prod", "app", "db", "latency"},
		Metric:      "42",
		TTL:         30,
	}, ev)

	_, err = p.Parse("garbage")
	assert.True(t, errorx.IsOfType(err, ErrMalformed))
}
